package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `mes_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `mes_http_request_duration_seconds_bucket{route="/test"`)
}

func TestMetricsRecordsDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordMovement("pistachio", inventory.MovementIn)
	metrics.RecordMovement("pistachio", inventory.MovementIn)
	metrics.RecordOrderTransition("nuts", inventory.OrderStatusReserved)
	metrics.RecordStorageFailure("set")

	body := scrape(t, metrics)
	require.Contains(t, body, `mes_stock_movements_total{factory="pistachio",type="IN"} 2`)
	require.Contains(t, body, `mes_order_transitions_total{factory="nuts",status="RESERVED"} 1`)
	require.Contains(t, body, `mes_storage_failures_total{op="set"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordMovement("f", inventory.MovementOut)
	metrics.RecordStorageFailure("get")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRecorderForwardsFlush(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: rr, status: http.StatusOK}
	var w http.ResponseWriter = rec
	flusher, ok := w.(http.Flusher)
	require.True(t, ok)
	flusher.Flush()
	require.True(t, rr.Flushed)
}
