package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
)

// Metrics collects the Prometheus metrics of the service.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	movements        *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	storageFailures  *prometheus.CounterVec
}

// NewMetrics initialises the registry together with the HTTP and domain collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mes_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mes_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mes_stock_movements_total",
		Help: "Stock movements recorded per factory and movement type.",
	}, []string{"factory", "type"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mes_order_transitions_total",
		Help: "Order lifecycle transitions per factory and target status.",
	}, []string{"factory", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mes_storage_failures_total",
		Help: "Storage operations that failed and were degraded.",
	}, []string{"op"})
	registry.MustRegister(requests, duration, movements, transitions, failures)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		movements:        movements,
		orderTransitions: transitions,
		storageFailures:  failures,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RecordMovement counts one stock movement.
func (m *Metrics) RecordMovement(factoryID string, kind inventory.MovementType) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(factoryID, string(kind)).Inc()
}

// RecordOrderTransition counts an order entering status.
func (m *Metrics) RecordOrderTransition(factoryID string, status inventory.OrderStatus) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(factoryID, string(status)).Inc()
}

// RecordStorageFailure counts a degraded storage operation.
func (m *Metrics) RecordStorageFailure(op string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(op).Inc()
}

// Registerer exposes the registry so other components can add collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush lets streaming handlers flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
