package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/AKAPP611/al-jameel-mes/internal/inventory"
	"github.com/AKAPP611/al-jameel-mes/internal/observability"
	"github.com/AKAPP611/al-jameel-mes/internal/orders"
	"github.com/AKAPP611/al-jameel-mes/internal/storage"
	"github.com/AKAPP611/al-jameel-mes/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FACTORIES", "pistachio, nuts ,")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "memory", cfg.StorageDriver)
	require.Equal(t, LockDriverLocal, cfg.LockDriver)
	require.Equal(t, []string{"pistachio", "nuts"}, cfg.Factories)
	require.False(t, cfg.SharedState())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "unknown storage driver")

	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("LOCK_DRIVER", "zookeeper")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "unknown lock driver")
}

func TestNewLoggerHonoursFormatAndLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("factory_id", "pistachio"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "pistachio", line["factory_id"])
	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestLoadConfigTestMode(t *testing.T) {
	t.Setenv("MES_TEST_MODE", "1")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.TestMode)

	t.Setenv("MES_TEST_MODE", "false")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	require.False(t, cfg.TestMode)
}

func TestSharedStateFollowsStorageDriver(t *testing.T) {
	cases := []struct {
		storage string
		lock    string
		shared  bool
	}{
		{storage.DriverMemory, LockDriverLocal, false},
		{storage.DriverMemory, LockDriverRedis, true},
		{storage.DriverSQLite, LockDriverLocal, true},
		{storage.DriverRedis, LockDriverLocal, true},
		{storage.DriverPostgres, LockDriverRedis, true},
	}
	for _, tc := range cases {
		cfg := &Config{StorageDriver: tc.storage, LockDriver: tc.lock}
		require.Equal(t, tc.shared, cfg.SharedState(), "%s/%s", tc.storage, tc.lock)
	}
}

func TestValidateWorkerRequiresSharedBackends(t *testing.T) {
	base := Config{StorageDriver: storage.DriverRedis, LockDriver: LockDriverRedis, RedisAddr: "127.0.0.1:6379"}
	cfg := base
	require.NoError(t, cfg.ValidateWorker())

	cfg = base
	cfg.StorageDriver = storage.DriverMemory
	require.ErrorContains(t, cfg.ValidateWorker(), "STORAGE_DRIVER")

	cfg = base
	cfg.StorageDriver = storage.DriverSQLite
	cfg.LockDriver = LockDriverLocal
	require.ErrorContains(t, cfg.ValidateWorker(), "LOCK_DRIVER=redis")

	cfg = base
	cfg.StorageDriver = "mongo"
	require.ErrorContains(t, cfg.ValidateWorker(), "unknown storage driver")
}

func newTestServices(t *testing.T, cfg *Config) *Services {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewServices(context.Background(), cfg, logger, observability.NewMetrics())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, svc.Close()) })
	return svc
}

func TestRouterServesAPI(t *testing.T) {
	cfg := &Config{StorageDriver: "memory", LockDriver: LockDriverLocal, Factories: []string{"pistachio"}, RateLimitPerMinute: 100}
	svc := newTestServices(t, cfg)
	metrics := observability.NewMetrics()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		InventoryHandler: inventory.NewHandler(logger, svc.Repo, cfg.Factories),
		OrdersHandler:    orders.NewHandler(logger, svc.Repo),
		JobHandler:       jobs.NewHandler(nil, nil, logger),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/factories/pistachio/inventory/PST-18-21", strings.NewReader(`{"qty":10}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/factories/pistachio/stock/add", strings.NewReader(`{"sku":"PST-18-21","quantity":100}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/factories/pistachio/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `mes_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestNewServicesWithRedisLockAndStore(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := &Config{StorageDriver: "redis", LockDriver: LockDriverRedis, RedisAddr: srv.Addr(), LockTTL: 5 * time.Second}
	svc := newTestServices(t, cfg)
	require.Nil(t, svc.Archiver)

	ctx := context.Background()
	qty := 5.0
	_, err := svc.Repo.UpdateInventory(ctx, "pistachio", "PST-18-21", inventory.InventoryUpdate{Qty: &qty})
	require.NoError(t, err)
	_, err = svc.Repo.AddStock(ctx, "pistachio", "PST-18-21", 5, "")
	require.NoError(t, err)
	require.True(t, srv.Exists(storage.StateKey("pistachio")))

	doc, err := svc.Repo.GetState(ctx, "pistachio")
	require.NoError(t, err)
	require.Equal(t, 10.0, doc.Inventory[0].Qty)
}
