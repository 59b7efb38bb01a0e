package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilmishah-img/usms/internal/cache"
	"github.com/hilmishah-img/usms/internal/config"
	"github.com/hilmishah-img/usms/internal/middleware"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		APIHost:             "127.0.0.1",
		APIPort:             8000,
		LogLevel:            "error",
		CachePath:           t.TempDir(),
		MemoryCacheSize:     100,
		DiskCacheSizeLimit:  1 << 20,
		DiskBreakerFailures: 5,
		DiskBreakerCooldown: 30 * time.Second,
		TTL: config.TTLConfig{
			Account:          15 * time.Minute,
			AccountDisk:      time.Hour,
			MeterCurrent:     5 * time.Minute,
			MeterCurrentDisk: 30 * time.Minute,
			Consumption:      time.Hour,
			ConsumptionDisk:  24 * time.Hour,
		},
		EnableScheduler: true,
		CleanupSchedule: "@every 1h",
		StatsSchedule:   "@every 15m",
		MetricsEnabled:  true,
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})
	return app
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNew_WiresComponents(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg)

	assert.NotNil(t, app.Cache)
	assert.NotNil(t, app.Scheduler)
	assert.NotNil(t, app.Registry)
	assert.NotNil(t, app.Handler)
	assert.Equal(t, "127.0.0.1:8000", app.Server.Addr())
	assert.Equal(t, cache.Policy{Memory: 5 * time.Minute, Disk: 30 * time.Minute}, app.Policies.MeterCurrent)
	assert.Len(t, app.Scheduler.Jobs(), 2)
}

func TestNew_SchedulerDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableScheduler = false

	app := newTestApp(t, cfg)
	assert.Nil(t, app.Scheduler)
}

func TestNew_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.CleanupSchedule = "every now and then"

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRoutes_Health(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	rec := do(t, app.Handler, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRoutes_StatsAndInvalidate(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	policy := app.Policies.MeterCurrent

	require.NoError(t, app.Cache.Set(cache.MeterKey("M1", "unit"), json.RawMessage(`{"reading":12.5}`), policy.Memory, policy.Disk))
	require.NoError(t, app.Cache.Set(cache.MeterKey("M1", "credit"), json.RawMessage(`{"reading":3}`), policy.Memory, policy.Disk))
	require.NoError(t, app.Cache.Set(cache.AccountKey("R1"), json.RawMessage(`{"name":"x"}`), 0, 0))

	rec := do(t, app.Handler, http.MethodGet, "/api/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.L1Size)
	assert.Equal(t, 3, stats.L2Size)

	rec = do(t, app.Handler, http.MethodDelete, "/api/cache/entries?pattern="+cache.MeterPattern("M1"))
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := app.Cache.Get(cache.MeterKey("M1", "unit"))
	assert.False(t, ok)
	_, ok = app.Cache.Get(cache.AccountKey("R1"))
	assert.True(t, ok)
}

func TestRoutes_InvalidateRequiresSelector(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	rec := do(t, app.Handler, http.MethodDelete, "/api/cache/entries")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_CleanupAndClear(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	require.NoError(t, app.Cache.Set("k", json.RawMessage(`1`), 0, 0))

	rec := do(t, app.Handler, http.MethodPost, "/api/cache/cleanup")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app.Handler, http.MethodDelete, "/api/cache")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, app.Cache.Stats().L1Size)
	assert.Equal(t, 0, app.Cache.Stats().L2Size)
}

func TestRoutes_WrongMethod(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	rec := do(t, app.Handler, http.MethodPost, "/api/cache/stats")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoutes_Metrics(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	require.NoError(t, app.Cache.Set("k", json.RawMessage(`1`), 0, 0))
	_, _ = app.Cache.Get("k")
	do(t, app.Handler, http.MethodGet, "/health")

	rec := do(t, app.Handler, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `usms_cache_hits_total{tier="l1"} 1`), text)
	assert.Contains(t, text, "usms_cache_entries")
	assert.Contains(t, text, "usms_http_requests_total")
}

func TestRoutes_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsEnabled = false
	app := newTestApp(t, cfg)

	rec := do(t, app.Handler, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIPort = 0
	app, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, app.Start())

	resp, err := http.Get("http://" + app.Server.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, app.Shutdown(ctx))
}

func TestRoutes_RateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIRateLimit = 1
	cfg.APIRateBurst = 1
	app := newTestApp(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, app.Handler, http.MethodGet, "/api/cache/stats").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, app.Handler, http.MethodGet, "/api/cache/stats").Code)

	// health and metrics are not limited
	assert.Equal(t, http.StatusOK, do(t, app.Handler, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, do(t, app.Handler, http.MethodGet, "/health").Code)
}
