package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hilmishah-img/usms/internal/cache"
	"github.com/hilmishah-img/usms/internal/common/errors"
	"github.com/hilmishah-img/usms/internal/common/logging"
)

// MockCache is a testify mock of CacheAdmin
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Stats() cache.Stats {
	args := m.Called()
	return args.Get(0).(cache.Stats)
}

func (m *MockCache) Invalidate(sel cache.Selector) (int, error) {
	args := m.Called(sel)
	return args.Int(0), args.Error(1)
}

func (m *MockCache) Cleanup() {
	m.Called()
}

func (m *MockCache) Clear() {
	m.Called()
}

var sampleStats = cache.Stats{
	L1Hits:         6,
	L2Hits:         2,
	Hits:           8,
	Misses:         2,
	Sets:           5,
	L1Size:         3,
	L2Size:         5,
	L2Bytes:        4096,
	TotalRequests:  10,
	HitRatePercent: 80,
}

func newTestHandlers() (*Handlers, *MockCache) {
	mc := &MockCache{}
	return New(mc, logging.NewNopLogger()), mc
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetCacheStats(t *testing.T) {
	h, mc := newTestHandlers()
	mc.On("Stats").Return(sampleStats)

	rec := httptest.NewRecorder()
	h.GetCacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, sampleStats, got)
	mc.AssertExpectations(t)
}

func TestInvalidateEntries(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		selector   *cache.Selector
		count      int
		err        error
		wantStatus int
	}{
		{
			name:       "by key",
			query:      "key=account:REG-1",
			selector:   &cache.Selector{Key: "account:REG-1"},
			count:      2,
			wantStatus: http.StatusOK,
		},
		{
			name:       "by pattern",
			query:      "pattern=meter:E-1:*",
			selector:   &cache.Selector{Pattern: "meter:E-1:*"},
			count:      4,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing selector",
			query:      "",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "both selectors",
			query:      "key=a&pattern=a*",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bare wildcard",
			query:      "pattern=*",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "cache rejects selector",
			query:      "key=k",
			selector:   &cache.Selector{Key: "k"},
			err:        errors.ValidationError("cache key must not be empty"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unexpected failure",
			query:      "key=k",
			selector:   &cache.Selector{Key: "k"},
			err:        errors.InternalError("boom", nil),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mc := newTestHandlers()
			if tt.selector != nil {
				mc.On("Invalidate", *tt.selector).Return(tt.count, tt.err)
			}

			rec := httptest.NewRecorder()
			h.InvalidateEntries(rec, httptest.NewRequest(http.MethodDelete, "/api/cache/entries?"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, float64(tt.count), body["invalidated"])
			} else {
				assert.NotEmpty(t, body["error"])
			}

			if tt.selector == nil {
				mc.AssertNotCalled(t, "Invalidate", mock.Anything)
				assert.Equal(t, "validation", body["type"])
				assert.NotEmpty(t, body["details"])
			}
			mc.AssertExpectations(t)
		})
	}
}

func TestRunCleanup(t *testing.T) {
	h, mc := newTestHandlers()
	mc.On("Cleanup").Return().Once()
	mc.On("Stats").Return(sampleStats)

	rec := httptest.NewRecorder()
	h.RunCleanup(rec, httptest.NewRequest(http.MethodPost, "/api/cache/cleanup", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(80), body["stats"].(map[string]interface{})["hit_rate_percent"])
	mc.AssertExpectations(t)
}

func TestClearCache(t *testing.T) {
	h, mc := newTestHandlers()
	mc.On("Clear").Return().Once()

	rec := httptest.NewRecorder()
	h.ClearCache(rec, httptest.NewRequest(http.MethodDelete, "/api/cache", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	mc.AssertExpectations(t)
}

func TestHealthCheck(t *testing.T) {
	h, mc := newTestHandlers()
	mc.On("Stats").Return(sampleStats)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])

	cacheInfo := body["cache"].(map[string]interface{})
	assert.Equal(t, float64(3), cacheInfo["l1_size"])
	assert.Equal(t, float64(5), cacheInfo["l2_size"])
}
