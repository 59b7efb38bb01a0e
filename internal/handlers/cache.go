package handlers

import (
	"net/http"
	"time"

	"github.com/hilmishah-img/usms/internal/cache"
	"github.com/hilmishah-img/usms/internal/common/logging"
	"github.com/hilmishah-img/usms/internal/common/validation"
)

// invalidateRequest mirrors the query string of DELETE /api/cache/entries
type invalidateRequest struct {
	Key     string `json:"key" validate:"required_without=Pattern,excluded_with=Pattern"`
	Pattern string `json:"pattern" validate:"omitempty,cache_pattern"`
}

type invalidateResponse struct {
	Key         string `json:"key,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Invalidated int    `json:"invalidated"`
}

type cleanupResponse struct {
	Status     string      `json:"status"`
	DurationMS int64       `json:"duration_ms"`
	Stats      cache.Stats `json:"stats"`
}

// GetCacheStats returns the current cache statistics
func (h *Handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

// InvalidateEntries removes entries selected by the key or pattern query parameter
func (h *Handlers) InvalidateEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := invalidateRequest{
		Key:     query.Get("key"),
		Pattern: query.Get("pattern"),
	}

	if err := validation.ValidateStruct(req); err != nil {
		h.writeError(w, err, validation.FieldErrors(err))
		return
	}

	n, err := h.cache.Invalidate(cache.Selector{Key: req.Key, Pattern: req.Pattern})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	h.logger.Info("Cache entries invalidated via API",
		logging.String("key", req.Key),
		logging.String("pattern", req.Pattern),
		logging.Int("invalidated", n),
	)
	writeJSON(w, http.StatusOK, invalidateResponse{
		Key:         req.Key,
		Pattern:     req.Pattern,
		Invalidated: n,
	})
}

// RunCleanup runs cache maintenance immediately and returns the resulting stats
func (h *Handlers) RunCleanup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.cache.Cleanup()

	writeJSON(w, http.StatusOK, cleanupResponse{
		Status:     "completed",
		DurationMS: time.Since(start).Milliseconds(),
		Stats:      h.cache.Stats(),
	})
}

// ClearCache empties both cache tiers
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	h.logger.Warn("Cache cleared via API")
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck reports liveness together with the cache sizes
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"cache": map[string]interface{}{
			"l1_size":          stats.L1Size,
			"l2_size":          stats.L2Size,
			"hit_rate_percent": stats.HitRatePercent,
		},
	})
}
