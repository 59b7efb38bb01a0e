package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hilmishah-img/usms/internal/common/logging"
	"github.com/hilmishah-img/usms/internal/handlers"
	"github.com/hilmishah-img/usms/internal/middleware"
)

// RouteDeps are the pieces SetupRoutes mounts. The optional ones are nil when
// the matching feature is disabled.
type RouteDeps struct {
	Handlers *handlers.Handlers
	Logger   logging.Logger

	HTTPMetrics    *middleware.HTTPMetrics
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
}

// SetupRoutes configures all HTTP routes for the admin API
func SetupRoutes(router *mux.Router, deps RouteDeps) {
	h := deps.Handlers

	router.Use(middleware.RequestID, middleware.Logging(deps.Logger))
	if deps.HTTPMetrics != nil {
		router.Use(deps.HTTPMetrics.Middleware)
	}

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if deps.MetricsHandler != nil {
		router.Handle("/metrics", deps.MetricsHandler).Methods(http.MethodGet)
	}

	limit := func(next http.HandlerFunc) http.Handler {
		if deps.RateLimiter == nil {
			return next
		}
		return deps.RateLimiter.Middleware(next)
	}

	// Cache administration
	router.Handle("/api/cache", limit(h.ClearCache)).Methods(http.MethodDelete)
	api := router.PathPrefix("/api/cache").Subrouter()
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware)
	}
	api.HandleFunc("/stats", h.GetCacheStats).Methods(http.MethodGet)
	api.HandleFunc("/entries", h.InvalidateEntries).Methods(http.MethodDelete)
	api.HandleFunc("/cleanup", h.RunCleanup).Methods(http.MethodPost)
}
