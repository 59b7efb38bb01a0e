package app

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hilmishah-img/usms/internal/cache"
	"github.com/hilmishah-img/usms/internal/common/logging"
	"github.com/hilmishah-img/usms/internal/config"
	"github.com/hilmishah-img/usms/internal/handlers"
	"github.com/hilmishah-img/usms/internal/middleware"
	"github.com/hilmishah-img/usms/internal/scheduler"
	"github.com/hilmishah-img/usms/internal/server"
)

const metricsNamespace = "usms"

// App holds all the application dependencies
type App struct {
	Config    *config.Config
	Cache     *cache.Manager[json.RawMessage]
	Policies  cache.Policies
	Scheduler *scheduler.Scheduler
	Registry  *prometheus.Registry
	Handler   http.Handler
	Server    *server.Server
	Logger    logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config:   cfg,
		Policies: cfg.Policies(),
		Logger: logging.GetGlobalLogger().WithFields(logging.String("component", "app")),
	}

	mgr, err := cache.New[json.RawMessage](cfg.CacheConfig(),
		cache.WithLogger(logging.GetGlobalLogger()),
		cache.WithDiskBreaker(cfg.DiskBreaker()),
	)
	if err != nil {
		return nil, err
	}
	app.Cache = mgr

	if cfg.EnableScheduler {
		sched, err := scheduler.New(mgr, scheduler.Config{
			CleanupSchedule: cfg.CleanupSchedule,
			StatsSchedule:   cfg.StatsSchedule,
		}, logging.GetGlobalLogger())
		if err != nil {
			mgr.Close()
			return nil, err
		}
		app.Scheduler = sched
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		cache.NewCollector(mgr, metricsNamespace),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		httpMetrics    *middleware.HTTPMetrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		httpMetrics = middleware.NewHTTPMetrics(app.Registry, metricsNamespace)
		metricsHandler = promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})
	}

	var limiter *middleware.RateLimiter
	if cfg.APIRateLimit > 0 {
		limiter = middleware.NewRateLimiter(float64(cfg.APIRateLimit), cfg.APIRateBurst)
	}

	router := mux.NewRouter()
	SetupRoutes(router, RouteDeps{
		Handlers:       handlers.New(mgr, logging.GetGlobalLogger()),
		Logger:         logging.GetGlobalLogger(),
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metricsHandler,
		RateLimiter:    limiter,
	})
	app.Handler = router
	app.Server = server.New(router, cfg.Addr(), logging.GetGlobalLogger())

	return app, nil
}

// Start launches the scheduler and the admin API
func (app *App) Start() error {
	if app.Scheduler != nil {
		app.Scheduler.Start()
	}
	return app.Server.Start()
}

// Shutdown stops the scheduler, drains the admin API and closes the cache
func (app *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if app.Scheduler != nil {
		if err := app.Scheduler.Stop(ctx); err != nil {
			app.Logger.Warn("Error stopping scheduler", logging.Err(err))
			firstErr = err
		}
	}

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Logger.Error("Server forced to shutdown", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	app.Cache.Close()
	return firstErr
}
