package app

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hilmishah-img/usms/internal/common/logging"
	"github.com/hilmishah-img/usms/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Run is the main entry point for the application
func Run() error {
	// A missing .env file is fine
	_ = godotenv.Load()

	var (
		cleanupOnce bool
		printStats  bool
	)
	flag.BoolVar(&cleanupOnce, "cleanup", false, "Run cache cleanup once and exit")
	flag.BoolVar(&printStats, "stats", false, "Print cache statistics as JSON and exit")
	flag.Parse()

	cfg := config.Load()

	if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logging.MustSync()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting USMS cache service",
		logging.Int("cpus", runtime.NumCPU()),
		logging.String("cache_path", cfg.CachePath),
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", err)
		return err
	}

	app, err := New(cfg)
	if err != nil {
		logger.Error("Failed to initialize application", err)
		return err
	}

	if cleanupOnce || printStats {
		defer app.Cache.Close()
		if cleanupOnce {
			app.Cache.Cleanup()
		}
		if printStats {
			out, err := json.MarshalIndent(app.Cache.Stats(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		}
		return nil
	}

	if err := app.Start(); err != nil {
		logger.Error("Server failed to start", err)
		app.Cache.Close()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		logger.Info("Shutting down", logging.String("signal", sig.String()))
	case serveErr = <-app.Server.Errors():
		logger.Error("Admin API failed, shutting down", serveErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("Service exited")
	return serveErr
}
