package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// NewDefaultLogger creates a logger with default configuration using zap
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(LogConfig{Level: InfoLevel, TimeFormat: time.RFC3339})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// NewNopLogger returns a logger that discards everything. Used by tests and
// by components constructed without an explicit logger.
func NewNopLogger() Logger {
	l := zap.NewNop()
	return &ZapAdapter{logger: l}
}

// InitGlobalLogger initializes the global logger. Output goes to logFile when
// it is set, stdout otherwise.
func InitGlobalLogger(level, logFile string) error {
	config := LogConfig{
		Level:      ParseLevel(level),
		TimeFormat: time.RFC3339,
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		config.Output = file
	}

	logger, err := NewZapLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetGlobalLogger(logger)

	logger.Info("Logger initialized",
		String("level", config.Level.String()),
		String("log_file", logFile),
	)
	return nil
}

// MustSync flushes any buffered log entries for zap loggers.
// This should be called before application exit
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
