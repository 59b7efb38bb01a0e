package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{" warn ", WarnLevel},
		{"Error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "debug", DebugLevel.String())
	assert.Equal(t, "error", ErrorLevel.String())
	assert.Equal(t, "unknown", LogLevel(42).String())
}

func TestZapAdapter(t *testing.T) {
	t.Run("levels", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: DebugLevel, Output: &buf, TimeFormat: time.RFC3339})
		require.NoError(t, err)

		logger.Debug("debug message", String("key", "meter:1"))
		logger.Info("info message", Int("count", 42))
		logger.Warn("warn message", Bool("enabled", true))
		logger.Error("error message", errors.New("disk full"), String("tier", "l2"))

		output := buf.String()
		assert.Contains(t, output, "DEBUG")
		assert.Contains(t, output, "info message")
		assert.Contains(t, output, "WARN")
		assert.Contains(t, output, "ERROR")
		assert.Contains(t, output, "disk full")
		assert.Contains(t, output, "meter:1")
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: WarnLevel, Output: &buf})
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("with fields and context", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &buf})
		require.NoError(t, err)

		ctx := context.WithValue(context.Background(), JobKey, "cleanup_cache")
		logger.WithFields(String("component", "cache")).WithContext(ctx).Info("ran")

		output := buf.String()
		assert.Contains(t, output, "component")
		assert.Contains(t, output, "cache")
		assert.Contains(t, output, "cleanup_cache")
	})

	t.Run("empty fields returns same logger", func(t *testing.T) {
		logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &bytes.Buffer{}})
		require.NoError(t, err)

		assert.Same(t, logger, logger.WithFields())
		assert.Same(t, logger, logger.WithContext(context.Background()))
	})
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info("nothing")
		logger.Error("nothing", errors.New("x"))
		logger.WithFields(String("a", "b")).Debug("nothing")
	})
}

func TestInitGlobalLogger(t *testing.T) {
	previous := GetGlobalLogger()
	defer SetGlobalLogger(previous)

	logFile := filepath.Join(t.TempDir(), "usms.log")
	require.NoError(t, InitGlobalLogger("debug", logFile))

	GetGlobalLogger().Info("global message", String("source", "test"))
	MustSync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Logger initialized")
	assert.Contains(t, string(data), "global message")
}

func TestInitGlobalLogger_BadPath(t *testing.T) {
	err := InitGlobalLogger("info", filepath.Join(t.TempDir(), "missing", "dir", "usms.log"))
	assert.Error(t, err)
}
