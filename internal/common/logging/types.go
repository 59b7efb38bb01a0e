// Package logging is the service's structured logger: a small Logger
// interface backed by zap, plus a process-wide default used by components
// built without an explicit logger.
package logging

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel is a severity threshold. Values line up with zapcore levels.
type LogLevel int8

const (
	DebugLevel LogLevel = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLevel maps a USMS_LOG_LEVEL value to a level. Unknown values give
// InfoLevel; config validation rejects them before startup.
func ParseLevel(s string) LogLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return WarnLevel
	}
	for level, name := range levelNames {
		if name == s {
			return level
		}
	}
	return InfoLevel
}

// Field is one structured key/value pair
type Field struct {
	Key   string
	Value interface{}
}

// Logger is what cache, scheduler and HTTP components log through
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// LogConfig configures NewZapLogger. A nil Output means stdout; an empty
// TimeFormat means RFC3339.
type LogConfig struct {
	Level      LogLevel
	Output     io.Writer
	TimeFormat string
}

type loggerBox struct{ Logger }

var (
	global      atomic.Value // loggerBox
	defaultOnce sync.Once
)

// SetGlobalLogger replaces the process-wide logger
func SetGlobalLogger(logger Logger) {
	global.Store(loggerBox{logger})
}

// GetGlobalLogger returns the process-wide logger, creating an info-level
// stdout logger on first use
func GetGlobalLogger() Logger {
	defaultOnce.Do(func() {
		if global.Load() == nil {
			SetGlobalLogger(NewDefaultLogger())
		}
	})
	return global.Load().(loggerBox).Logger
}
