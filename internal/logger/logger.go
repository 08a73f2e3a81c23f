// Package logger wraps log/slog behind a small interface services depend on.
//
// Credentials never reach the output: attributes named like passwords,
// tokens or cookies are replaced with a placeholder whatever handler is used.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments define the log format
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// New creates logger suitable for the environment: text for development, JSON for production
func New(env string, level string) (Logger, error) {
	return newLogger(os.Stderr, env, level)
}

func NewTextLogger(level string) (Logger, error) {
	return newLogger(os.Stderr, EnvDevelopment, level)
}

func NewJSONLogger(level string) (Logger, error) {
	return newLogger(os.Stderr, EnvProduction, level)
}

// NewNoOpLogger creates a logger that discards all log messages
func NewNoOpLogger() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}

func newLogger(w io.Writer, env string, level string) (Logger, error) {
	l, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       l,
		AddSource:   true,
		ReplaceAttr: replace,
	}

	var handler slog.Handler
	switch env {
	case EnvDevelopment:
		handler = slog.NewTextHandler(w, opts)
	case EnvProduction:
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown environment %q, expected one of: %s, %s", env, EnvDevelopment, EnvProduction)
	}

	return &slogLogger{logger: slog.New(handler)}, nil
}
