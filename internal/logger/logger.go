package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

// Context keys read by WithContext
const (
	RequestIDKey ctxKey = "request_id"
	ProductIDKey ctxKey = "product_id"
)

var defaultLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Init initializes the global logger writing to stdout
func Init(level, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter initializes the global logger with an explicit sink.
// The CLI logs to stderr so command output stays parseable.
func InitWithWriter(w io.Writer, level, format string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: format == "json",
	}

	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// parseLevel converts string level to slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithContext returns a logger carrying the request and product ids found in ctx
func WithContext(ctx context.Context) *slog.Logger {
	l := defaultLogger
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		l = l.With("request_id", v)
	}
	if v, ok := ctx.Value(ProductIDKey).(string); ok && v != "" {
		l = l.With("product_id", v)
	}
	return l
}

// WithProductID tags ctx so downstream log lines carry the scanned identifier
func WithProductID(ctx context.Context, productID string) context.Context {
	return context.WithValue(ctx, ProductIDKey, productID)
}

// With returns a child logger scoped to a component
func With(component string) *slog.Logger {
	return defaultLogger.With("component", component)
}

// Info logs an info message
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}
