package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

type ctxKey struct{}

// Init initializes the logger to output JSON to stdout at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func Init(level ...string) {
	lvl := slog.LevelInfo
	if len(level) > 0 {
		lvl = ParseLevel(level[0])
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true, // Include file and line number in logs
	})

	Logger = slog.New(handler)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func get() *slog.Logger {
	if Logger == nil {
		Init() // Auto-initialize if not done
	}
	return Logger
}

// WithContext returns a child context carrying a logger enriched with args,
// typically the request id.
func WithContext(ctx context.Context, args ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, FromContext(ctx).With(args...))
}

// FromContext returns the request-scoped logger, or the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return get()
}

// LogError logs an error with a message and optional key-value pairs
func LogError(msg string, err error, args ...any) {
	attrs := []any{"error", err}
	attrs = append(attrs, args...)
	get().Error(msg, attrs...)
}

// LogErrorWithContext logs an error with additional context as a map
func LogErrorWithContext(msg string, err error, fields map[string]any) {
	attrs := []any{"error", err}
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	get().Error(msg, attrs...)
}

func LogInfo(msg string, args ...any) {
	get().Info(msg, args...)
}

func LogWarn(msg string, args ...any) {
	get().Warn(msg, args...)
}

func LogDebug(msg string, args ...any) {
	get().Debug(msg, args...)
}
