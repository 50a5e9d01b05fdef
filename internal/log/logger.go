// Package log builds the application's slog logger.
//
// Records logged with a context pick up the request id, generation job id and
// user id stored on it, so the HTTP layer and the workers never pass them by
// hand.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/helixml/snippets/internal/config"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys read by the logger.
const (
	RequestIDKey ContextKey = "request_id"
	JobIDKey     ContextKey = "job_id"
	UserIDKey    ContextKey = "user_id"
)

var contextKeys = []ContextKey{RequestIDKey, JobIDKey, UserIDKey}

// NewLogger creates a logger writing to stdout in the configured format.
func NewLogger(cfg config.AppConfig) *slog.Logger {
	return NewLoggerWithWriter(os.Stdout, cfg.LogFormat(), cfg.LogLevel())
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(w io.Writer, format config.LogFormat, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	switch format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = newTerminalHandler(w, opts)
	}

	return slog.New(contextHandler{next: handler})
}

// ParseLevel maps a level name to a slog level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure builds the logger from configuration and installs it as the slog default.
func Configure(cfg config.AppConfig) *slog.Logger {
	l := NewLogger(cfg)
	slog.SetDefault(l)
	return l
}

// WithRequestID stores an HTTP request id on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithJobID stores a generation job id on the context.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, JobIDKey, id)
}

// WithUserID stores the acting user's id on the context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// RequestID extracts the request id from context.
func RequestID(ctx context.Context) string { return stringValue(ctx, RequestIDKey) }

// JobID extracts the job id from context.
func JobID(ctx context.Context) string { return stringValue(ctx, JobIDKey) }

func stringValue(ctx context.Context, key ContextKey) string {
	if id, ok := ctx.Value(key).(string); ok {
		return id
	}
	return ""
}

// contextHandler copies known context values onto every record.
type contextHandler struct {
	next slog.Handler
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		for _, key := range contextKeys {
			if v := stringValue(ctx, key); v != "" {
				r.AddAttrs(slog.String(string(key), v))
			}
		}
	}
	return h.next.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name)}
}
