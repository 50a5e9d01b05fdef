package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func record(level slog.Level, msg string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), level, msg, 0)
	r.AddAttrs(attrs...)
	return r
}

func TestTerminalHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil)

	err := h.Handle(context.Background(), record(slog.LevelInfo, "server started", slog.Int("port", 8080)))
	assert.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "15:04:05.000")
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "server started")
	assert.Contains(t, out, "port=")
	assert.Contains(t, out, "8080")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminalHandler_LevelLabels(t *testing.T) {
	tests := []struct {
		level slog.Level
		label string
	}{
		{slog.LevelDebug, "DBG"},
		{slog.LevelInfo, "INF"},
		{slog.LevelWarn, "WRN"},
		{slog.LevelError, "ERR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
		_ = h.Handle(context.Background(), record(tt.level, "x"))
		assert.Contains(t, buf.String(), tt.label)
	}
}

func TestTerminalHandler_Enabled(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	def := newTerminalHandler(&bytes.Buffer{}, nil)
	assert.False(t, def.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, def.Enabled(context.Background(), slog.LevelInfo))
}

func TestTerminalHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil).
		WithAttrs([]slog.Attr{slog.String("component", "worker")}).
		WithGroup("task").
		WithGroup("")

	_ = h.Handle(context.Background(), record(slog.LevelInfo, "done", slog.String("id", "7")))

	out := buf.String()
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "task.id=")
	assert.NotContains(t, out, "task.component")
}

func TestTerminalHandler_QuotesAndErrors(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil)

	_ = h.Handle(context.Background(), record(slog.LevelError, "failed",
		slog.String("query", "how do plants eat"),
		slog.Any("error", errors.New("boom")),
		slog.Group("source", slog.String("link", "https://a.example")),
	))

	out := buf.String()
	assert.Contains(t, out, `"how do plants eat"`)
	assert.Contains(t, out, ansiRed+"boom")
	assert.Contains(t, out, "source.link=")
}
