package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/helixml/snippets/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithWriter_JSONCarriesContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, config.LogFormatJSON, "info")

	ctx := WithJobID(WithRequestID(context.Background(), "req-1"), "job-1")
	ctx = WithUserID(ctx, "user-1")
	l.InfoContext(ctx, "snippet generated", "snippet_id", "s1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "snippet generated", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "job-1", rec["job_id"])
	assert.Equal(t, "user-1", rec["user_id"])
	assert.Equal(t, "s1", rec["snippet_id"])
}

func TestNewLoggerWithWriter_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, config.LogFormatJSON, "warn")

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestNewLoggerWithWriter_PrettyWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf, config.LogFormatPretty, "debug").With("component", "worker")

	l.DebugContext(WithJobID(context.Background(), "j9"), "polling")

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "polling")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "worker")
	assert.Contains(t, out, "j9")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, JobID(ctx))

	ctx = WithRequestID(WithJobID(ctx, "j"), "r")
	assert.Equal(t, "r", RequestID(ctx))
	assert.Equal(t, "j", JobID(ctx))
}

func TestConfigure_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	l := Configure(config.NewAppConfig().Apply(config.WithLogFormat(config.LogFormatJSON)))
	assert.Same(t, l, slog.Default())
	_, ok := l.Handler().(contextHandler)
	assert.True(t, ok)
}
