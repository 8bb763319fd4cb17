package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggerConfig{Level: "info", Format: "json"})

	logger.Debug("hidden")
	logger.Info("dataset loaded", "records", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dataset loaded", entry["msg"])
	assert.Equal(t, "sales-dashboard", entry["service"])
	assert.EqualValues(t, 3, entry["records"])
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))

	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", GetRequestID(ctx))
}

func TestStartSpan_ChildInheritsTrace(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "GET /sse/dashboard")
	_, child := StartSpan(ctx, "pipeline.apply")

	assert.Len(t, parent.SpanID, 16)
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
	assert.Same(t, parent, GetSpan(ctx))
}

func TestSpan_End(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggerConfig{Level: "debug", Format: "json"})

	ctx := WithRequestID(context.Background(), "req-9")
	ctx, span := StartSpan(ctx, "pipeline.apply")
	span.SetAttr("rows.filtered", 2)
	span.SetError(errors.New("boom"))
	span.End(ctx, logger)

	var entry struct {
		Msg       string         `json:"msg"`
		RequestID string         `json:"request_id"`
		Span      map[string]any `json:"span"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "span finished", entry.Msg)
	assert.Equal(t, "req-9", entry.RequestID)
	assert.Equal(t, "pipeline.apply", entry.Span["operation"])
	assert.Equal(t, "ERROR", entry.Span["status"])
	assert.Equal(t, "boom", entry.Span["error"])
	assert.EqualValues(t, 2, entry.Span["rows.filtered"])
	assert.Equal(t, span.TraceID, entry.Span["trace_id"])
}
