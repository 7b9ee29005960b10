package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWithWriter_IncludesServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("projectverse", "info", &buf)

	l.Info("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "projectverse", entry["service"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("projectverse", "error", &buf)

	l.Info("dropped")

	assert.Zero(t, buf.Len())
}

func TestWithContext_AddsPrincipalAndCorrelation(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("projectverse", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-1")
	ctx = WithPrincipal(ctx, "buyer-1", "buyer")

	WithContext(ctx, base).Info("enriched")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "corr-1", entry["correlation_id"])
	assert.Equal(t, "buyer-1", entry["user_id"])
	assert.Equal(t, "buyer", entry["role"])
	assert.NotContains(t, entry, "trace_id")
}

func TestWithContext_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("projectverse", "info", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithContext(ctx, base).Info("traced")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	l := NewWithWriter("projectverse", "info", &bytes.Buffer{})
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
