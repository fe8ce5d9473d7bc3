package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_Writer(t *testing.T) {
	var buf bytes.Buffer
	cfg := NewDefaultConfig()
	cfg.Output.Writer = zapcore.AddSync(&buf)

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info(WithRequestID(context.Background(), "req-9"), "model configured",
		zap.String("model", "llama3.2-vision"),
		zap.String("api_key", "sk-live-123"),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "model configured", entry["msg"])
	assert.Equal(t, "req-9", entry["request.id"])
	assert.Equal(t, "llama3.2-vision", entry["model"])
	assert.Equal(t, "[REDACTED]", entry["api_key"])
	assert.Equal(t, "briefd", entry["service"])
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tests := []struct {
		name  string
		log   func()
		level zapcore.Level
	}{
		{"trace", func() { tl.Trace(ctx, "msg", zap.String("key", "val")) }, TraceLevel},
		{"debug", func() { tl.Debug(ctx, "msg", zap.String("key", "val")) }, zapcore.DebugLevel},
		{"info", func() { tl.Info(ctx, "msg", zap.String("key", "val")) }, zapcore.InfoLevel},
		{"warn", func() { tl.Warn(ctx, "msg", zap.String("key", "val")) }, zapcore.WarnLevel},
		{"error", func() { tl.Error(ctx, "msg", zap.String("key", "val")) }, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl.Reset()
			tt.log()

			logs := tl.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, "val", logs[0].ContextMap()["key"])
		})
	}
}

func TestLogger_RequestIDAndTraceFields(t *testing.T) {
	tl := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithRequestID(ctx, "req-123")

	tl.Info(ctx, "handled")

	tl.AssertField(t, "handled", "request.id", "req-123")
	tl.AssertField(t, "handled", "trace_id", "4bf92f3577b34da6a3ce929d0e0e4736")
	tl.AssertField(t, "handled", "span_id", "00f067aa0ba902b7")
}

func TestLogger_WithAndNamed(t *testing.T) {
	tl := NewTestLogger()

	child := tl.With(zap.String("component", "tasks")).Named("generator")
	child.Info(context.Background(), "ready")

	logs := tl.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "generator", logs[0].LoggerName)
	tl.AssertField(t, "ready", "component", "tasks")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info(context.Background(), "dropped")
	assert.False(t, l.Enabled(zapcore.ErrorLevel))
	assert.NoError(t, l.Sync())
}

func TestWrap_Nil(t *testing.T) {
	assert.NotNil(t, Wrap(nil).Underlying())
}
