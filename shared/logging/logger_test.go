package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_Infof(t *testing.T) {
	var buf bytes.Buffer
	log := New("sales-service", &buf)

	log.Infof("sale started", map[string]interface{}{"sale_id": "s-1"})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "sales-service", entry["service"])
	assert.Equal(t, "sale started", entry["message"])
	assert.Equal(t, "s-1", entry["sale_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	log := New("sales-service", &buf)

	log.WithError(errors.New("boom")).WithField("step", "reserve_vehicle").Warn("step failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "reserve_vehicle", entry["step"])
	assert.Equal(t, "warn", entry["level"])
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	log := New("sales-service", &buf)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	log.WithContext(ctx).Info("traced")

	entry := decodeLine(t, &buf)
	assert.Equal(t, traceID.String(), entry["traceID"])
	assert.Equal(t, spanID.String(), entry["spanID"])
}

func TestLogger_WithContextWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	log := New("sales-service", &buf)

	log.WithContext(context.Background()).Info("untraced")

	entry := decodeLine(t, &buf)
	assert.NotContains(t, entry, "traceID")
}
