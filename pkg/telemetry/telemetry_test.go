package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestManagerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	mgr, err := NewManager(context.Background(), Config{ServiceName: "test", SpanProcessor: recorder})
	require.NoError(t, err)
	SetDefault(mgr)
	t.Cleanup(func() {
		SetDefault(nil)
		_ = mgr.Shutdown(context.Background())
	})

	_, ok := StartSpan(context.Background(), "ok.span")
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), "failed.span")
	EndSpan(failed, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ok.span", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
}

func TestStartSpanWithoutManager(t *testing.T) {
	SetDefault(nil)
	ctx, span := StartSpan(context.Background(), "noop")
	assert.NotNil(t, ctx)
	EndSpan(span, nil)
	EndSpan(nil, errors.New("ignored"))
}

func TestSanitizeAttributes(t *testing.T) {
	long := strings.Repeat("x", maxAttributeLength+10)
	got := SanitizeAttributes(
		attribute.String("llm.api_key", "sk-secret"),
		attribute.String("prompt", long),
		attribute.Int("llm.tools_count", 3),
	)
	require.Len(t, got, 3)
	assert.Equal(t, redacted, got[0].Value.AsString())
	assert.Len(t, got[1].Value.AsString(), maxAttributeLength+3)
	assert.Equal(t, int64(3), got[2].Value.AsInt64())
}
