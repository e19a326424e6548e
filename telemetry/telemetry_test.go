package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BuildsUsableTracerAndMeter(t *testing.T) {
	tel := New("sentinela-test")

	ctx, span := tel.StartSpan(context.Background(), "federation.fetch")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}

func TestTelemetry_RecordStreamChunkAndDispatchLatencyDoNotPanic(t *testing.T) {
	tel := New("sentinela-test")

	assert.NotPanics(t, func() {
		tel.RecordStreamChunk(context.Background(), "text")
		tel.RecordDispatchLatency(context.Background(), 12.5)
	})
}

func TestTelemetry_RegisterBreakerGaugeSucceeds(t *testing.T) {
	tel := New("sentinela-test")

	err := tel.RegisterBreakerGauge(func() map[string]int64 {
		return map[string]int64{"portal-transparencia": 1}
	})

	require.NoError(t, err)
}
