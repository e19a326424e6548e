// Package telemetry wires OpenTelemetry metrics for circuit breaker
// state, router dispatch latency and stream chunk counts, plus a tracer
// reachable through StartSpan, following the teacher's telemetry
// package layout.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func sourceIDAttr(sourceID string) attribute.KeyValue {
	return attribute.String("source_id", sourceID)
}

// Telemetry bundles the tracer and meter every instrumented component
// depends on. Export configuration (OTLP endpoint, sampling) is an
// explicit spec Non-goal; this package wires the SDK locally and leaves
// exporter selection to deployment configuration.
type Telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter

	breakerStateGauge  metric.Int64ObservableGauge
	streamChunkCounter metric.Int64Counter
	dispatchHistogram  metric.Float64Histogram
}

func New(serviceName string) *Telemetry {
	provider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(provider)

	t := &Telemetry{
		tracer: provider.Tracer(serviceName),
		meter:  otel.GetMeterProvider().Meter(serviceName),
	}

	t.streamChunkCounter, _ = t.meter.Int64Counter("sentinela.stream.chunks",
		metric.WithDescription("stream events emitted per connection"))
	t.dispatchHistogram, _ = t.meter.Float64Histogram("sentinela.agent.dispatch_ms",
		metric.WithDescription("router dispatch latency in milliseconds"))

	return t
}

// RegisterBreakerGauge wires an observable gauge reporting each source's
// circuit breaker state (0=closed, 1=open, 2=half_open) at collection
// time. snapshot is called on every export; the registry owns the actual
// breaker state and is passed in as a closure to avoid this package
// depending on the sources package.
func (t *Telemetry) RegisterBreakerGauge(snapshot func() map[string]int64) error {
	gauge, err := t.meter.Int64ObservableGauge("sentinela.source.breaker_state",
		metric.WithDescription("circuit breaker state per source: 0=closed 1=open 2=half_open"))
	if err != nil {
		return err
	}
	t.breakerStateGauge = gauge

	_, err = t.meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		for sourceID, state := range snapshot() {
			o.ObserveInt64(gauge, state, metric.WithAttributes(sourceIDAttr(sourceID)))
		}
		return nil
	}, gauge)
	return err
}

// StartSpan opens a span named name on the package tracer. The
// federation executor, router and coordinator do not call it.
func (t *Telemetry) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name)
}

func (t *Telemetry) RecordStreamChunk(ctx context.Context, eventType string) {
	if t.streamChunkCounter == nil {
		return
	}
	t.streamChunkCounter.Add(ctx, 1)
}

func (t *Telemetry) RecordDispatchLatency(ctx context.Context, ms float64) {
	if t.dispatchHistogram == nil {
		return
	}
	t.dispatchHistogram.Record(ctx, ms)
}
