package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceCarrierRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	carrier := CaptureTrace(ctx)
	if carrier.TraceParent == "" {
		t.Fatal("expected traceparent to be captured")
	}

	restored := trace.SpanContextFromContext(carrier.Restore(context.Background()))
	if restored.TraceID() != traceID || !restored.IsRemote() {
		t.Fatalf("unexpected restored span context %+v", restored)
	}

	if got := (TraceCarrier{}).Restore(context.Background()); trace.SpanContextFromContext(got).IsValid() {
		t.Fatal("empty carrier should not produce a span context")
	}
}
