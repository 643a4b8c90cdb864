package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceCarrier is a serialisable snapshot of the W3C trace context. Work that
// outlives its request (queued notifications) keeps one instead of the
// request context.
type TraceCarrier struct {
	TraceParent string
	TraceState  string
}

func CaptureTrace(ctx context.Context) TraceCarrier {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceCarrier{TraceParent: carrier["traceparent"], TraceState: carrier["tracestate"]}
}

// Restore returns ctx with the captured span context as remote parent.
func (c TraceCarrier) Restore(ctx context.Context) context.Context {
	if c.TraceParent == "" && c.TraceState == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{
		"traceparent": c.TraceParent,
		"tracestate":  c.TraceState,
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
