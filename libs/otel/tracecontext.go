package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// StoredTrace is the W3C trace context persisted next to a deferred unit of
// work, such as an outbox row, so the relay continues the original trace.
type StoredTrace struct {
	Parent string
	State  string
}

// CaptureTrace reads the active span context from ctx. Both fields are empty
// when ctx carries no valid span context.
func CaptureTrace(ctx context.Context) StoredTrace {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return StoredTrace{Parent: carrier.Get("traceparent"), State: carrier.Get("tracestate")}
}

func (t StoredTrace) Empty() bool {
	return t.Parent == "" && t.State == ""
}

// Restore returns ctx with t as the remote parent span.
func (t StoredTrace) Restore(ctx context.Context) context.Context {
	if t.Empty() {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": t.Parent}
	if t.State != "" {
		carrier["tracestate"] = t.State
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
