package tracing

import (
	"context"
	"net/http"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Environment variables through which a parent process, typically a CI
// job, hands its trace context to the cleaner.
const (
	TraceParentEnv = "TRACEPARENT"
	TraceStateEnv  = "TRACESTATE"
)

// Inject writes the trace context from ctx into outgoing HTTP headers
// using the global propagator. Without an active span nothing is written.
func Inject(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// ContextFromEnvironment returns ctx carrying the remote span context
// described by TRACEPARENT and TRACESTATE, so spans started from it join
// the caller's trace. ctx is returned unchanged when TRACEPARENT is unset
// or malformed.
func ContextFromEnvironment(ctx context.Context) context.Context {
	parent := os.Getenv(TraceParentEnv)
	if parent == "" {
		return ctx
	}

	carrier := propagation.MapCarrier{"traceparent": parent}
	if state := os.Getenv(TraceStateEnv); state != "" {
		carrier["tracestate"] = state
	}
	return propagation.TraceContext{}.Extract(ctx, carrier)
}
