// Package tracing provides OpenTelemetry tracing for cleanup runs.
//
// A run produces one root span ("cleanup.run") with a child span per
// cookbook ("cleanup.cookbook") and per Chef API call. Spans are exported
// over OTLP gRPC when telemetry.tracing.enabled is set:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: "otel-collector:4317"
//	    sampler: ratio
//	    sample_ratio: 0.5
//
// When tracing is disabled, or the *Tracer is nil, Start returns no-op
// spans. Inject adds traceparent headers to outgoing Chef requests.
package tracing
