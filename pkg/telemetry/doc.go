// Package telemetry groups the observability packages of cookbook-cleaner.
//
// # Components
//
//   - logging: Structured slog logging with secret redaction and run context
//   - metrics: Prometheus metrics, served over HTTP or written as a textfile
//   - tracing: OpenTelemetry spans for runs, cookbooks and Chef API calls
//   - health: Liveness and readiness endpoints for the scheduler
package telemetry
