package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on cleanup spans.
const (
	AttrRunID       = attribute.Key("cleanup.run_id")
	AttrEnvironment = attribute.Key("chef.environment")
	AttrDestructive = attribute.Key("cleanup.destructive")
	AttrRetention   = attribute.Key("cleanup.retention_count")
	AttrCookbook    = attribute.Key("chef.cookbook")
	AttrVersion     = attribute.Key("chef.cookbook.version")
	AttrPinned      = attribute.Key("chef.cookbook.pinned")
	AttrTotal       = attribute.Key("cleanup.versions.total")
	AttrKept        = attribute.Key("cleanup.versions.kept")
	AttrDeletable   = attribute.Key("cleanup.versions.deletable")
	AttrSkipReason  = attribute.Key("cleanup.skip_reason")
)

// SetRunAttributes records the parameters of a cleanup run.
func SetRunAttributes(span trace.Span, runID, environment string, retention int, destructive bool) {
	span.SetAttributes(
		AttrRunID.String(runID),
		AttrEnvironment.String(environment),
		AttrRetention.Int(retention),
		AttrDestructive.Bool(destructive),
	)
}

// SetDecisionAttributes records the retention decision for one cookbook.
func SetDecisionAttributes(span trace.Span, pinned string, total, kept, deletable int, skipReason string) {
	attrs := []attribute.KeyValue{
		AttrTotal.Int(total),
		AttrKept.Int(kept),
		AttrDeletable.Int(deletable),
	}
	if pinned != "" {
		attrs = append(attrs, AttrPinned.String(pinned))
	}
	if skipReason != "" {
		attrs = append(attrs, AttrSkipReason.String(skipReason))
	}
	span.SetAttributes(attrs...)
}
