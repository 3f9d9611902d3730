package tracing

import (
	"fmt"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"chefops/cookbook-cleaner/pkg/config"
)

// Strategies accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// newSampler maps the configured strategy to an SDK sampler. A run that
// starts inside an existing trace (see ContextFromEnvironment) follows
// the parent's decision instead.
func newSampler(cfg *config.TracingConfig) (sdktrace.Sampler, error) {
	root := sdktrace.AlwaysSample()

	switch strings.ToLower(cfg.Sampler) {
	case "", SamplerAlways:
	case SamplerNever:
		root = sdktrace.NeverSample()
	case SamplerRatio:
		if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
			return nil, fmt.Errorf("sample ratio %v is outside [0, 1]", cfg.SampleRatio)
		}
		root = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	default:
		return nil, fmt.Errorf("unknown sampler %q (valid: always, never, ratio)", cfg.Sampler)
	}

	return sdktrace.ParentBased(root), nil
}
