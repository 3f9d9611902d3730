package metrics

import (
	"chefops/cookbook-cleaner/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric emitted by cookbook-cleaner and
// the registry they are registered with.
//
// All Record methods are safe to call on a nil *Collector and are no-ops
// when metrics are disabled, so callers never need to guard them.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	run      *RunMetrics
	cookbook *CookbookMetrics
	chef     *ChefMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "cookbook_cleaner",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.RunDurationBuckets) == 0 {
		cfg.RunDurationBuckets = append([]float64(nil), config.DefaultRunDurationBuckets...)
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		run:      NewRunMetrics(cfg, registry),
		cookbook: NewCookbookMetrics(cfg, registry),
		chef:     NewChefMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
