package metrics

import (
	"time"

	"chefops/cookbook-cleaner/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	RunSucceeded   = "success"
	RunPartial     = "partial"
	RunUnavailable = "unavailable"
	RunFailed      = "failed"
)

// RunMetrics tracks whole cleanup runs.
//
// Metrics:
//   - cookbook_cleaner_runs_total: Runs by mode and outcome
//   - cookbook_cleaner_run_duration_seconds: Run duration histogram
//   - cookbook_cleaner_last_success_timestamp_seconds: Completion time of the last successful run
//   - cookbook_cleaner_inventory_cookbooks: Cookbooks seen by the last run
//   - cookbook_cleaner_inventory_versions: Versions seen by the last run
type RunMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	lastSuccess      prometheus.Gauge
	inventoryBooks   prometheus.Gauge
	inventoryVersion prometheus.Gauge
}

// NewRunMetrics creates and registers run metrics with the provided registry.
func NewRunMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total number of cleanup runs",
			},
			[]string{"mode", "outcome"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of cleanup runs in seconds",
				Buckets:   cfg.RunDurationBuckets,
			},
			[]string{"mode"},
		),

		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last cleanup run that finished without errors",
			},
		),

		inventoryBooks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "inventory_cookbooks",
				Help:      "Number of cookbooks on the server at the last run",
			},
		),

		inventoryVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "inventory_versions",
				Help:      "Number of cookbook versions on the server at the last run",
			},
		),
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.runDuration,
		rm.lastSuccess,
		rm.inventoryBooks,
		rm.inventoryVersion,
	)

	return rm
}

// RecordRun records a finished run. mode is "dry_run" or "destructive".
func (c *Collector) RecordRun(mode, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.run.runsTotal.WithLabelValues(mode, outcome).Inc()
	c.run.runDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if outcome == RunSucceeded {
		c.run.lastSuccess.SetToCurrentTime()
	}
}

// SetInventory records the size of the inventory read by a run.
func (c *Collector) SetInventory(cookbooks, versions int) {
	if !c.enabled() {
		return
	}

	c.run.inventoryBooks.Set(float64(cookbooks))
	c.run.inventoryVersion.Set(float64(versions))
}
