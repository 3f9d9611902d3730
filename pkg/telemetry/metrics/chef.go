package metrics

import (
	"strconv"
	"time"

	"chefops/cookbook-cleaner/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ChefMetrics tracks Chef server API calls.
//
// Metrics:
//   - cookbook_cleaner_chef_requests_total: API requests by method and status code
//   - cookbook_cleaner_chef_request_duration_seconds: API request latency
type ChefMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewChefMetrics creates and registers Chef API metrics with the provided registry.
func NewChefMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ChefMetrics {
	cm := &ChefMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "chef",
				Name:      "requests_total",
				Help:      "Total number of Chef server API requests",
			},
			[]string{"method", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "chef",
				Name:      "request_duration_seconds",
				Help:      "Duration of Chef server API requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	registry.MustRegister(cm.requestsTotal, cm.requestDuration)

	return cm
}

// RecordChefRequest records one API attempt. A zero status means the
// request failed before a response arrived.
func (c *Collector) RecordChefRequest(method string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	c.chef.requestsTotal.WithLabelValues(method, code).Inc()
	c.chef.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}
