package metrics

import (
	"chefops/cookbook-cleaner/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Cookbook outcomes.
const (
	CookbookCleaned     = "cleaned"
	CookbookNothingToDo = "nothing_to_do"
	CookbookUnpinned    = "unpinned"
	CookbookParseError  = "parse_error"
	CookbookExcluded    = "excluded"
	CookbookFailed      = "failed"
)

// CookbookMetrics tracks per-cookbook decisions and deletions. Cookbook
// names are deliberately not used as labels.
//
// Metrics:
//   - cookbook_cleaner_cookbooks_total: Cookbooks processed by outcome
//   - cookbook_cleaner_versions_planned_total: Versions fitting the deletion criteria
//   - cookbook_cleaner_versions_deleted_total: Versions actually deleted
//   - cookbook_cleaner_deletion_failures_total: Deletions rejected by the server
type CookbookMetrics struct {
	cookbooksTotal   *prometheus.CounterVec
	versionsPlanned  prometheus.Counter
	versionsDeleted  prometheus.Counter
	deletionFailures prometheus.Counter
}

// NewCookbookMetrics creates and registers cookbook metrics with the provided registry.
func NewCookbookMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CookbookMetrics {
	cm := &CookbookMetrics{
		cookbooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cookbooks_total",
				Help:      "Total number of cookbooks processed by outcome",
			},
			[]string{"outcome"},
		),

		versionsPlanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "versions_planned_total",
				Help:      "Total number of versions fitting the deletion criteria",
			},
		),

		versionsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "versions_deleted_total",
				Help:      "Total number of cookbook versions deleted",
			},
		),

		deletionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "deletion_failures_total",
				Help:      "Total number of cookbook version deletions that failed",
			},
		),
	}

	registry.MustRegister(
		cm.cookbooksTotal,
		cm.versionsPlanned,
		cm.versionsDeleted,
		cm.deletionFailures,
	)

	return cm
}

// RecordCookbook counts one processed cookbook.
func (c *Collector) RecordCookbook(outcome string) {
	if !c.enabled() {
		return
	}

	c.cookbook.cookbooksTotal.WithLabelValues(outcome).Inc()
}

// RecordPlanned adds n versions to the planned deletion count.
func (c *Collector) RecordPlanned(n int) {
	if !c.enabled() || n <= 0 {
		return
	}

	c.cookbook.versionsPlanned.Add(float64(n))
}

// RecordDeletion counts one deletion attempt.
func (c *Collector) RecordDeletion(err error) {
	if !c.enabled() {
		return
	}

	if err != nil {
		c.cookbook.deletionFailures.Inc()
		return
	}
	c.cookbook.versionsDeleted.Inc()
}
