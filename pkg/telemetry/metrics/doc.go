// Package metrics provides Prometheus metrics collection for cookbook-cleaner.
//
// # Metrics Categories
//
//   - Run Metrics: run count by mode and outcome, duration, last success time, inventory size
//   - Cookbook Metrics: cookbooks by outcome, planned and completed deletions, deletion failures
//   - Chef Metrics: Chef server API request count and latency
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordCookbook(metrics.CookbookCleaned)
//	collector.RecordDeletion(err)
//	collector.RecordRun("destructive", metrics.RunSucceeded, time.Since(start))
//
// # Exposition
//
// The scheduler serves Handler on the configured path. Single runs can
// write a node_exporter textfile instead:
//
//	if err := collector.WriteTextfile("/var/lib/node_exporter/cookbook_cleaner.prom"); err != nil {
//		return err
//	}
package metrics
