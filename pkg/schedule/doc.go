// Package schedule runs cleanup passes repeatedly.
//
// Scheduler wraps robfig/cron with a skip-if-still-running guard and keeps
// the outcome of the last run for the readiness check. Service adds the
// status server and rebuilds the job whenever the configuration file
// changes, so a long-running scheduler picks up a new environment,
// retention count or cron expression without a restart.
package schedule
