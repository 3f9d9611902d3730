// Package health provides liveness and readiness endpoints for the
// long-running scheduler.
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("history", store.Ping)
//	checker.RegisterCheck("last_run", health.LastRunCheck(scheduler.LastRun, 48*time.Hour, registry.IsUnavailable))
//	checker.Register(mux)
//
// /healthz always answers 200 while the process runs. /readyz answers 503
// when any check fails.
package health
