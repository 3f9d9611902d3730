// Package server exposes the scheduler's status endpoints over HTTP.
//
// Routes:
//
//	/metrics  Prometheus exposition of the metrics.Collector registry
//	/healthz  liveness
//	/readyz   readiness, running every registered health check
//
// The server is started by the schedule command and shut down when its
// context is cancelled:
//
//	srv := server.NewServer(server.Config{ListenAddress: "127.0.0.1:9464"}, collector, checker, logger)
//	err := srv.Start(ctx)
package server
