// Package health provides liveness and readiness probes.
//
// Liveness answers 200 whenever the process can serve HTTP. Readiness runs
// the registered checks (database ping, retention scheduler) concurrently,
// each bounded by the checker's timeout, and answers 503 when any fails.
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("storage", health.StorageCheck(db))
//	checker.RegisterCheck("scheduler", health.SchedulerCheck(scheduler.IsRunning))
package health
