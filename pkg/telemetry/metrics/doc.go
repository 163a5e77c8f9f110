// Package metrics exposes the ledger's Prometheus metrics.
//
// A Collector is created once at startup and passed as the observer to the
// query executors, retention sweepers and the audit dashboard, and to the
// HTTP metrics middleware. Metrics live in a dedicated registry served by
// Collector.Handler.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	exec := query.NewExecutor(records.AuditEventKind, stores.AuditEvents, collector)
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
