// Package telemetry wires the ledger's observability stack.
//
// # Components
//
//   - logging: slog logger with request context and PII redaction
//   - metrics: Prometheus collector for queries, sweeps, dashboards and HTTP
//   - tracing: OpenTelemetry tracer provider with OTLP export
//   - health: liveness and readiness probes
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, health.NewVersionInfo(version, commit, built), os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	exec := query.NewExecutor(records.UserKind, stores.Users, tel.Metrics())
package telemetry
