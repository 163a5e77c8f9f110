// Package tracing provides OpenTelemetry tracing for the ledger service.
//
// New installs an OTLP gRPC exporter as the global tracer provider when
// tracing is enabled. Library packages never hold a *Tracer; they call
// otel.Tracer(InstrumentationName) and therefore pick up the installed
// provider, or the noop provider when tracing is off. Request logs carry
// the trace_id and span_id from LogAttrs.
//
// # Span names
//
//   - records.query.page, records.query.all: record listings
//   - records.retention.sweep: one age-based pass over a record kind
//   - records.retention.delete: a targeted delete
//   - dashboard.stats: a dashboard aggregation
//   - http.request: one API request
//
// # Sampling
//
//   - always: sample every trace
//   - never: sample none
//   - ratio: sample by trace ID hash at sample_ratio
//
// All samplers honor the parent span's decision.
package tracing
