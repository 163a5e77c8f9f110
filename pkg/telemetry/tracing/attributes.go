package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys use the "ledger.*" namespace. HTTP attributes follow the
// OpenTelemetry semantic conventions.
const (
	// Record attributes
	AttrKind   = "ledger.kind"
	AttrFilter = "ledger.filter"

	// Query attributes
	AttrPage     = "ledger.page"
	AttrPageSize = "ledger.page_size"
	AttrResults  = "ledger.results"

	// Retention attributes
	AttrTrigger = "ledger.retention.trigger"
	AttrCutoff  = "ledger.retention.cutoff"
	AttrDeleted = "ledger.retention.deleted"

	// Dashboard attributes
	AttrTimeRange = "ledger.dashboard.time_range"
	AttrSince     = "ledger.dashboard.since"

	// Request attributes
	AttrRequestID = "ledger.request_id"
	AttrTimezone  = "ledger.timezone"

	// HTTP attributes
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
)

// SetHTTPAttributes records the route and response status of a request span.
func SetHTTPAttributes(span trace.Span, method, route string, status int) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatusCode, status),
	)
	if status >= 500 {
		span.SetStatus(codes.Error, "server error")
	}
}

// SetError marks the span as failed and records the error.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
	span.RecordError(err)
}

// SetStatus sets the span status from err: Ok when nil, Error otherwise.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
