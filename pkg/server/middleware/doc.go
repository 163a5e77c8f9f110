// Package middleware provides the HTTP middleware chain for the ledger API.
//
// The server wires the handlers outermost first:
//
//	Recovery -> RequestID -> Telemetry -> RateLimiter -> Timezone -> router
//
// RequestID stores the X-Request-ID header (or a generated UUID) in the
// request context through logging.WithRequestID, so every log line written
// with a context-aware slog call carries it.
//
// Telemetry starts an "http.request" span from any incoming W3C trace
// context, logs one line per request and feeds the HTTP metrics. The route
// label is the chi route pattern, not the raw path, to keep cardinality bounded.
//
// Timezone resolves the X-Timezone header into a *time.Location used when
// date-only filter bounds are widened to whole days. Unknown zones are
// rejected with 400 before any handler runs.
//
// RateLimiter enforces a per-client token bucket keyed on the remote address
// and answers 429 with a Retry-After header when a client runs dry.
package middleware
