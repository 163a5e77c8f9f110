// Package logging builds the service's slog logger.
//
// New returns a *slog.Logger writing JSON or text. Every record picks up the
// request ID and trace ID from its context, so handlers should log with the
// *Context variants:
//
//	logger.InfoContext(ctx, "listing served", "kind", "users", "results", n)
//
// With RedactPII enabled, e-mail addresses, bearer tokens and password
// assignments are masked in the message and in string attributes.
//
// The package also carries request-scoped values used across the HTTP layer:
// the request ID and the caller's time zone.
package logging
