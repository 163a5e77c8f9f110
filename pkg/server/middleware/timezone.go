package middleware

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/telemetry/logging"
	"mercator-hq/ledger/pkg/telemetry/tracing"
)

// Timezone resolves the X-Timezone header to a location and stores it in the
// context. Requests without the header use fallback; nil means UTC.
func Timezone(fallback *time.Location) func(http.Handler) http.Handler {
	if fallback == nil {
		fallback = time.UTC
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := fallback
			if name := r.Header.Get(TimezoneHeader); name != "" {
				parsed, err := clock.LoadLocation(name)
				if err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_TIMEZONE",
						fmt.Sprintf("unknown time zone %q", name))
					return
				}
				loc = parsed
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String(tracing.AttrTimezone, loc.String()))
			next.ServeHTTP(w, r.WithContext(logging.WithTimezone(r.Context(), loc)))
		})
	}
}
