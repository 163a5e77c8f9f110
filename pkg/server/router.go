package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/query"
	"mercator-hq/ledger/pkg/server/middleware"
	"mercator-hq/ledger/pkg/telemetry/health"
)

// routes builds the router and middleware chain.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	var httpObserver middleware.HTTPObserver
	var queryObserver query.Observer
	if s.services.Metrics != nil {
		httpObserver = s.services.Metrics
		queryObserver = s.services.Metrics
	}

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Telemetry(httpObserver))

	if s.services.Health != nil {
		r.Method(http.MethodGet, s.config.Telemetry.Health.LivenessPath, s.services.Health.LivenessHandler())
		r.Method(http.MethodHead, s.config.Telemetry.Health.LivenessPath, s.services.Health.LivenessHandler())
		r.Method(http.MethodGet, s.config.Telemetry.Health.ReadinessPath, s.services.Health.ReadinessHandler())
		r.Method(http.MethodHead, s.config.Telemetry.Health.ReadinessPath, s.services.Health.ReadinessHandler())
	}
	r.Get("/version", health.VersionHandler(s.services.Version))
	if s.services.Metrics != nil && s.services.Metrics.Enabled() {
		r.Method(http.MethodGet, s.config.Telemetry.Metrics.Path, s.services.Metrics.Handler())
	}

	limits := query.Limits{
		DefaultSize: s.config.Query.DefaultPageSize,
		MaxSize:     s.config.Query.MaxPageSize,
	}
	stores := s.services.Stores

	products := &resource[records.Product]{
		kind:     records.ProductKind,
		store:    stores.Products,
		exec:     query.NewExecutor(records.ProductKind, stores.Products, queryObserver).WithLimits(limits),
		criteria: query.ProductFilter,
		prepare:  prepareProduct,
		clock:    s.clock,
		timeout:  s.config.Query.Timeout,
	}
	users := &resource[records.User]{
		kind:     records.UserKind,
		store:    stores.Users,
		exec:     query.NewExecutor(records.UserKind, stores.Users, queryObserver).WithLimits(limits),
		criteria: query.UserFilter,
		prepare:  prepareUser,
		clock:    s.clock,
		timeout:  s.config.Query.Timeout,
	}
	auditEvents := &resource[records.AuditEvent]{
		kind:     records.AuditEventKind,
		store:    stores.AuditEvents,
		exec:     query.NewExecutor(records.AuditEventKind, stores.AuditEvents, queryObserver).WithLimits(limits),
		criteria: query.AuditFilter,
		prepare:  prepareAuditEvent,
		clock:    s.clock,
		timeout:  s.config.Query.Timeout,
	}

	r.Route("/v1", func(r chi.Router) {
		if s.config.Server.RateLimit.Enabled {
			r.Use(middleware.RateLimiter(s.ctx, middleware.RateLimitConfig{
				RequestsPerSecond: s.config.Server.RateLimit.RequestsPerSecond,
				Burst:             s.config.Server.RateLimit.Burst,
			}))
		}
		r.Use(middleware.Timezone(s.location))

		r.Route("/products", products.routes)
		r.Route("/users", users.routes)
		r.Route("/audit-events", func(r chi.Router) {
			auditEvents.routes(r)
			if s.services.Sweeper != nil {
				r.Delete("/entities/{kind}/{id}", s.deleteEntityEvents)
				r.Delete("/actors/{actor}", s.deleteActorEvents)
			}
		})

		if s.services.Dashboard != nil {
			r.Get("/dashboard/stats", s.dashboardStats)
		}
		if s.services.Sweeper != nil {
			r.Post("/retention/sweep", s.retentionSweep)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}
