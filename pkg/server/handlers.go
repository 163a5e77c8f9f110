package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/dashboard"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/export"
	"mercator-hq/ledger/pkg/records/query"
	"mercator-hq/ledger/pkg/records/retention"
	"mercator-hq/ledger/pkg/telemetry/logging"
)

// maxBodyBytes caps create request bodies.
const maxBodyBytes = 1 << 20

// prepareFunc validates a decoded record and fills server-side defaults.
type prepareFunc[R any] func(rec *R, now time.Time) error

// resource serves list, get, create and export for one record kind.
type resource[R any] struct {
	kind     records.Kind[R]
	store    records.Store[R]
	exec     *query.Executor[R]
	criteria query.FilterFunc[R]
	prepare  prepareFunc[R]
	clock    clock.Clock
	timeout  time.Duration
}

func (res *resource[R]) routes(r chi.Router) {
	r.Get("/", res.list)
	r.Post("/", res.create)
	r.Get("/export", res.export)
	r.Get("/{id}", res.get)
}

func (res *resource[R]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if res.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, res.timeout)
}

func (res *resource[R]) list(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	f, err := res.criteria(values, logging.GetTimezone(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	req, err := query.PageRequestFromValues(values, res.kind)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := res.withTimeout(r.Context())
	defer cancel()

	page, err := res.exec.Page(ctx, f, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (res *resource[R]) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := res.withTimeout(r.Context())
	defer cancel()

	rec, err := res.store.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (res *resource[R]) create(w http.ResponseWriter, r *http.Request) {
	var rec R
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if res.prepare != nil {
		if err := res.prepare(&rec, res.clock.Now()); err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error())
			return
		}
	}
	if err := res.kind.CheckTimestamps(&rec); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, err.Error())
		return
	}

	ctx, cancel := res.withTimeout(r.Context())
	defer cancel()

	if err := res.store.Insert(ctx, &rec); err != nil {
		respondError(w, r, err)
		return
	}

	id := res.kind.ID(&rec)
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+url.PathEscape(id))
	slog.InfoContext(r.Context(), "record created", "kind", res.kind.Name(), "id", id)
	writeJSON(w, http.StatusCreated, &rec)
}

func (res *resource[R]) export(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	exporter, err := export.New(values.Get("format"), res.kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidFormat, err.Error())
		return
	}
	f, err := res.criteria(values, logging.GetTimezone(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	order, err := query.OrderFromValues(values, res.kind)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx, cancel := res.withTimeout(r.Context())
	defer cancel()

	recs, err := res.exec.All(ctx, f, order)
	if err != nil {
		respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", res.kind.Name(), res.clock.Now().UTC().Format("20060102-150405"), exporter.Format())
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	// Headers are gone by now; a failure can only be logged.
	if err := exporter.Export(ctx, recs, w); err != nil {
		slog.ErrorContext(r.Context(), "export failed after response started",
			"kind", res.kind.Name(),
			"format", exporter.Format(),
			"error", err,
		)
	}
}

func prepareProduct(p *records.Product, now time.Time) error {
	p.SKU = strings.TrimSpace(p.SKU)
	if p.SKU == "" {
		return errors.New("sku is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.Price < 0 {
		return errors.New("price must not be negative")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	return nil
}

func prepareUser(u *records.User, now time.Time) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return errors.New("username is required")
	}
	u.Role = strings.ToUpper(strings.TrimSpace(u.Role))
	switch u.Role {
	case "":
		u.Role = records.RoleViewer
	case records.RoleAdmin, records.RoleEditor, records.RoleViewer:
	default:
		return fmt.Errorf("unknown role %q", u.Role)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	return nil
}

func prepareAuditEvent(e *records.AuditEvent, now time.Time) error {
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("actor is required")
	}
	e.Operation = strings.ToUpper(strings.TrimSpace(e.Operation))
	if e.Operation == "" {
		return errors.New("operation is required")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return nil
}

// dashboardStats serves GET /v1/dashboard/stats?range=.
func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	tr, err := dashboard.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRange, err.Error())
		return
	}

	ctx := r.Context()
	if s.config.Dashboard.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Dashboard.Timeout)
		defer cancel()
	}

	stats, err := s.services.Dashboard.Stats(ctx, tr)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// retentionSweep serves POST /v1/retention/sweep. Unlike scheduled runs,
// failures reach the caller.
func (s *Server) retentionSweep(w http.ResponseWriter, r *http.Request) {
	s.withSweepLease(w, r, func(ctx context.Context) (any, error) {
		return s.services.Sweeper.Apply(ctx, retention.TriggerManual)
	})
}

// DeleteResult is the body of targeted audit deletes.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

// deleteEntityEvents serves DELETE /v1/audit-events/entities/{kind}/{id}.
func (s *Server) deleteEntityEvents(w http.ResponseWriter, r *http.Request) {
	kind, id := chi.URLParam(r, "kind"), chi.URLParam(r, "id")
	if strings.TrimSpace(kind) == "" || strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidParameter, "entity kind and id are required")
		return
	}

	s.withSweepLease(w, r, func(ctx context.Context) (any, error) {
		deleted, err := s.services.Sweeper.SweepForEntity(ctx, kind, id)
		return DeleteResult{Deleted: deleted}, err
	})
}

// deleteActorEvents serves DELETE /v1/audit-events/actors/{actor}.
func (s *Server) deleteActorEvents(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	if strings.TrimSpace(actor) == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidParameter, "actor is required")
		return
	}

	s.withSweepLease(w, r, func(ctx context.Context) (any, error) {
		deleted, err := s.services.Sweeper.SweepForActor(ctx, actor)
		return DeleteResult{Deleted: deleted}, err
	})
}

// withSweepLease runs fn under the audit retention lease the scheduler and
// the CLI take, and writes its result. A held lease answers 409.
func (s *Server) withSweepLease(w http.ResponseWriter, r *http.Request, fn func(context.Context) (any, error)) {
	name := retention.LeaseName(records.AuditEventKind.Name())
	release, ok, err := s.services.Locker.TryLock(r.Context(), name, s.config.Retention.LeaseTTL)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, CodeSweepInProgress, "another retention sweep holds the lease, try again later")
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(r.Context())); err != nil {
			s.logger.WarnContext(r.Context(), "failed to release retention lease", "lease", name, "error", err)
		}
	}()

	result, err := fn(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
