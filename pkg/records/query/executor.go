package query

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ledger/pkg/filter"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/telemetry/tracing"
)

// Observer receives the outcome of every executed query.
type Observer interface {
	ObserveQuery(kind, operation string, duration time.Duration, results int, err error)
}

// Executor runs listings for one entity kind. It only reads from the store.
type Executor[R any] struct {
	kind     records.Kind[R]
	store    records.Store[R]
	observer Observer
	limits   Limits
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewExecutor creates an executor. observer may be nil.
func NewExecutor[R any](kind records.Kind[R], store records.Store[R], observer Observer) *Executor[R] {
	return &Executor[R]{
		kind:     kind,
		store:    store,
		observer: observer,
		limits:   DefaultLimits(),
		tracer:   otel.Tracer(tracing.InstrumentationName),
		logger:   slog.Default().With("component", "records.query", "kind", kind.Name()),
	}
}

// WithLimits replaces the page size limits. It must be called before the
// executor is shared.
func (e *Executor[R]) WithLimits(l Limits) *Executor[R] {
	e.limits = l.normalized()
	return e
}

// Kind returns the entity kind this executor serves.
func (e *Executor[R]) Kind() records.Kind[R] {
	return e.kind
}

// Page returns one page of records matching f together with the total count.
func (e *Executor[R]) Page(ctx context.Context, f filter.Composite[R], req PageRequest[R]) (result *Page[R], err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "records.query.page", trace.WithAttributes(
		attribute.String(tracing.AttrKind, e.kind.Name()),
		attribute.String(tracing.AttrFilter, f.String()),
		attribute.Int(tracing.AttrPage, req.Page),
		attribute.Int(tracing.AttrPageSize, req.Size),
	))
	defer func() {
		n := 0
		if result != nil {
			n = len(result.Items)
		}
		e.finish(span, "page", start, n, err)
	}()

	if err := e.limits.Validate(e.kind.Name(), req.Page, req.Size); err != nil {
		return nil, err
	}
	applyDefaults(e.kind, &req, e.limits)

	total, err := e.store.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]R, 0)
	if int64(req.Offset()) < total {
		items, err = e.store.Find(ctx, f, records.FindOptions[R]{
			Order:  req.Order,
			Offset: req.Offset(),
			Limit:  req.Size,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Page[R]{
		Items:      items,
		Page:       req.Page,
		Size:       req.Size,
		Total:      total,
		TotalPages: totalPages(total, req.Size),
	}, nil
}

// All returns every record matching f, ordered by order or the kind's
// default order.
func (e *Executor[R]) All(ctx context.Context, f filter.Composite[R], order []filter.Order[R]) (items []R, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "records.query.all", trace.WithAttributes(
		attribute.String(tracing.AttrKind, e.kind.Name()),
		attribute.String(tracing.AttrFilter, f.String()),
	))
	defer func() { e.finish(span, "all", start, len(items), err) }()

	if len(order) == 0 {
		order = e.kind.DefaultOrder()
	}

	return e.store.Find(ctx, f, records.FindOptions[R]{Order: order})
}

func (e *Executor[R]) finish(span trace.Span, operation string, start time.Time, results int, err error) {
	duration := time.Since(start)

	span.SetAttributes(attribute.Int(tracing.AttrResults, results))
	tracing.SetError(span, err)
	tracing.SetStatus(span, err)
	span.End()

	if e.observer != nil {
		e.observer.ObserveQuery(e.kind.Name(), operation, duration, results, err)
	}

	if err != nil {
		e.logger.Warn("query failed", "operation", operation, "error", err)
		return
	}
	e.logger.Debug("query executed", "operation", operation, "results", results, "duration", duration)
}
