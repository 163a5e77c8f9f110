package dashboard

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/telemetry/tracing"
)

// DefaultTopActors is how many actors TopActors keeps.
const DefaultTopActors = 5

// Stats holds the four audit series for one range.
type Stats struct {
	Range        TimeRange    `json:"range"`
	Since        time.Time    `json:"since"`
	LogsOverTime []ChartPoint `json:"logs_over_time"`
	ByOperation  []ChartPoint `json:"by_operation"`
	TopActors    []ChartPoint `json:"top_actors"`
	ByStatus     []ChartPoint `json:"by_status"`
}

// Observer receives the outcome of every Stats call.
type Observer interface {
	ObserveDashboard(timeRange string, duration time.Duration, err error)
}

// AuditDashboard computes audit statistics.
type AuditDashboard struct {
	agg       *Aggregator[records.AuditEvent]
	clock     clock.Clock
	topActors int
	observer  Observer
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewAuditDashboard creates a dashboard. A nil clock means clock.System;
// topActors <= 0 means DefaultTopActors. observer may be nil.
func NewAuditDashboard(store records.Store[records.AuditEvent], clk clock.Clock, topActors int, observer Observer) *AuditDashboard {
	if clk == nil {
		clk = clock.System{}
	}
	if topActors <= 0 {
		topActors = DefaultTopActors
	}
	return &AuditDashboard{
		agg:       NewAggregator(store, records.AuditTimestamp),
		clock:     clk,
		topActors: topActors,
		observer:  observer,
		tracer:    otel.Tracer(tracing.InstrumentationName),
		logger:    slog.Default().With("component", "dashboard"),
	}
}

// Stats computes the four series for r.
func (d *AuditDashboard) Stats(ctx context.Context, r TimeRange) (stats *Stats, err error) {
	if r == "" {
		r = DefaultTimeRange
	}
	since := r.Since(d.clock.Now())
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "dashboard.stats", trace.WithAttributes(
		attribute.String(tracing.AttrTimeRange, string(r)),
		attribute.String(tracing.AttrSince, since.Format(time.RFC3339)),
	))
	defer func() {
		tracing.SetError(span, err)
		tracing.SetStatus(span, err)
		span.End()
		if d.observer != nil {
			d.observer.ObserveDashboard(string(r), time.Since(start), err)
		}
	}()

	stats = &Stats{Range: r, Since: since}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		points, err := d.agg.Series(gctx, records.AuditByDay, since, 0)
		if err != nil {
			return err
		}
		SortByLabel(points)
		stats.LogsOverTime = points
		return nil
	})
	g.Go(func() error {
		points, err := d.agg.Series(gctx, records.AuditByOperation, since, 0)
		stats.ByOperation = points
		return err
	})
	g.Go(func() error {
		points, err := d.agg.Series(gctx, records.AuditByActor, since, d.topActors)
		stats.TopActors = points
		return err
	})
	g.Go(func() error {
		points, err := d.agg.Series(gctx, records.AuditByStatus, since, 0)
		stats.ByStatus = points
		return err
	})

	if err := g.Wait(); err != nil {
		d.logger.Error("failed to compute dashboard stats", "range", r, "error", err)
		return nil, err
	}

	d.logger.Debug("dashboard stats computed", "range", r, "since", since, "days", len(stats.LogsOverTime))
	return stats, nil
}
