package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/filter"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/export"
	"mercator-hq/ledger/pkg/telemetry/tracing"
)

// deleteBatchSize bounds the IDs bound into one archived-sweep delete.
const deleteBatchSize = 500

// Sweep triggers, used as metric labels.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
	TriggerEntity    = "entity"
	TriggerActor     = "actor"
)

// Observer receives the outcome of every sweep.
type Observer interface {
	ObserveSweep(kind, trigger string, deleted int64, err error)
}

// Options are optional sweeper collaborators.
type Options struct {
	// Clock supplies "now" for policy cutoffs. Default: clock.System.
	Clock clock.Clock

	// ArchiveDir, when set, receives a JSON file of the records about to be
	// deleted before each time-based sweep.
	ArchiveDir string

	// Observer records sweep outcomes. May be nil.
	Observer Observer
}

// Result describes one policy-driven sweep.
type Result struct {
	Kind    string    `json:"kind"`
	Cutoff  time.Time `json:"cutoff"`
	Deleted int64     `json:"deleted"`
	Skipped bool      `json:"skipped"`
}

// Sweeper deletes records of one kind by age.
type Sweeper[R any] struct {
	kind   records.Kind[R]
	store  records.Store[R]
	field  filter.DateField[R]
	policy PolicyFunc
	opts   Options
	tracer trace.Tracer
	logger *slog.Logger
}

// NewSweeper creates a sweeper that ages records by field.
func NewSweeper[R any](kind records.Kind[R], store records.Store[R], field filter.DateField[R], policy PolicyFunc, opts Options) *Sweeper[R] {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if policy == nil {
		policy = StaticPolicy(Policy{})
	}
	return &Sweeper[R]{
		kind:   kind,
		store:  store,
		field:  field,
		policy: policy,
		opts:   opts,
		tracer: otel.Tracer(tracing.InstrumentationName),
		logger: slog.Default().With("component", "records.retention", "kind", kind.Name()),
	}
}

// Kind returns the name of the swept kind.
func (s *Sweeper[R]) Kind() string {
	return s.kind.Name()
}

// Sweep deletes every record whose timestamp is strictly before cutoff and
// returns how many were removed.
func (s *Sweeper[R]) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.sweep(ctx, cutoff, TriggerManual, s.policy().RetentionDays)
}

// Apply reads the current policy and sweeps if it is enabled.
func (s *Sweeper[R]) Apply(ctx context.Context, trigger string) (Result, error) {
	policy := s.policy()
	result := Result{Kind: s.kind.Name()}

	if !policy.Enabled {
		s.logger.Debug("retention disabled, skipping sweep", "trigger", trigger)
		result.Skipped = true
		return result, nil
	}
	if err := policy.Validate(); err != nil {
		err = records.NewRetentionError(s.kind.Name(), policy.RetentionDays, err)
		s.observe(trigger, 0, err)
		return result, err
	}

	result.Cutoff = policy.Cutoff(s.opts.Clock.Now())
	deleted, err := s.sweep(ctx, result.Cutoff, trigger, policy.RetentionDays)
	result.Deleted = deleted
	return result, err
}

// Run is the scheduled entry point.
func (s *Sweeper[R]) Run(ctx context.Context) error {
	_, err := s.Apply(ctx, TriggerScheduled)
	return err
}

// DeleteMatching removes records matching f outside the time policy. An
// empty filter is refused.
func (s *Sweeper[R]) DeleteMatching(ctx context.Context, f filter.Composite[R], trigger string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "records.retention.delete", trace.WithAttributes(
		attribute.String(tracing.AttrKind, s.kind.Name()),
		attribute.String(tracing.AttrTrigger, trigger),
		attribute.String(tracing.AttrFilter, f.String()),
	))
	defer span.End()

	deleted, err := s.store.DeleteWhere(ctx, f)
	if err != nil {
		err = records.NewRetentionError(s.kind.Name(), 0, err)
	}
	span.SetAttributes(attribute.Int64(tracing.AttrDeleted, deleted))
	tracing.SetError(span, err)
	tracing.SetStatus(span, err)
	s.observe(trigger, deleted, err)

	if err != nil {
		return 0, err
	}
	s.logger.Info("targeted delete completed", "trigger", trigger, "filter", f.String(), "deleted_count", deleted)
	return deleted, nil
}

func (s *Sweeper[R]) sweep(ctx context.Context, cutoff time.Time, trigger string, retentionDays int) (deleted int64, err error) {
	ctx, span := s.tracer.Start(ctx, "records.retention.sweep", trace.WithAttributes(
		attribute.String(tracing.AttrKind, s.kind.Name()),
		attribute.String(tracing.AttrTrigger, trigger),
		attribute.String(tracing.AttrCutoff, cutoff.UTC().Format(time.RFC3339)),
	))
	defer func() {
		span.SetAttributes(attribute.Int64(tracing.AttrDeleted, deleted))
		tracing.SetError(span, err)
		tracing.SetStatus(span, err)
		span.End()
		s.observe(trigger, deleted, err)
	}()

	older := filter.Where(s.field.Before(cutoff))

	if s.opts.ArchiveDir != "" {
		ids, err := s.archive(ctx, older, cutoff)
		if err != nil {
			return 0, records.NewRetentionError(s.kind.Name(), retentionDays, err)
		}
		deleted, err = s.deleteArchived(ctx, ids, cutoff)
		if err != nil {
			return deleted, records.NewRetentionError(s.kind.Name(), retentionDays, err)
		}
	} else {
		deleted, err = s.store.DeleteWhere(ctx, older)
		if err != nil {
			return 0, records.NewRetentionError(s.kind.Name(), retentionDays, err)
		}
	}

	if deleted > 0 {
		s.logger.Info("retention sweep completed",
			"trigger", trigger,
			"cutoff", cutoff,
			"deleted_count", deleted,
		)
	} else {
		s.logger.Debug("retention sweep completed, no records deleted", "trigger", trigger, "cutoff", cutoff)
	}
	return deleted, nil
}

// deleteArchived removes exactly the archived records, in batches that stay
// under SQLite's bound-parameter limit. A record that turned eligible after
// the archive was written is left for the next sweep.
func (s *Sweeper[R]) deleteArchived(ctx context.Context, ids []string, cutoff time.Time) (int64, error) {
	var deleted int64
	for start := 0; start < len(ids); start += deleteBatchSize {
		batch := ids[start:min(start+deleteBatchSize, len(ids))]
		f := filter.NewCompiler[R](time.UTC).Add(s.kind.IDField().In(batch)).Build().And(s.field.Before(cutoff))
		n, err := s.store.DeleteWhere(ctx, f)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// archive writes the records about to be swept to a JSON file and returns
// their IDs.
func (s *Sweeper[R]) archive(ctx context.Context, older filter.Composite[R], cutoff time.Time) ([]string, error) {
	recs, err := s.store.Find(ctx, older, records.FindOptions[R]{Order: []filter.Order[R]{s.field.Asc()}})
	if err != nil {
		return nil, fmt.Errorf("failed to query records for archiving: %w", err)
	}
	if len(recs) == 0 {
		s.logger.Debug("no records to archive")
		return nil, nil
	}

	if err := os.MkdirAll(s.opts.ArchiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%s.json", s.kind.Name(), cutoff.UTC().Format("20060102"), s.opts.Clock.Now().UTC().Format("150405.000000000"))
	path := filepath.Join(s.opts.ArchiveDir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	if err := export.NewJSONExporter[R](true).Export(ctx, recs, f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to export records to archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive file: %w", err)
	}

	s.logger.Info("records archived before sweep", "archive_file", path, "record_count", len(recs))

	ids := make([]string, len(recs))
	for i := range recs {
		ids[i] = s.kind.ID(&recs[i])
	}
	return ids, nil
}

func (s *Sweeper[R]) observe(trigger string, deleted int64, err error) {
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveSweep(s.kind.Name(), trigger, deleted, err)
	}
}
