package records

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/ledger/pkg/filter"
)

// FindOptions controls ordering and windowing for Store.Find.
type FindOptions[R any] struct {
	// Order lists sort keys. Backends always append insertion order as the
	// final tiebreak.
	Order []filter.Order[R]

	// Offset skips that many matches.
	Offset int

	// Limit caps the result; zero means no cap.
	Limit int
}

// Bucketing controls how a dimension turns a field value into a label.
type Bucketing string

const (
	// BucketValue labels by the field value itself.
	BucketValue Bucketing = "value"

	// BucketDay labels a timestamp by its UTC calendar date (YYYY-MM-DD).
	BucketDay Bucketing = "day"

	// BucketFlag labels a boolean with TrueLabel or FalseLabel.
	BucketFlag Bucketing = "flag"
)

// Dimension groups records for aggregate counts.
type Dimension[R any] struct {
	Name       string
	Field      filter.Ref[R]
	Bucketing  Bucketing
	TrueLabel  string
	FalseLabel string
}

// Label returns the bucket label for rec.
func (d Dimension[R]) Label(rec *R) string {
	v := d.Field.Value(rec)
	switch d.Bucketing {
	case BucketDay:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.DateOnly)
		}
	case BucketFlag:
		if b, ok := v.(bool); ok {
			if b {
				return d.TrueLabel
			}
			return d.FalseLabel
		}
	}
	return fmt.Sprint(v)
}

// Group is one aggregate bucket.
type Group struct {
	Label string
	Count int64
}

// Store is the persistence contract for one entity kind.
//
// Implementations must be safe for concurrent use. Reads observe at least a
// snapshot taken at the start of the call.
type Store[R any] interface {
	// Insert persists rec, assigning an ID when it has none.
	Insert(ctx context.Context, rec *R) error

	// Get returns the record with the given ID or an error matching ErrNotFound.
	Get(ctx context.Context, id string) (*R, error)

	// Find returns records matching f, ordered by opts.Order then insertion order.
	Find(ctx context.Context, f filter.Composite[R], opts FindOptions[R]) ([]R, error)

	// Count returns the number of records matching f.
	Count(ctx context.Context, f filter.Composite[R]) (int64, error)

	// GroupCount counts records matching f per dimension label, ordered by
	// count descending then label ascending. limit > 0 keeps the first limit groups.
	GroupCount(ctx context.Context, dim Dimension[R], f filter.Composite[R], limit int) ([]Group, error)

	// DeleteWhere atomically removes records matching f and returns how many
	// were removed. An empty composite is rejected with ErrUnboundedDelete.
	DeleteWhere(ctx context.Context, f filter.Composite[R]) (int64, error)
}
