package dashboard

import (
	"context"
	"slices"
	"strings"
	"time"

	"mercator-hq/ledger/pkg/filter"
	"mercator-hq/ledger/pkg/records"
)

// ChartPoint is one labelled value in a series.
type ChartPoint struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// Aggregator counts records at or after a start instant, grouped by a
// dimension.
type Aggregator[R any] struct {
	store records.Store[R]
	field filter.DateField[R]
}

// NewAggregator creates an aggregator that scopes records by field.
func NewAggregator[R any](store records.Store[R], field filter.DateField[R]) *Aggregator[R] {
	return &Aggregator[R]{store: store, field: field}
}

// Series returns one point per observed label, ordered by value descending
// then label ascending. limit > 0 keeps the first limit points.
func (a *Aggregator[R]) Series(ctx context.Context, dim records.Dimension[R], since time.Time, limit int) ([]ChartPoint, error) {
	groups, err := a.store.GroupCount(ctx, dim, filter.Where(a.field.Since(since)), limit)
	if err != nil {
		return nil, err
	}

	points := make([]ChartPoint, len(groups))
	for i, g := range groups {
		points[i] = ChartPoint{Label: g.Label, Value: g.Count}
	}
	return points, nil
}

// SortByLabel orders points by label ascending.
func SortByLabel(points []ChartPoint) {
	slices.SortFunc(points, func(a, b ChartPoint) int {
		return strings.Compare(a.Label, b.Label)
	})
}
