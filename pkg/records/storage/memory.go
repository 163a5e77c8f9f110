package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"mercator-hq/ledger/pkg/filter"
	"mercator-hq/ledger/pkg/records"
)

// memoryRow pairs a record with its insertion sequence.
type memoryRow[R any] struct {
	seq int64
	rec R
}

// MemoryStore implements records.Store in memory.
type MemoryStore[R any] struct {
	kind records.Kind[R]

	mu      sync.RWMutex
	rows    []memoryRow[R] // ascending seq
	byID    map[string]int64
	nextSeq int64
}

// NewMemoryStore creates an empty in-memory store for kind.
func NewMemoryStore[R any](kind records.Kind[R]) *MemoryStore[R] {
	return &MemoryStore[R]{
		kind: kind,
		byID: make(map[string]int64),
	}
}

// Insert stores a copy of rec, assigning an ID when it has none.
func (s *MemoryStore[R]) Insert(ctx context.Context, rec *R) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kind.CheckTimestamps(rec); err != nil {
		return records.NewStorageError("memory", s.kind.Name(), "insert", err)
	}
	id := s.kind.EnsureID(rec)
	if _, exists := s.byID[id]; exists {
		return records.NewStorageError("memory", s.kind.Name(), "insert",
			fmt.Errorf("%w: %q", records.ErrDuplicateID, id))
	}

	s.nextSeq++
	s.rows = append(s.rows, memoryRow[R]{seq: s.nextSeq, rec: *rec})
	s.byID[id] = s.nextSeq

	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStore[R]) Get(ctx context.Context, id string) (*R, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.byID[id]
	if !ok {
		return nil, records.NewNotFoundError(s.kind.Name(), id)
	}

	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].seq >= seq })
	rec := s.rows[i].rec
	return &rec, nil
}

// Find returns copies of matching records, ordered and windowed per opts.
func (s *MemoryStore[R]) Find(ctx context.Context, f filter.Composite[R], opts records.FindOptions[R]) ([]R, error) {
	s.mu.RLock()
	matches := s.matching(f)
	s.mu.RUnlock()

	// matches is in seq order, so a stable sort keeps insertion order on ties.
	if len(opts.Order) > 0 {
		slices.SortStableFunc(matches, func(a, b R) int {
			for _, o := range opts.Order {
				if c := o.Compare(&a, &b); c != 0 {
					return c
				}
			}
			return 0
		})
	}

	start := min(max(opts.Offset, 0), len(matches))
	end := len(matches)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(matches))
	}

	return matches[start:end], nil
}

// Count returns the number of matching records.
func (s *MemoryStore[R]) Count(ctx context.Context, f filter.Composite[R]) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.rows {
		if f.Matches(&s.rows[i].rec) {
			n++
		}
	}
	return n, nil
}

// GroupCount counts matching records per dimension label.
func (s *MemoryStore[R]) GroupCount(ctx context.Context, dim records.Dimension[R], f filter.Composite[R], limit int) ([]records.Group, error) {
	s.mu.RLock()
	counts := make(map[string]int64)
	for i := range s.rows {
		if f.Matches(&s.rows[i].rec) {
			counts[dim.Label(&s.rows[i].rec)]++
		}
	}
	s.mu.RUnlock()

	groups := make([]records.Group, 0, len(counts))
	for label, n := range counts {
		groups = append(groups, records.Group{Label: label, Count: n})
	}
	sortGroups(groups)

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

// DeleteWhere removes matching records under the write lock and returns the
// number removed.
func (s *MemoryStore[R]) DeleteWhere(ctx context.Context, f filter.Composite[R]) (int64, error) {
	if f.MatchesAll() {
		return 0, records.NewStorageError("memory", s.kind.Name(), "delete", records.ErrUnboundedDelete)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	var deleted int64
	for _, row := range s.rows {
		if f.Matches(&row.rec) {
			delete(s.byID, s.kind.ID(&row.rec))
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	clear(s.rows[len(kept):])
	s.rows = kept

	return deleted, nil
}

// Len returns the number of stored records.
func (s *MemoryStore[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// matching returns copies of rows matching f in seq order. Caller holds the lock.
func (s *MemoryStore[R]) matching(f filter.Composite[R]) []R {
	out := make([]R, 0)
	for i := range s.rows {
		if f.Matches(&s.rows[i].rec) {
			out = append(out, s.rows[i].rec)
		}
	}
	return out
}

// sortGroups orders by count descending, then label ascending.
func sortGroups(groups []records.Group) {
	slices.SortFunc(groups, func(a, b records.Group) int {
		if a.Count != b.Count {
			if a.Count > b.Count {
				return -1
			}
			return 1
		}
		if a.Label < b.Label {
			return -1
		}
		if a.Label > b.Label {
			return 1
		}
		return 0
	})
}
