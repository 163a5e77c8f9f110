package query

import (
	"fmt"
	"math"

	"mercator-hq/ledger/pkg/records"
)

const (
	// DefaultPageSize is the page size used when a request leaves it unset.
	DefaultPageSize = 20

	// MaxPageSize is the largest page a single request may ask for.
	MaxPageSize = 1000
)

// Limits bound page sizes.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// DefaultLimits returns the built-in page size limits.
func DefaultLimits() Limits {
	return Limits{DefaultSize: DefaultPageSize, MaxSize: MaxPageSize}
}

func (l Limits) normalized() Limits {
	if l.MaxSize <= 0 {
		l.MaxSize = MaxPageSize
	}
	if l.DefaultSize <= 0 || l.DefaultSize > l.MaxSize {
		l.DefaultSize = min(DefaultPageSize, l.MaxSize)
	}
	return l
}

// Validate checks a page index and size. The offset of the requested page
// must fit in an int.
func (l Limits) Validate(kind string, page, size int) error {
	l = l.normalized()
	if page < 0 {
		return records.NewQueryError(kind, "page", fmt.Errorf("page must be >= 0, got %d", page))
	}
	if size < 0 {
		return records.NewQueryError(kind, "size", fmt.Errorf("size must be >= 0, got %d", size))
	}
	if size > l.MaxSize {
		return records.NewQueryError(kind, "size", fmt.Errorf("size must be <= %d, got %d", l.MaxSize, size))
	}
	if size == 0 {
		size = l.DefaultSize
	}
	if page > math.MaxInt/size {
		return records.NewQueryError(kind, "page", fmt.Errorf("page must be <= %d at size %d, got %d", math.MaxInt/size, size, page))
	}
	return nil
}

func applyDefaults[R any](kind records.Kind[R], req *PageRequest[R], l Limits) {
	if req.Size == 0 {
		req.Size = l.normalized().DefaultSize
	}
	if len(req.Order) == 0 {
		req.Order = kind.DefaultOrder()
	}
}
