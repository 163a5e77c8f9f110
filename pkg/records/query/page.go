package query

import "mercator-hq/ledger/pkg/filter"

// PageRequest selects one page of a listing.
type PageRequest[R any] struct {
	// Page is the zero-based page index.
	Page int

	// Size is the number of items per page. Zero means DefaultPageSize.
	Size int

	// Order lists sort keys. Empty means the kind's default order.
	Order []filter.Order[R]
}

// Offset returns the index of the first item on the page.
func (r PageRequest[R]) Offset() int {
	return r.Page * r.Size
}

// Page is one page of matches.
type Page[R any] struct {
	Items      []R   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// HasNext reports whether a later page exists.
func (p *Page[R]) HasNext() bool {
	return p.Page+1 < p.TotalPages
}

func totalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
