// Package query executes compiled filters against a records.Store.
//
// # Paged Listings
//
// Executor.Page returns one zero-based page of matches plus the total match
// count:
//
//	exec := query.NewExecutor(records.AuditEventKind, stores.AuditEvents, collector)
//	page, err := exec.Page(ctx, criteria.Compile(loc), query.PageRequest[records.AuditEvent]{
//	    Page: 0,
//	    Size: 50,
//	})
//
// Results are ordered by the requested sort keys, or the kind's default
// order when none are given, with insertion order as the final tiebreak so
// repeated calls against unmodified data page deterministically.
//
// # Full Listings
//
// Executor.All returns every match in the same order. It has no cap; callers
// use it for exports and other bounded result sets.
//
// # Validation
//
// Validate rejects negative page indexes and sizes outside [0, MaxPageSize]
// with a *records.QueryError. ApplyDefaults fills a zero size with
// DefaultPageSize.
package query
