// Package storage implements records.Store for each entity kind.
//
// Two backends are provided:
//
//   - MemoryStore keeps records in an insertion-ordered slice guarded by a
//     RWMutex and evaluates predicates in Go. It is used by tests and by
//     single-process deployments that do not need durability.
//   - SQLiteStore translates composites into SQL against a database opened
//     with OpenSQLite. Both the cgo driver (mattn/go-sqlite3, driver name
//     "sqlite3") and the pure-Go driver (modernc.org/sqlite, driver name
//     "sqlite") are supported. The schema is managed by embedded goose
//     migrations.
//
// Both backends order results by the requested keys and then by insertion
// sequence, so repeated paged reads over unchanged data are stable.
//
// Timestamps are stored as UTC unix nanoseconds. Contains predicates use
// LOWER(column) LIKE, which folds ASCII only; MemoryStore folds full Unicode.
//
// LeaseLocker provides an advisory, TTL-bounded lock table so several
// processes sharing one database file do not run the same sweep together.
package storage
