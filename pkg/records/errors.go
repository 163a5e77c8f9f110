package records

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.Get when no record has the given ID.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateID is returned by Store.Insert when the ID is already taken.
var ErrDuplicateID = errors.New("duplicate record id")

// ErrUnboundedDelete is returned by Store.DeleteWhere for an empty composite.
var ErrUnboundedDelete = errors.New("refusing delete without predicates")

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is reports ErrNotFound equivalence for errors.Is.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Kind      string // entity kind
	Operation string // "insert", "find", "count", "group", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, kind=%s, operation=%s]: %v", e.Backend, e.Kind, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, kind, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Kind:      kind,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents an invalid listing request.
type QueryError struct {
	Kind  string
	Field string // offending request field, if any
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("query error [kind=%s, field=%s]: %v", e.Kind, e.Field, e.Cause)
	}
	return fmt.Sprintf("query error [kind=%s]: %v", e.Kind, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(kind, field string, cause error) *QueryError {
	return &QueryError{Kind: kind, Field: field, Cause: cause}
}

// RetentionError represents an error during a retention sweep.
type RetentionError struct {
	Kind          string
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [kind=%s, retention_days=%d]: %v", e.Kind, e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(kind string, retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		Kind:          kind,
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}

// ExportError represents an error while exporting records.
type ExportError struct {
	Format      string // "json", "csv"
	RecordCount int    // records written before the failure
	Cause       error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{
		Format:      format,
		RecordCount: recordCount,
		Cause:       cause,
	}
}
