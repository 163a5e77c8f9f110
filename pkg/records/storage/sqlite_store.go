package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"mercator-hq/ledger/pkg/filter"
	"mercator-hq/ledger/pkg/records"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Table maps an entity kind onto a SQL table. Columns exclude the seq column,
// which the table always carries as its insertion-order key.
type Table[R any] struct {
	Name    string
	Kind    records.Kind[R]
	Columns []string
	Values  func(*R) []any
	Scan    func(rowScanner) (R, error)
}

// SQLiteStore implements records.Store over one table.
type SQLiteStore[R any] struct {
	db     *SQLite
	table  Table[R]
	logger *slog.Logger
}

// NewSQLiteStore creates a store for table on db.
func NewSQLiteStore[R any](db *SQLite, table Table[R]) *SQLiteStore[R] {
	return &SQLiteStore[R]{
		db:     db,
		table:  table,
		logger: slog.Default().With("component", "records.storage.sqlite", "kind", table.Kind.Name()),
	}
}

// Insert persists rec, assigning an ID when it has none.
func (s *SQLiteStore[R]) Insert(ctx context.Context, rec *R) error {
	if err := s.table.Kind.CheckTimestamps(rec); err != nil {
		return s.storageError("insert", err)
	}
	s.table.Kind.EnsureID(rec)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.table.Columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table.Name, strings.Join(s.table.Columns, ", "), placeholders)

	values := s.table.Values(rec)
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = encodeValue(v)
	}

	if _, err := s.db.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: %q: %v", records.ErrDuplicateID, s.table.Kind.ID(rec), err)
		}
		return s.storageError("insert", err)
	}
	return nil
}

// isUniqueViolation matches the constraint message both drivers report.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Get returns the record with the given ID.
func (s *SQLiteStore[R]) Get(ctx context.Context, id string) (*R, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(s.table.Columns, ", "), s.table.Name)

	rec, err := s.table.Scan(s.db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, records.NewNotFoundError(s.table.Kind.Name(), id)
	}
	if err != nil {
		return nil, s.storageError("get", err)
	}
	return &rec, nil
}

// Find returns matching records ordered by opts.Order, then seq.
func (s *SQLiteStore[R]) Find(ctx context.Context, f filter.Composite[R], opts records.FindOptions[R]) ([]R, error) {
	where, args := buildWhereClause(f)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", strings.Join(s.table.Columns, ", "), s.table.Name, where)
	sb.WriteString(buildOrderClause(opts.Order))

	switch {
	case opts.Limit > 0:
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, opts.Limit, max(opts.Offset, 0))
	case opts.Offset > 0:
		sb.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, opts.Offset)
	}

	rows, err := s.db.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, s.storageError("find", err)
	}
	defer rows.Close()

	results := make([]R, 0)
	for rows.Next() {
		rec, err := s.table.Scan(rows)
		if err != nil {
			return nil, s.storageError("scan", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("find", err)
	}

	return results, nil
}

// Count returns the number of matching records.
func (s *SQLiteStore[R]) Count(ctx context.Context, f filter.Composite[R]) (int64, error) {
	where, args := buildWhereClause(f)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table.Name, where)

	var count int64
	if err := s.db.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.storageError("count", err)
	}
	return count, nil
}

// GroupCount pushes grouping into SQLite.
func (s *SQLiteStore[R]) GroupCount(ctx context.Context, dim records.Dimension[R], f filter.Composite[R], limit int) ([]records.Group, error) {
	labelExpr, labelArgs := dimensionExpr(dim)
	where, whereArgs := buildWhereClause(f)

	query := fmt.Sprintf("SELECT %s AS label, COUNT(*) AS n FROM %s%s GROUP BY label ORDER BY n DESC, label ASC",
		labelExpr, s.table.Name, where)
	args := append(labelArgs, whereArgs...)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.storageError("group", err)
	}
	defer rows.Close()

	groups := make([]records.Group, 0)
	for rows.Next() {
		var g records.Group
		if err := rows.Scan(&g.Label, &g.Count); err != nil {
			return nil, s.storageError("scan", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("group", err)
	}

	return groups, nil
}

// DeleteWhere deletes matching records in one transaction and returns the
// statement's affected-row count.
func (s *SQLiteStore[R]) DeleteWhere(ctx context.Context, f filter.Composite[R]) (int64, error) {
	if f.MatchesAll() {
		return 0, s.storageError("delete", records.ErrUnboundedDelete)
	}

	where, args := buildWhereClause(f)
	query := fmt.Sprintf("DELETE FROM %s%s", s.table.Name, where)

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.storageError("delete", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.storageError("delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, s.storageError("delete", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, s.storageError("delete", err)
	}

	s.logger.Debug("records deleted", "count", deleted, "filter", f.String())
	return deleted, nil
}

func (s *SQLiteStore[R]) storageError(op string, err error) error {
	return records.NewStorageError("sqlite", s.table.Kind.Name(), op, err)
}

// buildWhereClause translates a composite into a WHERE clause and arguments.
// Column names come from typed field declarations, never from request input.
func buildWhereClause[R any](f filter.Composite[R]) (string, []any) {
	var conditions []string
	var args []any

	for _, p := range f.Predicates() {
		col := p.Field.Column()

		switch p.Operator {
		case filter.OperatorEquals:
			conditions = append(conditions, col+" = ?")
			args = append(args, encodeValue(p.Value))

		case filter.OperatorContains:
			text, _ := p.Value.(string)
			conditions = append(conditions, foldFunc+"("+col+") LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(strings.ToLower(text))+"%")

		case filter.OperatorBetween:
			if p.From != nil {
				conditions = append(conditions, col+" >= ?")
				args = append(args, encodeValue(p.From))
			}
			if p.To != nil {
				conditions = append(conditions, col+" <= ?")
				args = append(args, encodeValue(p.To))
			}

		case filter.OperatorIn:
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
			conditions = append(conditions, col+" IN ("+placeholders+")")
			for _, v := range p.Values {
				args = append(args, encodeValue(v))
			}

		case filter.OperatorBefore:
			conditions = append(conditions, col+" < ?")
			args = append(args, encodeValue(p.Value))
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrderClause renders sort keys followed by the seq tiebreak.
func buildOrderClause[R any](orders []filter.Order[R]) string {
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		dir := "ASC"
		if o.Direction == filter.Descending {
			dir = "DESC"
		}
		parts = append(parts, o.Field.Column()+" "+dir)
	}
	parts = append(parts, "seq ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

// dimensionExpr renders the label expression for a grouping dimension.
func dimensionExpr[R any](dim records.Dimension[R]) (string, []any) {
	col := dim.Field.Column()
	switch dim.Bucketing {
	case records.BucketDay:
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s / 1000000000, 'unixepoch')", col), nil
	case records.BucketFlag:
		return fmt.Sprintf("CASE WHEN %s THEN ? ELSE ? END", col), []any{dim.TrueLabel, dim.FalseLabel}
	default:
		return "CAST(" + col + " AS TEXT)", nil
	}
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// encodeValue converts Go values to their column representation. Times
// outside the storable range clamp to the reserved extremes, which keeps
// comparisons against stored values exact; the zero time takes the low one.
func encodeValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		switch {
		case x.Before(records.EarliestTimestamp):
			return int64(math.MinInt64)
		case x.After(records.LatestTimestamp):
			return int64(math.MaxInt64)
		default:
			return x.UnixNano()
		}
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

// decodeTime converts a stored unix-nanosecond value back to a UTC instant.
func decodeTime(n int64) time.Time {
	if n == math.MinInt64 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

