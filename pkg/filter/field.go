package filter

import (
	"strings"
	"time"
)

// Ref is the type-erased form of a field, used by predicates, orderings and
// storage backends that only need the name, column and accessor.
type Ref[R any] struct {
	name   string
	column string
	get    func(*R) any
}

// Name returns the field's public name, as used in sort parameters.
func (r Ref[R]) Name() string { return r.name }

// Column returns the storage column backing the field.
func (r Ref[R]) Column() string { return r.column }

// Value reads the field from rec.
func (r Ref[R]) Value(rec *R) any { return r.get(rec) }

// IsZero reports whether r was never initialised.
func (r Ref[R]) IsZero() bool { return r.get == nil }

// Field is a typed attribute of entity R holding values of type V.
type Field[R any, V Value] struct {
	ref Ref[R]
	get func(*R) V
}

// NewField declares a field. name is the public name; column is the storage column.
func NewField[R any, V Value](name, column string, get func(*R) V) Field[R, V] {
	return Field[R, V]{
		ref: Ref[R]{
			name:   name,
			column: column,
			get:    func(rec *R) any { return get(rec) },
		},
		get: get,
	}
}

// Ref returns the type-erased field.
func (f Field[R, V]) Ref() Ref[R] { return f.ref }

// Name returns the field's public name.
func (f Field[R, V]) Name() string { return f.ref.name }

// Get reads the typed value from rec.
func (f Field[R, V]) Get(rec *R) V { return f.get(rec) }

// Equals matches records whose field equals *value. A nil value yields an
// empty clause; zero values such as false or 0 are kept.
func (f Field[R, V]) Equals(value *V) Clause[R] {
	if value == nil {
		return Clause[R]{}
	}
	return present(Predicate[R]{
		Operator: OperatorEquals,
		Field:    f.ref,
		Value:    normalize(*value),
	})
}

// Between matches records whose field lies in [from, to]. Either bound may be
// nil for a half-open range; both nil yields an empty clause.
func (f Field[R, V]) Between(from, to *V) Clause[R] {
	if from == nil && to == nil {
		return Clause[R]{}
	}
	p := Predicate[R]{Operator: OperatorBetween, Field: f.ref}
	if from != nil {
		p.From = normalize(*from)
	}
	if to != nil {
		p.To = normalize(*to)
	}
	return present(p)
}

// In matches records whose field equals any of values. A nil or empty slice
// yields an empty clause, never a filter that excludes everything.
func (f Field[R, V]) In(values []V) Clause[R] {
	if len(values) == 0 {
		return Clause[R]{}
	}
	set := make([]any, len(values))
	for i, v := range values {
		set[i] = normalize(v)
	}
	return present(Predicate[R]{
		Operator: OperatorIn,
		Field:    f.ref,
		Values:   set,
	})
}

// Asc orders by the field ascending.
func (f Field[R, V]) Asc() Order[R] { return Order[R]{Field: f.ref, Direction: Ascending} }

// Desc orders by the field descending.
func (f Field[R, V]) Desc() Order[R] { return Order[R]{Field: f.ref, Direction: Descending} }

// TextField is a string field that also supports substring search.
type TextField[R any] struct {
	Field[R, string]
}

// NewTextField declares a string field with Contains support.
func NewTextField[R any](name, column string, get func(*R) string) TextField[R] {
	return TextField[R]{Field: NewField(name, column, get)}
}

// Contains matches records whose field contains the trimmed text, ignoring
// case. A nil or blank text yields an empty clause.
func (f TextField[R]) Contains(text *string) Clause[R] {
	if text == nil {
		return Clause[R]{}
	}
	trimmed := strings.TrimSpace(*text)
	if trimmed == "" {
		return Clause[R]{}
	}
	return present(Predicate[R]{
		Operator: OperatorContains,
		Field:    f.ref,
		Value:    trimmed,
	})
}

// DateField is a timestamp field whose ranges cover whole calendar days.
type DateField[R any] struct {
	Field[R, time.Time]
}

// NewDateField declares a timestamp field.
func NewDateField[R any](name, column string, get func(*R) time.Time) DateField[R] {
	return DateField[R]{Field: NewField(name, column, get)}
}

// Between matches records from the start of from's day to the end of to's
// day, evaluated in the compiler's location.
// The calendar date of each bound is read in the bound's own location.
func (f DateField[R]) Between(from, to *time.Time) Clause[R] {
	if from == nil && to == nil {
		return Clause[R]{}
	}
	p := Predicate[R]{Operator: OperatorBetween, Field: f.ref}
	if from != nil {
		p.From = *from
	}
	if to != nil {
		p.To = *to
	}
	c := present(p)
	c.wholeDays = true
	return c
}

// Since matches records at or after t, without day widening.
func (f DateField[R]) Since(t time.Time) Predicate[R] {
	return Predicate[R]{
		Operator: OperatorBetween,
		Field:    f.ref,
		From:     t.UTC(),
	}
}

// Before matches records strictly before t.
func (f DateField[R]) Before(t time.Time) Predicate[R] {
	return Predicate[R]{
		Operator: OperatorBefore,
		Field:    f.ref,
		Value:    t.UTC(),
	}
}

// normalize stores instants in UTC so stored and compared values agree.
func normalize[V Value](v V) any {
	if t, ok := any(v).(time.Time); ok {
		return t.UTC()
	}
	return v
}
