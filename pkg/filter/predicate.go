package filter

import (
	"fmt"
	"slices"
	"strings"
)

// Operator identifies the kind of a predicate.
type Operator string

const (
	OperatorEquals   Operator = "equals"
	OperatorContains Operator = "contains"
	OperatorBetween  Operator = "between"
	OperatorIn       Operator = "in"

	// OperatorBefore is a strict upper bound. It is only built directly,
	// never from filter criteria.
	OperatorBefore Operator = "before"
)

// Predicate is one atomic condition over a field of R.
//
// Which operands are set depends on Operator:
//   - Equals, Contains, Before: Value
//   - Between: From and/or To (nil means unbounded)
//   - In: Values
type Predicate[R any] struct {
	Operator Operator
	Field    Ref[R]
	Value    any
	From     any
	To       any
	Values   []any
}

// Matches evaluates the predicate against rec.
func (p Predicate[R]) Matches(rec *R) bool {
	actual := p.Field.Value(rec)

	switch p.Operator {
	case OperatorEquals:
		return Compare(actual, p.Value) == 0

	case OperatorContains:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		text, _ := p.Value.(string)
		return containsFold(s, text)

	case OperatorBetween:
		if p.From != nil && Compare(actual, p.From) < 0 {
			return false
		}
		if p.To != nil && Compare(actual, p.To) > 0 {
			return false
		}
		return true

	case OperatorIn:
		for _, v := range p.Values {
			if Compare(actual, v) == 0 {
				return true
			}
		}
		return false

	case OperatorBefore:
		return Compare(actual, p.Value) < 0

	default:
		return false
	}
}

// String renders the predicate for logs.
func (p Predicate[R]) String() string {
	switch p.Operator {
	case OperatorBetween:
		return fmt.Sprintf("%s between %s and %s", p.Field.Name(), formatValue(p.From), formatValue(p.To))
	case OperatorIn:
		parts := make([]string, len(p.Values))
		for i, v := range p.Values {
			parts[i] = formatValue(v)
		}
		return fmt.Sprintf("%s in (%s)", p.Field.Name(), strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%s %s %s", p.Field.Name(), p.Operator, formatValue(p.Value))
	}
}

// Composite is the conjunction of its predicates. The zero value has no
// predicates and matches every record.
type Composite[R any] struct {
	predicates []Predicate[R]
}

// Where builds a composite directly from predicates, bypassing elision.
func Where[R any](predicates ...Predicate[R]) Composite[R] {
	return Composite[R]{predicates: slices.Clone(predicates)}
}

// Predicates returns a copy of the predicates in insertion order.
func (c Composite[R]) Predicates() []Predicate[R] {
	return slices.Clone(c.predicates)
}

// Len returns the number of predicates.
func (c Composite[R]) Len() int { return len(c.predicates) }

// MatchesAll reports whether the composite has no predicates.
func (c Composite[R]) MatchesAll() bool { return len(c.predicates) == 0 }

// And returns a new composite with predicates appended.
func (c Composite[R]) And(predicates ...Predicate[R]) Composite[R] {
	out := make([]Predicate[R], 0, len(c.predicates)+len(predicates))
	out = append(out, c.predicates...)
	out = append(out, predicates...)
	return Composite[R]{predicates: out}
}

// Matches reports whether rec satisfies every predicate.
func (c Composite[R]) Matches(rec *R) bool {
	for _, p := range c.predicates {
		if !p.Matches(rec) {
			return false
		}
	}
	return true
}

// String renders the composite for logs.
func (c Composite[R]) String() string {
	if len(c.predicates) == 0 {
		return "<all>"
	}
	parts := make([]string, len(c.predicates))
	for i, p := range c.predicates {
		parts[i] = p.String()
	}
	return strings.Join(parts, " AND ")
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection parses "asc" or "desc", case-insensitively. Empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q (must be asc or desc)", s)
	}
}

// Order is one sort key.
type Order[R any] struct {
	Field     Ref[R]
	Direction Direction
}

// Compare orders a and b by this key only.
func (o Order[R]) Compare(a, b *R) int {
	c := Compare(o.Field.Value(a), o.Field.Value(b))
	if o.Direction == Descending {
		return -c
	}
	return c
}
