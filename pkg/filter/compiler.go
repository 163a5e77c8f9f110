package filter

import (
	"time"

	"mercator-hq/ledger/pkg/clock"
)

// Clause is the result of applying a field operator to an optional input.
// An empty clause contributes nothing to the compiled composite.
type Clause[R any] struct {
	predicate Predicate[R]
	present   bool
	wholeDays bool
}

func present[R any](p Predicate[R]) Clause[R] {
	return Clause[R]{predicate: p, present: true}
}

// Present reports whether the clause carries a predicate.
func (c Clause[R]) Present() bool { return c.present }

// Compiler accumulates clauses into a Composite. It is an immutable value:
// Add never modifies the receiver, so a partially built compiler can be
// shared and extended independently.
type Compiler[R any] struct {
	loc        *time.Location
	predicates []Predicate[R]
}

// NewCompiler returns an empty compiler that widens date ranges in loc.
// A nil loc means UTC.
func NewCompiler[R any](loc *time.Location) Compiler[R] {
	if loc == nil {
		loc = time.UTC
	}
	return Compiler[R]{loc: loc}
}

// Location returns the zone used for date widening.
func (c Compiler[R]) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Add returns a compiler with every present clause appended, in order.
func (c Compiler[R]) Add(clauses ...Clause[R]) Compiler[R] {
	next := Compiler[R]{
		loc:        c.loc,
		predicates: make([]Predicate[R], len(c.predicates), len(c.predicates)+len(clauses)),
	}
	copy(next.predicates, c.predicates)

	for _, clause := range clauses {
		if !clause.present {
			continue
		}
		next.predicates = append(next.predicates, c.resolve(clause))
	}
	return next
}

// Build returns the composite of every predicate added so far.
func (c Compiler[R]) Build() Composite[R] {
	return Where(c.predicates...)
}

// resolve applies bound ordering and day widening to range clauses.
func (c Compiler[R]) resolve(clause Clause[R]) Predicate[R] {
	p := clause.predicate
	if p.Operator != OperatorBetween {
		return p
	}

	if p.From != nil && p.To != nil && Compare(p.From, p.To) > 0 {
		p.From, p.To = p.To, p.From
	}

	if clause.wholeDays {
		loc := c.Location()
		if from, ok := p.From.(time.Time); ok {
			p.From = clock.StartOfDay(from, loc).UTC()
		}
		if to, ok := p.To.(time.Time); ok {
			p.To = clock.EndOfDay(to, loc).UTC()
		}
	}
	return p
}
