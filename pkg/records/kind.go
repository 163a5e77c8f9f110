package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ledger/pkg/filter"
)

// Kind describes one entity kind: its name, identity and the fields that
// requests may sort by.
type Kind[R any] struct {
	name         string
	id           filter.Field[R, string]
	setID        func(*R, string)
	fields       []filter.Ref[R]
	defaultOrder []filter.Order[R]
}

// NewKind declares an entity kind. fields lists every field addressable by
// name in sort parameters and exports.
func NewKind[R any](name string, id filter.Field[R, string], setID func(*R, string), defaultOrder []filter.Order[R], fields ...filter.Ref[R]) Kind[R] {
	return Kind[R]{
		name:         name,
		id:           id,
		setID:        setID,
		fields:       fields,
		defaultOrder: defaultOrder,
	}
}

// Name returns the kind name, e.g. "products".
func (k Kind[R]) Name() string { return k.name }

// ID returns rec's identifier.
func (k Kind[R]) ID(rec *R) string { return k.id.Get(rec) }

// IDField returns the identifier field.
func (k Kind[R]) IDField() filter.Field[R, string] { return k.id }

// EnsureID assigns a new UUID to rec when it has none and returns the ID.
func (k Kind[R]) EnsureID(rec *R) string {
	if id := k.id.Get(rec); id != "" {
		return id
	}
	id := uuid.NewString()
	k.setID(rec, id)
	return id
}

// CheckTimestamps applies CheckTimestamp to every time-valued field of rec.
func (k Kind[R]) CheckTimestamps(rec *R) error {
	for _, f := range k.fields {
		if t, ok := f.Value(rec).(time.Time); ok {
			if err := CheckTimestamp(t); err != nil {
				return fmt.Errorf("%s: %w", f.Name(), err)
			}
		}
	}
	return nil
}

// Fields returns the named fields in declaration order.
func (k Kind[R]) Fields() []filter.Ref[R] {
	out := make([]filter.Ref[R], len(k.fields))
	copy(out, k.fields)
	return out
}

// Field looks up a field by its public name.
func (k Kind[R]) Field(name string) (filter.Ref[R], bool) {
	for _, f := range k.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return filter.Ref[R]{}, false
}

// DefaultOrder is applied when a request carries no sort keys.
func (k Kind[R]) DefaultOrder() []filter.Order[R] {
	out := make([]filter.Order[R], len(k.defaultOrder))
	copy(out, k.defaultOrder)
	return out
}

// ParseOrder parses sort specs of the form "field" or "field,asc|desc".
func (k Kind[R]) ParseOrder(specs []string) ([]filter.Order[R], error) {
	var orders []filter.Order[R]
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		name, dir, _ := strings.Cut(spec, ",")
		field, ok := k.Field(strings.TrimSpace(name))
		if !ok {
			return nil, NewQueryError(k.name, "sort", fmt.Errorf("unknown sort field %q", name))
		}
		direction, err := filter.ParseDirection(dir)
		if err != nil {
			return nil, NewQueryError(k.name, "sort", err)
		}
		orders = append(orders, filter.Order[R]{Field: field, Direction: direction})
	}
	return orders, nil
}
