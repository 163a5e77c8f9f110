package filter

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

// Value is the set of scalar types a field may hold.
type Value interface {
	string | int64 | float64 | bool | time.Time
}

// Compare orders two field values of the same type. It returns a negative
// number when a < b, zero when equal and a positive number when a > b.
// false sorts before true.
func Compare(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}

	// Mixed types only arise from hand-built predicates.
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// containsFold reports whether substr is within s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// formatValue renders a predicate operand for logs and String output.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "*"
	case string:
		return fmt.Sprintf("%q", x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
