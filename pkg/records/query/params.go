package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mercator-hq/ledger/pkg/filter"
	"mercator-hq/ledger/pkg/records"
)

// ParamError reports a malformed query parameter.
type ParamError struct {
	Param string
	Value string
	Cause error
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%q: %v", e.Param, e.Value, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ParamError) Unwrap() error {
	return e.Cause
}

// params reads typed values from a query string, remembering the first error.
type params struct {
	values url.Values
	err    error
}

func newParams(values url.Values) *params {
	return &params{values: values}
}

func (p *params) fail(name, value string, err error) {
	if p.err == nil {
		p.err = &ParamError{Param: name, Value: value, Cause: err}
	}
}

// String returns nil for an absent or blank parameter.
func (p *params) String(name string) *string {
	v := strings.TrimSpace(p.values.Get(name))
	if v == "" {
		return nil
	}
	return &v
}

// Strings accepts repeated parameters and comma-separated lists.
func (p *params) Strings(name string) []string {
	var out []string
	for _, raw := range p.values[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Upper is Strings with every value upper-cased, for enum-like fields.
func (p *params) Upper(name string) []string {
	out := p.Strings(name)
	for i, v := range out {
		out[i] = strings.ToUpper(v)
	}
	return out
}

func (p *params) Bool(name string) *bool {
	raw := p.String(name)
	if raw == nil {
		return nil
	}
	b, err := strconv.ParseBool(*raw)
	if err != nil {
		p.fail(name, *raw, fmt.Errorf("expected true or false"))
		return nil
	}
	return &b
}

func (p *params) Float(name string) *float64 {
	raw := p.String(name)
	if raw == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		p.fail(name, *raw, fmt.Errorf("expected a number"))
		return nil
	}
	return &f
}

func (p *params) Int64(name string) *int64 {
	raw := p.String(name)
	if raw == nil {
		return nil
	}
	n, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil {
		p.fail(name, *raw, fmt.Errorf("expected an integer"))
		return nil
	}
	return &n
}

// Int returns def when the parameter is absent.
func (p *params) Int(name string, def int) int {
	raw := p.String(name)
	if raw == nil {
		return def
	}
	n, err := strconv.Atoi(*raw)
	if err != nil {
		p.fail(name, *raw, fmt.Errorf("expected an integer"))
		return def
	}
	return n
}

// Date accepts YYYY-MM-DD or an RFC 3339 timestamp. Only the calendar date
// matters; date filters widen it to whole days in the caller's zone.
func (p *params) Date(name string) *time.Time {
	raw := p.String(name)
	if raw == nil {
		return nil
	}
	t, err := time.Parse(time.DateOnly, *raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, *raw); err != nil {
			p.fail(name, *raw, fmt.Errorf("expected YYYY-MM-DD or RFC 3339"))
			return nil
		}
	}
	if t.Before(records.EarliestTimestamp) || t.After(records.LatestTimestamp) {
		p.fail(name, *raw, fmt.Errorf("date must fall between %s and %s",
			records.EarliestTimestamp.Format(time.DateOnly), records.LatestTimestamp.Format(time.DateOnly)))
		return nil
	}
	return &t
}

// PageRequestFromValues reads page, size and sort. sort may repeat:
// sort=name,asc&sort=id.
func PageRequestFromValues[R any](values url.Values, kind records.Kind[R]) (PageRequest[R], error) {
	p := newParams(values)
	req := PageRequest[R]{
		Page: p.Int("page", 0),
		Size: p.Int("size", 0),
	}
	if p.err != nil {
		return req, p.err
	}
	order, err := OrderFromValues(values, kind)
	req.Order = order
	return req, err
}

// OrderFromValues reads only the sort parameter.
func OrderFromValues[R any](values url.Values, kind records.Kind[R]) ([]filter.Order[R], error) {
	return kind.ParseOrder(values["sort"])
}

// ProductCriteriaFromValues reads product filters from a query string.
func ProductCriteriaFromValues(values url.Values) (records.ProductCriteria, error) {
	p := newParams(values)
	c := records.ProductCriteria{
		SKU:          p.String("sku"),
		Name:         p.String("name"),
		Categories:   p.Strings("category"),
		MinPrice:     p.Float("min_price"),
		MaxPrice:     p.Float("max_price"),
		MinStock:     p.Int64("min_stock"),
		MaxStock:     p.Int64("max_stock"),
		Active:       p.Bool("active"),
		CreatedFrom:  p.Date("created_from"),
		CreatedUntil: p.Date("created_until"),
	}
	return c, p.err
}

// UserCriteriaFromValues reads user filters from a query string.
func UserCriteriaFromValues(values url.Values) (records.UserCriteria, error) {
	p := newParams(values)
	c := records.UserCriteria{
		Username:     p.String("username"),
		Email:        p.String("email"),
		FullName:     p.String("full_name"),
		Roles:        p.Upper("role"),
		Active:       p.Bool("active"),
		CreatedFrom:  p.Date("created_from"),
		CreatedUntil: p.Date("created_until"),
	}
	return c, p.err
}

// AuditCriteriaFromValues reads audit event filters from a query string.
// status=SUCCESS|FAILURE is accepted as an alias for success=true|false.
func AuditCriteriaFromValues(values url.Values) (records.AuditCriteria, error) {
	p := newParams(values)
	c := records.AuditCriteria{
		Actor:      p.String("actor"),
		Operations: p.Upper("operation"),
		EntityKind: p.String("entity_kind"),
		EntityID:   p.String("entity_id"),
		Success:    p.Bool("success"),
		Details:    p.String("details"),
		From:       p.Date("from"),
		Until:      p.Date("until"),
	}
	if status := p.String("status"); status != nil && c.Success == nil {
		var ok bool
		switch strings.ToUpper(*status) {
		case records.StatusSuccess:
			ok = true
		case records.StatusFailure:
		default:
			p.fail("status", *status, fmt.Errorf("expected %s or %s", records.StatusSuccess, records.StatusFailure))
		}
		if p.err == nil {
			c.Success = &ok
		}
	}
	return c, p.err
}

// FilterFunc parses listing filters from a query string. Date bounds widen
// to whole days in loc.
type FilterFunc[R any] func(values url.Values, loc *time.Location) (filter.Composite[R], error)

// ProductFilter parses product filters.
func ProductFilter(values url.Values, loc *time.Location) (filter.Composite[records.Product], error) {
	c, err := ProductCriteriaFromValues(values)
	if err != nil {
		return filter.Composite[records.Product]{}, err
	}
	return c.Compile(loc), nil
}

// UserFilter parses user filters.
func UserFilter(values url.Values, loc *time.Location) (filter.Composite[records.User], error) {
	c, err := UserCriteriaFromValues(values)
	if err != nil {
		return filter.Composite[records.User]{}, err
	}
	return c.Compile(loc), nil
}

// AuditFilter parses audit event filters.
func AuditFilter(values url.Values, loc *time.Location) (filter.Composite[records.AuditEvent], error) {
	c, err := AuditCriteriaFromValues(values)
	if err != nil {
		return filter.Composite[records.AuditEvent]{}, err
	}
	return c.Compile(loc), nil
}
