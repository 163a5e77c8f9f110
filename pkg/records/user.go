package records

import (
	"time"

	"mercator-hq/ledger/pkg/filter"
)

// User is an account that can act on records.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Roles.
const (
	RoleAdmin  = "ADMIN"
	RoleEditor = "EDITOR"
	RoleViewer = "VIEWER"
)

// User fields.
var (
	UserID        = filter.NewField("id", "id", func(u *User) string { return u.ID })
	UserUsername  = filter.NewTextField("username", "username", func(u *User) string { return u.Username })
	UserEmail     = filter.NewTextField("email", "email", func(u *User) string { return u.Email })
	UserFullName  = filter.NewTextField("full_name", "full_name", func(u *User) string { return u.FullName })
	UserRole      = filter.NewField("role", "role", func(u *User) string { return u.Role })
	UserActive    = filter.NewField("active", "active", func(u *User) bool { return u.Active })
	UserCreatedAt = filter.NewDateField("created_at", "created_at", func(u *User) time.Time { return u.CreatedAt })
)

// UserKind describes users. Listings default to username order.
var UserKind = NewKind("users", UserID,
	func(u *User, id string) { u.ID = id },
	[]filter.Order[User]{UserUsername.Asc()},
	UserID.Ref(), UserUsername.Ref(), UserEmail.Ref(), UserFullName.Ref(),
	UserRole.Ref(), UserActive.Ref(), UserCreatedAt.Ref(),
)

// UserCriteria is the sparse filter for user listings.
type UserCriteria struct {
	Username     *string    `json:"username,omitempty"`
	Email        *string    `json:"email,omitempty"`
	FullName     *string    `json:"full_name,omitempty"`
	Roles        []string   `json:"roles,omitempty"`
	Active       *bool      `json:"active,omitempty"`
	CreatedFrom  *time.Time `json:"created_from,omitempty"`
	CreatedUntil *time.Time `json:"created_until,omitempty"`
}

// Compile maps the criteria to a composite; date bounds widen in loc.
func (c UserCriteria) Compile(loc *time.Location) filter.Composite[User] {
	return filter.NewCompiler[User](loc).
		Add(UserUsername.Contains(c.Username)).
		Add(UserEmail.Contains(c.Email)).
		Add(UserFullName.Contains(c.FullName)).
		Add(UserRole.In(c.Roles)).
		Add(UserActive.Equals(c.Active)).
		Add(UserCreatedAt.Between(c.CreatedFrom, c.CreatedUntil)).
		Build()
}
