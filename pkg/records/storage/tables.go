package storage

import "mercator-hq/ledger/pkg/records"

// ProductTable maps records.Product onto the products table.
var ProductTable = Table[records.Product]{
	Name:    "products",
	Kind:    records.ProductKind,
	Columns: []string{"id", "sku", "name", "category", "price", "stock", "active", "created_at"},
	Values: func(p *records.Product) []any {
		return []any{p.ID, p.SKU, p.Name, p.Category, p.Price, p.Stock, p.Active, p.CreatedAt}
	},
	Scan: func(row rowScanner) (records.Product, error) {
		var p records.Product
		var createdAt int64
		err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Active, &createdAt)
		p.CreatedAt = decodeTime(createdAt)
		return p, err
	},
}

// UserTable maps records.User onto the users table.
var UserTable = Table[records.User]{
	Name:    "users",
	Kind:    records.UserKind,
	Columns: []string{"id", "username", "email", "full_name", "role", "active", "created_at"},
	Values: func(u *records.User) []any {
		return []any{u.ID, u.Username, u.Email, u.FullName, u.Role, u.Active, u.CreatedAt}
	},
	Scan: func(row rowScanner) (records.User, error) {
		var u records.User
		var createdAt int64
		err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Role, &u.Active, &createdAt)
		u.CreatedAt = decodeTime(createdAt)
		return u, err
	},
}

// AuditEventTable maps records.AuditEvent onto the audit_events table.
var AuditEventTable = Table[records.AuditEvent]{
	Name:    "audit_events",
	Kind:    records.AuditEventKind,
	Columns: []string{"id", "actor", "operation", "entity_kind", "entity_id", "success", "details", "timestamp"},
	Values: func(e *records.AuditEvent) []any {
		return []any{e.ID, e.Actor, e.Operation, e.EntityKind, e.EntityID, e.Success, e.Details, e.Timestamp}
	},
	Scan: func(row rowScanner) (records.AuditEvent, error) {
		var e records.AuditEvent
		var ts int64
		err := row.Scan(&e.ID, &e.Actor, &e.Operation, &e.EntityKind, &e.EntityID, &e.Success, &e.Details, &ts)
		e.Timestamp = decodeTime(ts)
		return e, err
	},
}

// Stores bundles one store per entity kind.
type Stores struct {
	Products    records.Store[records.Product]
	Users       records.Store[records.User]
	AuditEvents records.Store[records.AuditEvent]
}

// NewSQLiteStores creates SQLite-backed stores for every kind on db.
func NewSQLiteStores(db *SQLite) *Stores {
	return &Stores{
		Products:    NewSQLiteStore(db, ProductTable),
		Users:       NewSQLiteStore(db, UserTable),
		AuditEvents: NewSQLiteStore(db, AuditEventTable),
	}
}

// NewMemoryStores creates in-memory stores for every kind.
func NewMemoryStores() *Stores {
	return &Stores{
		Products:    NewMemoryStore(records.ProductKind),
		Users:       NewMemoryStore(records.UserKind),
		AuditEvents: NewMemoryStore(records.AuditEventKind),
	}
}
