// Package records defines the entity kinds served by ledger (products, users
// and audit events), their typed filter fields and criteria, and the Store
// contract that storage backends implement.
//
// Each kind exposes:
//   - the entity struct (Product, User, AuditEvent)
//   - typed fields for filtering and ordering (ProductPrice, UserRoles, ...)
//   - a Criteria struct whose Compile method is the pure mapping from sparse
//     request input to a filter.Composite
//   - a Kind descriptor (ProductKind, UserKind, AuditEventKind) used by stores,
//     exporters and request parsers
//
// Sub-packages:
//   - storage: memory and SQLite implementations of Store
//   - query: paged and unpaged listing on top of a Store
//   - retention: scheduled and targeted deletion of old audit events
//   - export: JSON and CSV writers for listings and sweep archives
package records
