// Package server exposes the ledger over HTTP.
//
// Every record kind gets the same four routes under /v1:
//
//	GET    /v1/{products,users,audit-events}          paged listing
//	GET    /v1/{products,users,audit-events}/{id}     one record
//	POST   /v1/{products,users,audit-events}          create
//	GET    /v1/{products,users,audit-events}/export   full listing as json or csv
//
// Audit events additionally support targeted deletes, and the service
// exposes dashboard statistics and a manual retention sweep:
//
//	DELETE /v1/audit-events/entities/{kind}/{id}
//	DELETE /v1/audit-events/actors/{actor}
//	GET    /v1/dashboard/stats?range=LAST_30_DAYS
//	POST   /v1/retention/sweep
//
// Listings read their filters from the query string. Parameter names follow
// the JSON field names of each kind (sku, min_price, created_from, actor,
// operation, ...); list parameters may repeat or be comma-separated. Paging
// uses zero-based page and size, and sort takes "field" or "field,dir" and
// may repeat:
//
//	GET /v1/audit-events?actor=alice&operation=create,delete&from=2024-01-01&sort=timestamp,asc&page=0&size=50
//
// Date-only bounds cover whole days in the caller's zone, taken from the
// X-Timezone header or the server default.
//
// Errors are JSON objects with "error" and "code" fields. Malformed input is
// a 400, unknown IDs a 404, duplicate IDs on create a 409 and exhausted rate
// limits a 429.
//
// Health, readiness, version and metrics endpoints sit outside /v1 and are
// not rate limited.
package server
