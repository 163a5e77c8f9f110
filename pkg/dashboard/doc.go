// Package dashboard computes time-bucketed statistics over audit events.
//
// Stats returns four chart series for a TimeRange resolved against the
// current UTC time:
//
//   - LogsOverTime: events per UTC calendar day, ascending by date. Days
//     without events are omitted.
//   - ByOperation: events per operation type.
//   - TopActors: the five most active actors.
//   - ByStatus: SUCCESS and FAILURE counts, each present only when observed.
//
// The last three are ordered by count descending, then label ascending.
// Series are computed concurrently; Stats returns when all four are ready.
package dashboard
