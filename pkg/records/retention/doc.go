// Package retention deletes records older than a configured age.
//
// # Sweeps
//
// A Sweeper removes records of one kind whose timestamp is strictly before a
// cutoff. The count it reports is the delete statement's own affected-row
// count, so concurrent inserts never skew it and a second sweep with the same
// cutoff reports zero.
//
//	sweeper := retention.NewSweeper(records.AuditEventKind, stores.AuditEvents,
//	    records.AuditTimestamp, policyFunc, retention.Options{})
//	deleted, err := sweeper.Sweep(ctx, cutoff)
//
// AuditSweeper adds targeted deletes by entity and by actor for cascading
// removals. Targeted and manual sweeps return their errors.
//
// # Scheduling
//
// Scheduler runs registered tasks on cron schedules. Each run first takes a
// lease from a Locker so instances sharing a database take turns; errors from
// scheduled runs are logged and never stop the scheduler.
//
//	scheduler := retention.NewScheduler(locker, 10*time.Minute)
//	scheduler.Register(ctx, "audit_events", "0 3 * * *", sweeper.Run)
//	scheduler.Start(ctx)
//	defer scheduler.Stop()
//
// The policy is read through a PolicyFunc on every run, so configuration
// reloads take effect at the next sweep.
package retention
