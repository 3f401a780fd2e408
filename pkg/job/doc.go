// Package job runs background tasks on River, a PostgreSQL-backed queue.
//
// Tasks are plain structs registered by structural typing. A task with a
// payload implements Name and Handle(ctx, P):
//
//	type Continue struct{ d *dispatch.Dispatcher }
//
//	func (t *Continue) Name() string { return "dispatch_continuation" }
//	func (t *Continue) Handle(ctx context.Context, p ContinuePayload) error { ... }
//
// A periodic task also implements Schedule, returning a 5-field cron
// expression, and takes no payload:
//
//	func (t *Ingest) Schedule() string { return "*/10 * * * *" }
//	func (t *Ingest) Handle(ctx context.Context) error { ... }
//
// Periodic tasks share one queue served by a single worker and are inserted
// with a single attempt. They can also be enqueued by name to trigger an
// extra run.
//
//	m, err := job.NewManager(pool,
//	    job.WithLogger(log),
//	    job.WithScheduleQueue("mailer"),
//	    job.WithJobTimeout(-1),
//	    job.WithScheduledTask(tasks.NewIngest(...)),
//	    job.WithTask[tasks.ContinuePayload](tasks.NewContinue(...)),
//	)
//
// Handlers reach the manager through [FromContext] to schedule follow-up
// work:
//
//	if q, ok := job.FromContext(ctx); ok {
//	    err = q.Enqueue(ctx, "dispatch", nil, job.InQueue("mailer"))
//	}
//
// [Migrate] installs the River schema and must run before [NewManager] is
// started against a fresh database.
package job
