// Package tasks wraps ingestion and dispatch as River tasks.
//
// Both periodic tasks and every follow-up trigger run in Queue, which the
// job manager serves with a single worker, so no two passes ever overlap.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qturkey/listmailer/internal/dispatch"
	"github.com/qturkey/listmailer/internal/ingest"
	"github.com/qturkey/listmailer/internal/metrics"
	"github.com/qturkey/listmailer/pkg/job"
	"github.com/qturkey/listmailer/pkg/logger"
)

const (
	// Queue is the single-worker queue shared by all mailer tasks.
	Queue = "mailer"

	IngestName   = "ingest_templates"
	DispatchName = "dispatch_due_job"
	ContinueName = "dispatch_continuation"
)

// Ingester runs one ingestion pass.
type Ingester interface {
	PollAndEnqueue(ctx context.Context) (*ingest.Result, error)
}

// Dispatcher runs one dispatch pass.
type Dispatcher interface {
	DispatchDueJob(ctx context.Context) (*dispatch.Result, error)
}

// Ingest polls the mailbox on a schedule and triggers a dispatch as soon
// as a new job exists.
type Ingest struct {
	ingester Ingester
	metrics  *metrics.Metrics
	log      *slog.Logger
	schedule string
}

func NewIngest(i Ingester, schedule string, m *metrics.Metrics, log *slog.Logger) *Ingest {
	return &Ingest{ingester: i, schedule: schedule, metrics: m, log: orNope(log)}
}

func (t *Ingest) Name() string     { return IngestName }
func (t *Ingest) Schedule() string { return t.schedule }

func (t *Ingest) Handle(ctx context.Context) error {
	ctx = logger.WithRunID(ctx)

	res, err := t.ingester.PollAndEnqueue(ctx)
	if err != nil {
		return err
	}
	t.metrics.ObserveIngest(res)

	if res.Job == nil {
		return nil
	}
	return enqueue(ctx, t.log, DispatchName, nil, job.InQueue(Queue))
}

// Dispatch sends the oldest due batch on a schedule.
type Dispatch struct {
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	log        *slog.Logger
	schedule   string
	// uniqueFor keeps one continuation trigger per job.
	uniqueFor time.Duration
}

func NewDispatch(d Dispatcher, schedule string, continuationDelay time.Duration, m *metrics.Metrics, log *slog.Logger) *Dispatch {
	return &Dispatch{
		dispatcher: d,
		schedule:   schedule,
		uniqueFor:  2 * continuationDelay,
		metrics:    m,
		log:        orNope(log),
	}
}

func (t *Dispatch) Name() string     { return DispatchName }
func (t *Dispatch) Schedule() string { return t.schedule }

func (t *Dispatch) Handle(ctx context.Context) error {
	return t.run(logger.WithRunID(ctx))
}

func (t *Dispatch) run(ctx context.Context) error {
	res, err := t.dispatcher.DispatchDueJob(ctx)
	t.metrics.ObserveDispatch(res)
	if err != nil {
		return err
	}
	if res == nil || res.Continuation == nil {
		return nil
	}

	cont := res.Continuation
	return enqueue(ctx, t.log, ContinueName, ContinuePayload{JobID: cont.ID},
		job.InQueue(Queue),
		job.ScheduledAt(cont.ScheduledTo),
		job.UniqueFor(t.uniqueFor),
		job.UniqueKey(fmt.Sprintf("job:%d", cont.ID)),
	)
}

// ContinuePayload names the continuation job that woke the dispatcher.
type ContinuePayload struct {
	JobID int64 `json:"job_id"`
}

// Continue runs a dispatch pass at a continuation's scheduled time, so
// the next batch does not wait for a periodic tick.
type Continue struct {
	dispatch *Dispatch
}

func NewContinue(d *Dispatch) *Continue {
	return &Continue{dispatch: d}
}

func (t *Continue) Name() string { return ContinueName }

func (t *Continue) Handle(ctx context.Context, p ContinuePayload) error {
	ctx = logger.WithRunID(ctx)
	t.dispatch.log.InfoContext(ctx, "continuation due", slog.Int64("job_id", p.JobID))
	return t.dispatch.run(ctx)
}

// enqueue triggers follow-up work. Outside a job worker there is no queue
// and the next periodic tick picks the work up instead.
func enqueue(ctx context.Context, log *slog.Logger, name string, payload any, opts ...job.EnqueueOption) error {
	q, ok := job.FromContext(ctx)
	if !ok {
		log.DebugContext(ctx, "no queue in context, leaving work to the next tick", slog.String("task", name))
		return nil
	}
	if err := q.Enqueue(ctx, name, payload, opts...); err != nil {
		return fmt.Errorf("tasks: trigger %s: %w", name, err)
	}
	return nil
}

func orNope(l *slog.Logger) *slog.Logger {
	if l == nil {
		return logger.NewNope()
	}
	return l
}
