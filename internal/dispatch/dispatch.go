// Package dispatch sends one batch of a due job per invocation.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qturkey/listmailer/internal/model"
	"github.com/qturkey/listmailer/pkg/logger"
	"github.com/qturkey/listmailer/pkg/mailer"
	"github.com/qturkey/listmailer/pkg/throttle"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	Session(ctx context.Context, fn func(ctx context.Context) error) error
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	ClaimDueJob(ctx context.Context, now time.Time) (*model.Job, error)
	NextRecipients(ctx context.Context, after int64, limit int) ([]model.Address, error)
	GetTemplate(ctx context.Context, id int64) (model.Template, error)
	ListAttachments(ctx context.Context, templateID int64) ([]model.Attachment, error)
	RecordDelivery(ctx context.Context, m *model.SentMail) error
	CreateJob(ctx context.Context, j *model.Job) error
	FinishJob(ctx context.Context, id int64, at time.Time) error
}

// Config holds batch parameters.
type Config struct {
	BatchSize         int           `env:"DISPATCH_BATCH_SIZE" envDefault:"600"`
	ContinuationDelay time.Duration `env:"DISPATCH_CONTINUATION_DELAY" envDefault:"24h"`
	SendInterval      time.Duration `env:"DISPATCH_SEND_INTERVAL" envDefault:"500ms"`
	Schedule          string        `env:"DISPATCH_SCHEDULE" envDefault:"* * * * *"`
	// Throttle selects the rate limiter: local or redis.
	Throttle   string        `env:"DISPATCH_THROTTLE" envDefault:"local"`
	StuckAfter time.Duration `env:"DISPATCH_STUCK_AFTER" envDefault:"2h"`
}

const (
	DefaultBatchSize         = 600
	DefaultContinuationDelay = 24 * time.Hour
	DefaultSendInterval      = 500 * time.Millisecond
)

// Result describes one dispatched batch.
type Result struct {
	Job *model.Job
	// Continuation is the job created for the remaining recipients, if any.
	Continuation *model.Job
	Recipients   int
	Sent         int
	Failed       int
}

// Dispatcher runs the claim, send and finalize cycle.
type Dispatcher struct {
	store    Store
	sender   mailer.Sender
	throttle throttle.Throttle
	log      *slog.Logger
	now      func() time.Time
	from     string
	cfg      Config
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithThrottle replaces the interval limiter built from Config.SendInterval.
func WithThrottle(t throttle.Throttle) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.throttle = t
		}
	}
}

// New creates a Dispatcher. from is the sender address of every message.
func New(store Store, sender mailer.Sender, from string, cfg Config, opts ...Option) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ContinuationDelay <= 0 {
		cfg.ContinuationDelay = DefaultContinuationDelay
	}
	d := &Dispatcher{
		store:    store,
		sender:   sender,
		throttle: throttle.NewInterval(cfg.SendInterval),
		log:      logger.NewNope(),
		now:      time.Now,
		from:     from,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchDueJob claims the oldest due pending job and sends its batch.
// It returns a nil Result when no job is due. Once a job is claimed the batch
// runs to completion even if ctx is canceled.
//
// Delivery failures are recorded and never abort the batch. Store failures
// and attachments with an unsupported media type are returned and leave the
// job started.
func (d *Dispatcher) DispatchDueJob(ctx context.Context) (*Result, error) {
	var res *Result

	err := d.store.Session(ctx, func(ctx context.Context) error {
		job, err := d.store.ClaimDueJob(ctx, d.now())
		if err != nil {
			return fmt.Errorf("dispatch: claim job: %w", err)
		}
		if job == nil {
			return nil
		}

		log := d.log.With(slog.Int64("job_id", job.ID), slog.Int64("template_id", job.TemplateID))
		log.InfoContext(ctx, "job claimed", slog.Int64("address_start_index", job.AddressStartIndex))

		res = &Result{Job: job}
		return d.run(context.WithoutCancel(ctx), job, res, log)
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

func (d *Dispatcher) run(ctx context.Context, job *model.Job, res *Result, log *slog.Logger) error {
	recipients, err := d.store.NextRecipients(ctx, job.AddressStartIndex, d.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("dispatch: load recipients for job %d: %w", job.ID, err)
	}
	res.Recipients = len(recipients)

	if len(recipients) == 0 {
		log.InfoContext(ctx, "no recipients left")
		return d.finish(ctx, job, nil)
	}

	tmpl, err := d.store.GetTemplate(ctx, job.TemplateID)
	if err != nil {
		return fmt.Errorf("dispatch: load template %d: %w", job.TemplateID, err)
	}
	attachments, err := d.loadAttachments(ctx, job.TemplateID)
	if err != nil {
		return err
	}

	for _, rcpt := range recipients {
		// The first wait of a batch takes the limiter's initial token, so
		// the first two sends are spaced like every other pair.
		d.wait(ctx, log)

		email := &mailer.Email{
			From:        d.from,
			To:          []string{rcpt.Address},
			Subject:     tmpl.Subject,
			HTML:        tmpl.Body,
			Attachments: attachments,
			Tags:        mailer.Tags{"job_id": job.ID, "template_id": tmpl.ID},
		}

		delivery := &model.SentMail{
			JobID:      job.ID,
			TemplateID: tmpl.ID,
			Address:    rcpt.Address,
			Success:    true,
		}
		if err := d.sender.Send(ctx, email); err != nil {
			traceback := fmt.Sprintf("%+v", err)
			delivery.Success = false
			delivery.Traceback = &traceback
			res.Failed++
			log.WarnContext(ctx, "delivery failed",
				slog.Int64("address_id", rcpt.ID),
				slog.String("error", err.Error()),
			)
		} else {
			res.Sent++
		}
		delivery.SentAt = model.Minute(d.now())

		if err := d.store.RecordDelivery(ctx, delivery); err != nil {
			return fmt.Errorf("dispatch: record delivery to address %d: %w", rcpt.ID, err)
		}
	}

	var next *model.Job
	if len(recipients) == d.cfg.BatchSize {
		last := recipients[len(recipients)-1]
		cont := job.Continuation(last.ID, d.now().Add(d.cfg.ContinuationDelay))
		next = &cont
	}
	if err := d.finish(ctx, job, next); err != nil {
		return err
	}
	res.Continuation = next

	log.InfoContext(ctx, "batch completed",
		slog.Int("recipients", res.Recipients),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		slog.Bool("continued", next != nil),
	)
	return nil
}

// loadAttachments decodes and validates the template's attachments once for
// the whole batch.
func (d *Dispatcher) loadAttachments(ctx context.Context, templateID int64) ([]mailer.Attachment, error) {
	stored, err := d.store.ListAttachments(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load attachments of template %d: %w", templateID, err)
	}

	out := make([]mailer.Attachment, 0, len(stored))
	for _, a := range stored {
		if err := mailer.CheckMediaType(a.ContentType); err != nil {
			return nil, fmt.Errorf("dispatch: attachment %d: %w", a.ID, err)
		}
		content, err := a.Decode()
		if err != nil {
			return nil, fmt.Errorf("dispatch: attachment %d: %w", a.ID, err)
		}

		disposition := mailer.DispositionAttachment
		if a.Inline() {
			disposition = mailer.DispositionInline
		}
		out = append(out, mailer.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
			Disposition: disposition,
			Content:     content,
		})
	}
	return out, nil
}

// wait blocks for the send interval. A failing shared limiter degrades to a
// local sleep so the batch keeps its pace.
func (d *Dispatcher) wait(ctx context.Context, log *slog.Logger) {
	err := d.throttle.Wait(ctx)
	if err == nil {
		return
	}
	log.WarnContext(ctx, "throttle unavailable, sleeping locally", slog.String("error", err.Error()))
	time.Sleep(d.cfg.SendInterval)
}

// finish creates the continuation, if any, and finishes job in one transaction.
func (d *Dispatcher) finish(ctx context.Context, job *model.Job, next *model.Job) error {
	err := d.store.InTx(ctx, func(ctx context.Context) error {
		if next != nil {
			if err := d.store.CreateJob(ctx, next); err != nil {
				return fmt.Errorf("create continuation: %w", err)
			}
		}
		return d.store.FinishJob(ctx, job.ID, d.now())
	})
	if err != nil {
		return fmt.Errorf("dispatch: finish job %d: %w", job.ID, err)
	}

	finished := model.Minute(d.now())
	job.Status = model.JobFinished
	job.FinishedAt = &finished
	return nil
}
