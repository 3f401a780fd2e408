// Package ingest turns tagged inbound messages into templates and schedules
// the first authorized one for delivery.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qturkey/listmailer/internal/model"
	"github.com/qturkey/listmailer/pkg/logger"
	"github.com/qturkey/listmailer/pkg/sanitizer"
)

// DefaultQuery selects list messages by subject tag.
const DefaultQuery = `subject:"[mail-list]"`

// Store is the persistence the ingester needs.
type Store interface {
	Session(ctx context.Context, fn func(ctx context.Context) error) error
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	TemplateExists(ctx context.Context, externalID string) (bool, error)
	CreateTemplate(ctx context.Context, t *model.Template) error
	CreateAttachment(ctx context.Context, a *model.Attachment) error
	CreateJob(ctx context.Context, j *model.Job) error
}

type Config struct {
	Query             string   `env:"INGEST_QUERY" envDefault:"subject:\"[mail-list]\""`
	AuthorizedSenders []string `env:"AUTHORIZED_SENDERS" envSeparator:" "`
	Schedule          string   `env:"INGEST_SCHEDULE" envDefault:"* * * * *"`
	SanitizeHTML      bool     `env:"INGEST_SANITIZE_HTML" envDefault:"false"`
}

// Result describes one ingestion pass.
type Result struct {
	// Job is the job created this pass, nil when none was.
	Job         *model.Job
	Listed      int
	Skipped     int
	Templates   int
	Authorized  int
	Attachments int
}

// Ingester polls the source and records new templates.
type Ingester struct {
	store      Store
	source     Source
	log        *slog.Logger
	now        func() time.Time
	authorized map[string]struct{}
	query      string
	sanitize   bool
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingester) {
		if l != nil {
			i.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) {
		if now != nil {
			i.now = now
		}
	}
}

func New(store Store, source Source, cfg Config, opts ...Option) *Ingester {
	i := &Ingester{
		store:      store,
		source:     source,
		log:        logger.NewNope(),
		now:        time.Now,
		authorized: make(map[string]struct{}, len(cfg.AuthorizedSenders)),
		query:      cfg.Query,
		sanitize:   cfg.SanitizeHTML,
	}
	if i.query == "" {
		i.query = DefaultQuery
	}
	for _, s := range cfg.AuthorizedSenders {
		for _, f := range strings.Fields(s) {
			i.authorized[strings.ToLower(f)] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Authorized reports whether sender may schedule campaigns.
func (i *Ingester) Authorized(sender string) bool {
	_, ok := i.authorized[strings.ToLower(strings.TrimSpace(sender))]
	return ok
}

// PollAndEnqueue fetches every matching message not yet stored, persists each
// one as a template, stores attachments of authorized senders and creates a
// pending job for the first authorized template. Any parse failure aborts
// the pass before anything is written.
func (i *Ingester) PollAndEnqueue(ctx context.Context) (*Result, error) {
	res := &Result{}

	err := i.store.Session(ctx, func(ctx context.Context) error {
		ids, err := i.source.ListMatchingMessages(ctx, i.query)
		if err != nil {
			return fmt.Errorf("ingest: list messages: %w", err)
		}
		res.Listed = len(ids)

		messages, err := i.fetchNew(ctx, ids, res)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		return i.store.InTx(ctx, func(ctx context.Context) error {
			return i.persist(ctx, messages, res)
		})
	})
	if err != nil {
		return nil, err
	}

	i.log.InfoContext(ctx, "ingestion pass completed",
		slog.Int("listed", res.Listed),
		slog.Int("skipped", res.Skipped),
		slog.Int("templates", res.Templates),
		slog.Int("authorized", res.Authorized),
		slog.Bool("job_created", res.Job != nil),
	)
	return res, nil
}

func (i *Ingester) fetchNew(ctx context.Context, ids []string, res *Result) ([]*parsed, error) {
	seen := make(map[string]struct{}, len(ids))
	var messages []*parsed

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		exists, err := i.store.TemplateExists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ingest: check template %s: %w", id, err)
		}
		if exists {
			res.Skipped++
			continue
		}

		msg, err := i.source.GetMessage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ingest: get message %s: %w", id, err)
		}
		if msg.ID == "" {
			msg.ID = id
		}

		p, err := parseMessage(msg)
		if err != nil {
			return nil, fmt.Errorf("ingest: parse message %s: %w", id, err)
		}
		if i.sanitize {
			p.template.Body = sanitizer.EmailHTML(p.template.Body)
		}

		p.authorized = i.Authorized(p.template.Sender)
		if p.authorized {
			for k := range p.attachments {
				if err := p.attachments[k].fetch(ctx, i.source, msg.ID); err != nil {
					return nil, err
				}
			}
		} else {
			i.log.WarnContext(ctx, "message from unauthorized sender",
				slog.String("message_id", msg.ID),
				slog.String("sender", p.template.Sender),
			)
		}

		messages = append(messages, p)
	}

	return messages, nil
}

func (i *Ingester) persist(ctx context.Context, messages []*parsed, res *Result) error {
	now := model.Minute(i.now())
	var first *model.Template

	for _, p := range messages {
		p.template.CreatedAt = now
		if err := i.store.CreateTemplate(ctx, &p.template); err != nil {
			return fmt.Errorf("ingest: create template %s: %w", p.template.ExternalMessageID, err)
		}
		res.Templates++

		if !p.authorized {
			continue
		}
		res.Authorized++

		for _, a := range p.attachments {
			a.attachment.TemplateID = p.template.ID
			if err := i.store.CreateAttachment(ctx, &a.attachment); err != nil {
				return fmt.Errorf("ingest: create attachment for template %d: %w", p.template.ID, err)
			}
			res.Attachments++
		}

		if first == nil {
			first = &p.template
		}
	}

	if first == nil {
		return nil
	}

	job := &model.Job{
		Status:            model.JobPending,
		ScheduledTo:       now,
		TemplateID:        first.ID,
		AddressStartIndex: 0,
	}
	if err := i.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("ingest: create job for template %d: %w", first.ID, err)
	}
	res.Job = job

	i.log.InfoContext(ctx, "job scheduled",
		slog.Int64("job_id", job.ID),
		slog.Int64("template_id", first.ID),
		slog.String("subject", first.Subject),
	)
	return nil
}
