package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/qturkey/listmailer/internal/config"
	"github.com/qturkey/listmailer/internal/dispatch"
	"github.com/qturkey/listmailer/internal/gmail"
	"github.com/qturkey/listmailer/internal/ingest"
	"github.com/qturkey/listmailer/internal/metrics"
	"github.com/qturkey/listmailer/internal/store"
	"github.com/qturkey/listmailer/internal/tasks"
	"github.com/qturkey/listmailer/pkg/db"
	"github.com/qturkey/listmailer/pkg/job"
	"github.com/qturkey/listmailer/pkg/logger"
	"github.com/qturkey/listmailer/pkg/mailer"
	"github.com/qturkey/listmailer/pkg/mailer/resend"
	"github.com/qturkey/listmailer/pkg/mailer/smtp"
	"github.com/qturkey/listmailer/pkg/redis"
	"github.com/qturkey/listmailer/pkg/throttle"
)

// throttleKey is shared by every process sending from the same mailbox.
const throttleKey = "listmailer:send"

// app holds the process-wide dependencies of one command run.
type app struct {
	log   *slog.Logger
	pool  *pgxpool.Pool
	redis goredis.UniversalClient
	store *store.Store
	cfg   config.Config

	closers []func(context.Context) error
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log, logger.RunIDExtractor())
	for _, w := range cfg.Warnings() {
		log.WarnContext(ctx, w)
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		pool:    pool,
		store:   store.New(pool, store.WithAcquireTimeout(cfg.DB.AcquireTimeout)),
		closers: []func(context.Context) error{db.Shutdown(pool)},
	}

	if cfg.Redis.Enabled() {
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect redis: %w", err), a.close(ctx))
		}
		a.redis = client
		a.closers = append(a.closers, redis.Shutdown(client))
	}

	a.closers = append(a.closers, logger.FlushSentry())
	return a, nil
}

// close releases resources in the order they were acquired.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, fn := range a.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) ingester(ctx context.Context) (*ingest.Ingester, error) {
	source, err := gmail.New(ctx, a.cfg.Gmail, a.cfg.Mail.Address)
	if err != nil {
		return nil, err
	}

	cfg := a.cfg.Ingest
	cfg.AuthorizedSenders = a.cfg.AuthorizedSenders()
	return ingest.New(a.store, source, cfg, ingest.WithLogger(a.log.With(slog.String("component", "ingest")))), nil
}

func (a *app) dispatcher(ctx context.Context) (*dispatch.Dispatcher, error) {
	sender, err := a.sender(ctx)
	if err != nil {
		return nil, err
	}

	from := a.cfg.Mail.From()
	return dispatch.New(a.store, mailer.New(sender, from), from, a.cfg.Dispatch,
		dispatch.WithLogger(a.log.With(slog.String("component", "dispatch"))),
		dispatch.WithThrottle(a.throttle()),
	), nil
}

func (a *app) sender(ctx context.Context) (mailer.Sender, error) {
	switch a.cfg.Mail.Provider {
	case config.ProviderSMTP:
		return smtp.New(a.cfg.SMTP), nil
	case config.ProviderResend:
		return resend.New(a.cfg.Resend), nil
	default:
		return gmail.New(ctx, a.cfg.Gmail, a.cfg.Mail.Address)
	}
}

func (a *app) throttle() throttle.Throttle {
	if a.cfg.Dispatch.Throttle == config.ThrottleRedis && a.redis != nil {
		return throttle.NewRedis(a.redis, throttleKey, a.cfg.Dispatch.SendInterval)
	}
	return throttle.NewInterval(a.cfg.Dispatch.SendInterval)
}

// manager registers both periodic passes and the continuation trigger on
// the single-worker mailer queue.
func (a *app) manager(ctx context.Context, m *metrics.Metrics) (*job.Manager, error) {
	ing, err := a.ingester(ctx)
	if err != nil {
		return nil, err
	}
	disp, err := a.dispatcher(ctx)
	if err != nil {
		return nil, err
	}

	log := a.log.With(slog.String("component", "tasks"))
	ingestTask := tasks.NewIngest(ing, a.cfg.Ingest.Schedule, m, log)
	dispatchTask := tasks.NewDispatch(disp, a.cfg.Dispatch.Schedule, a.cfg.Dispatch.ContinuationDelay, m, log)

	return job.NewManager(a.pool,
		job.WithLogger(a.log.With(slog.String("component", "jobs"))),
		job.WithScheduleQueue(tasks.Queue),
		job.WithJobTimeout(-1),
		job.WithScheduledTask(ingestTask),
		job.WithScheduledTask(dispatchTask),
		job.WithTask[tasks.ContinuePayload](tasks.NewContinue(dispatchTask)),
	)
}

// closeOnError releases resources after a failed startup step.
func (a *app) closeOnError(ctx context.Context, err error) error {
	return errors.Join(err, a.close(ctx))
}
