package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/qturkey/listmailer/internal/metrics"
	"github.com/qturkey/listmailer/internal/server"
	"github.com/qturkey/listmailer/pkg/db"
	"github.com/qturkey/listmailer/pkg/health"
	"github.com/qturkey/listmailer/pkg/job"
	"github.com/qturkey/listmailer/pkg/redis"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the health endpoints",
		Long: `serve runs ingestion and dispatch on their cron schedules in a single
worker, and exposes /healthz, /readyz and /metrics until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	m := metrics.New()
	manager, err := a.manager(ctx, m)
	if err != nil {
		return fmt.Errorf("build job manager: %w", a.closeOnError(ctx, err))
	}

	handler := server.NewRouter(server.RouterConfig{
		Username: a.cfg.HTTP.Username,
		Password: a.cfg.HTTP.Password,
		Metrics:  m.Handler(),
		Logger:   a.log,
		Checks: health.Checks{
			"database":   db.Healthcheck(a.pool),
			"jobs":       job.Healthcheck(manager),
			"redis":      redis.Healthcheck(a.redis),
			"stuck_jobs": a.stuckJobs,
		},
	})

	opts := []server.RunOption{
		server.Address(a.cfg.HTTP.Addr),
		server.Logger(a.log),
		server.ShutdownTimeout(a.cfg.HTTP.ShutdownTimeout),
		// River stops on its own context; it is stopped gracefully by the hook below.
		server.StartHook(func(ctx context.Context) error {
			return manager.Start(context.WithoutCancel(ctx))
		}),
		server.ShutdownHook(manager.Shutdown()),
	}
	for _, fn := range a.closers {
		opts = append(opts, server.ShutdownHook(fn))
	}

	return server.Run(ctx, handler, opts...)
}

// stuckJobs fails readiness while a claimed job has not finished within
// the configured window. Such a job is never reclaimed automatically.
func (a *app) stuckJobs(ctx context.Context) error {
	cutoff := time.Now().Add(-a.cfg.Dispatch.StuckAfter)
	n, err := a.store.CountStuckJobs(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		a.log.WarnContext(ctx, "stuck jobs detected", slog.Int64("count", n))
		return fmt.Errorf("%d job(s) started before %s and not finished", n, cutoff.Format(time.RFC3339))
	}
	return nil
}
