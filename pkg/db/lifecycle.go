package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck pings the pool. It is used as the database readiness check.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil {
			return ErrHealthcheckFailed
		}
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Shutdown closes the pool. Close blocks until every acquired connection is
// released, so a batch still running finishes its statement first. When ctx
// expires earlier the hook returns and the pool keeps closing in the background.
func Shutdown(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			pool.Close()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return errors.Join(ErrShutdownTimeout, ctx.Err())
		}
	}
}
