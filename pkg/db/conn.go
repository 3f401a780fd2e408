package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WithConn acquires a single pooled connection and passes it to fn.
// The wait for a free connection is bounded by timeout (no bound when zero);
// exceeding it returns ErrAcquireTimeout. The connection is released when fn returns.
func WithConn(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, fn func(conn *pgxpool.Conn) error) error {
	acquireCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return errors.Join(ErrAcquireTimeout, err)
		}
		return errors.Join(ErrAcquireConn, err)
	}
	defer conn.Release()

	return fn(conn)
}
