package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pingTimeout bounds the liveness check run before a connection is reused.
const pingTimeout = 2 * time.Second

// Connect establishes a PostgreSQL connection pool with retry logic.
// Attempt n waits n*RetryInterval before the next one.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	if cfg.MaxOpenConns > 0 {
		connConfig.MaxConns = cfg.MaxOpenConns
	}
	connConfig.MinConns = min(cfg.MinConns, connConfig.MaxConns)
	if cfg.HealthCheckPeriod > 0 {
		connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.MaxConnIdleTime > 0 {
		connConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		connConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.PingOnAcquire {
		// Returning false makes the pool destroy the connection and try another one.
		connConfig.BeforeAcquire = Alive
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			if werr := wait(ctx, time.Duration(i+1)*cfg.RetryInterval); werr != nil {
				return nil, errors.Join(ErrFailedToOpenDBConnection, werr)
			}
			continue
		}

		// Catch authentication and permission issues early.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			if werr := wait(ctx, time.Duration(i+1)*cfg.RetryInterval); werr != nil {
				return nil, errors.Join(ErrFailedToOpenDBConnection, werr)
			}
			continue
		}

		return pool, nil
	}

	return nil, ErrFailedToOpenDBConnection
}

// Alive reports whether conn answers a trivial query.
// It is installed as the pool's BeforeAcquire hook when PingOnAcquire is set.
func Alive(ctx context.Context, conn *pgx.Conn) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return false
	}
	return one == 1
}

func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
