// Package db provides PostgreSQL connection pooling, transactions and migrations.
//
// This package wraps [github.com/jackc/pgx/v5/pgxpool]. The pool is small and
// shared by the ingestion and dispatch ticks, so it is tuned for correctness
// of reuse rather than throughput.
//
// # Features
//
//   - Connection pool with a fixed capacity (default 5)
//   - Liveness check (SELECT 1) before a pooled connection is handed out;
//     a failing connection is destroyed and never returned to the caller
//   - Bounded wait for a free connection ([WithConn], [ErrAcquireTimeout])
//   - Retry with linear backoff during startup
//   - Transactions on any [Beginner] ([WithTx])
//   - Migrations using [github.com/pressly/goose/v3]
//
// # Configuration
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Pool capacity (default: 5)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 1)
//	DATABASE_ACQUIRE_TIMEOUT    - Max wait for a free connection (default: 30s)
//	DATABASE_PING_ON_ACQUIRE    - Ping connections before reuse (default: true)
//	DATABASE_HEALTHCHECK_PERIOD - Background health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//	DATABASE_MIGRATIONS_TABLE   - Migrations table name (default: schema_migrations)
//
// # Usage
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	err = db.WithConn(ctx, pool, cfg.AcquireTimeout, func(conn *pgxpool.Conn) error {
//		return db.WithTx(ctx, conn, func(tx pgx.Tx) error {
//			_, err := tx.Exec(ctx, "UPDATE jobs SET status = 'finished' WHERE id = $1", id)
//			return err
//		})
//	})
//
// # Error Handling
//
// Errors are wrapped using [errors.Join] with one of the package sentinels:
//
//   - [ErrFailedToParseDBConfig] - Invalid connection string format
//   - [ErrFailedToOpenDBConnection] - Connection failed after all retries
//   - [ErrAcquireTimeout] - Pool exhausted for longer than the acquire timeout
//   - [ErrHealthcheckFailed] - Database ping failed
//   - [ErrMigrationSource] - Migration directory or table name rejected
//   - [ErrApplyMigrations] - Migration execution failed
package db
