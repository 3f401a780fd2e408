// Package store implements the recipient store, template store, job ledger
// and delivery log on PostgreSQL.
//
// Every method runs on the connection pinned in its context by Session (or on
// the transaction pinned by InTx) and falls back to the pool otherwise. A
// dispatch or ingestion invocation therefore wraps its whole body in a single
// Session and holds exactly one pooled connection; statements outside InTx
// autocommit, which gives the claim, per-delivery and finalize commit points.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qturkey/listmailer/pkg/db"
)

const uniqueViolation = "23505"

// DBTX is the subset of pgx shared by pools, pooled connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type connKey struct{}

// Store is the PostgreSQL implementation of the mailer's persistence.
type Store struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithAcquireTimeout bounds how long Session waits for a free connection.
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.acquireTimeout = d
		}
	}
}

// New creates a Store on pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session acquires one pooled connection, pins it in the context passed to fn
// and releases it when fn returns. Nested sessions reuse the outer connection.
func (s *Store) Session(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(connKey{}).(DBTX); ok {
		return fn(ctx)
	}
	return db.WithConn(ctx, s.pool, s.acquireTimeout, func(conn *pgxpool.Conn) error {
		return fn(context.WithValue(ctx, connKey{}, DBTX(conn)))
	})
}

// InTx runs fn in a transaction on the pinned connection. Store calls made
// with the context passed to fn join the transaction; nested calls use savepoints.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, s.conn(ctx), func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, connKey{}, DBTX(tx)))
	})
}

func (s *Store) conn(ctx context.Context) DBTX {
	if c, ok := ctx.Value(connKey{}).(DBTX); ok {
		return c
	}
	return s.pool
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
