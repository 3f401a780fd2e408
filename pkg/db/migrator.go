package db

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// Migrate applies the pending goose migrations under dir of migrations and
// records them in table. Each applied version is logged.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, dir, table string, log *slog.Logger) error {
	provider, err := newMigrationProvider(pool, migrations, dir, table)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	for _, res := range results {
		if res.Source == nil {
			continue
		}
		log.InfoContext(ctx, "migration applied",
			slog.Int64("version", res.Source.Version),
			slog.String("file", res.Source.Path),
			slog.Duration("took", res.Duration),
		)
	}
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	if len(results) == 0 {
		log.InfoContext(ctx, "schema up to date", slog.String("table", table))
	}
	return nil
}

// newMigrationProvider builds a goose provider over the pool. The
// database/sql wrapper shares the pool's connections and is never closed.
func newMigrationProvider(pool *pgxpool.Pool, migrations fs.FS, dir, table string) (*goose.Provider, error) {
	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return nil, errors.Join(ErrMigrationSource, err)
	}

	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return nil, errors.Join(ErrMigrationSource, err)
	}

	provider, err := goose.NewProvider("", stdlib.OpenDBFromPool(pool), sub, goose.WithStore(store))
	if err != nil {
		return nil, errors.Join(ErrMigrationSource, err)
	}
	return provider, nil
}
