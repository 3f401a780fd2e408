package store

import (
	"context"
	"embed"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qturkey/listmailer/pkg/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the mailer schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, table string, log *slog.Logger) error {
	return db.Migrate(ctx, pool, migrations, "migrations", table, log)
}
