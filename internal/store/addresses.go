package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qturkey/listmailer/internal/model"
)

// NextRecipients returns up to limit subscribed addresses with id > after,
// in ascending id order.
func (s *Store) NextRecipients(ctx context.Context, after int64, limit int) ([]model.Address, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT id, address, unsubscribed_at
		FROM addresses
		WHERE id > $1 AND unsubscribed_at IS NULL
		ORDER BY id
		LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Address, error) {
		var a model.Address
		err := row.Scan(&a.ID, &a.Address, &a.UnsubscribedAt)
		return a, err
	})
}

// AddAddresses inserts the given addresses, skipping ones already present,
// and returns how many were new. Insertion order defines the send order.
func (s *Store) AddAddresses(ctx context.Context, addresses []string) (int64, error) {
	var added int64
	err := s.InTx(ctx, func(ctx context.Context) error {
		for _, addr := range addresses {
			tag, err := s.conn(ctx).Exec(ctx, `
				INSERT INTO addresses (address) VALUES ($1)
				ON CONFLICT (address) DO NOTHING`, addr)
			if err != nil {
				return err
			}
			added += tag.RowsAffected()
		}
		return nil
	})
	return added, err
}

// Unsubscribe marks address as opted out. Already unsubscribed addresses keep
// their original timestamp.
func (s *Store) Unsubscribe(ctx context.Context, address string, at time.Time) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE addresses
		SET unsubscribed_at = COALESCE(unsubscribed_at, $2)
		WHERE address = $1`, address, model.Minute(at))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
