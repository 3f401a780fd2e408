package store

import (
	"context"

	"github.com/qturkey/listmailer/internal/model"
)

// RecordDelivery appends one delivery log row and sets its ID.
// Outside InTx the row commits immediately.
func (s *Store) RecordDelivery(ctx context.Context, m *model.SentMail) error {
	m.SentAt = model.Minute(m.SentAt)
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO sent_mails (job_id, template_id, address, sent_at, success, traceback)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.JobID, m.TemplateID, m.Address, m.SentAt, m.Success, m.Traceback,
	).Scan(&m.ID)
	return mapErr(err)
}

// ListDeliveries returns the delivery log of a job in send order.
func (s *Store) ListDeliveries(ctx context.Context, jobID int64) ([]model.SentMail, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT id, job_id, template_id, address, sent_at, success, traceback
		FROM sent_mails
		WHERE job_id = $1
		ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SentMail
	for rows.Next() {
		var m model.SentMail
		if err := rows.Scan(&m.ID, &m.JobID, &m.TemplateID, &m.Address, &m.SentAt, &m.Success, &m.Traceback); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
