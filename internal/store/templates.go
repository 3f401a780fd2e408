package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/qturkey/listmailer/internal/model"
)

// TemplateExists reports whether a template was already captured for the
// external message id.
func (s *Store) TemplateExists(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM templates WHERE external_message_id = $1)`,
		externalID,
	).Scan(&exists)
	return exists, err
}

// CreateTemplate inserts t and sets its ID and CreatedAt.
func (s *Store) CreateTemplate(ctx context.Context, t *model.Template) error {
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO templates (external_message_id, sender, subject, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		t.ExternalMessageID, t.Sender, t.Subject, t.Body,
	).Scan(&t.ID, &t.CreatedAt)
	return mapErr(err)
}

// GetTemplate loads a template by id.
func (s *Store) GetTemplate(ctx context.Context, id int64) (model.Template, error) {
	var t model.Template
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, external_message_id, sender, subject, body, created_at
		FROM templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.ExternalMessageID, &t.Sender, &t.Subject, &t.Body, &t.CreatedAt)
	return t, mapErr(err)
}

// CreateAttachment inserts a and sets its ID.
func (s *Store) CreateAttachment(ctx context.Context, a *model.Attachment) error {
	err := s.conn(ctx).QueryRow(ctx, `
		INSERT INTO attachments
			(template_id, content_id, content_type, content_disposition, filename, encoded_content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.TemplateID, a.ContentID, a.ContentType, a.ContentDisposition, a.Filename, a.EncodedContent,
	).Scan(&a.ID)
	return mapErr(err)
}

// ListAttachments returns the attachments of a template in insertion order.
func (s *Store) ListAttachments(ctx context.Context, templateID int64) ([]model.Attachment, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT id, template_id, content_id, content_type, content_disposition, filename, encoded_content
		FROM attachments
		WHERE template_id = $1
		ORDER BY id`, templateID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Attachment, error) {
		var a model.Attachment
		err := row.Scan(&a.ID, &a.TemplateID, &a.ContentID, &a.ContentType,
			&a.ContentDisposition, &a.Filename, &a.EncodedContent)
		return a, err
	})
}
