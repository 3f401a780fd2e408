//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qturkey/listmailer/internal/model"
	"github.com/qturkey/listmailer/internal/store"
	"github.com/qturkey/listmailer/pkg/db"
	"github.com/qturkey/listmailer/pkg/logger"
)

func setupStore(t *testing.T) (*store.Store, *pgxpool.Pool) {
	t.Helper()

	url := os.Getenv("DATABASE_CONN_URL")
	if url == "" {
		t.Skip("DATABASE_CONN_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, db.Config{
		ConnectionString: url,
		MaxOpenConns:     5,
		PingOnAcquire:    true,
		RetryAttempts:    1,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, store.Migrate(ctx, pool, "schema_migrations", logger.NewNope()))

	_, err = pool.Exec(ctx, `TRUNCATE sent_mails, jobs, attachments, templates, addresses RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return store.New(pool, store.WithAcquireTimeout(5*time.Second)), pool
}

func TestStore_Recipients(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	added, err := s.AddAddresses(ctx, []string{"a@example.com", "b@example.com", "c@example.com", "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), added)

	require.NoError(t, s.Unsubscribe(ctx, "b@example.com", time.Now()))
	require.ErrorIs(t, s.Unsubscribe(ctx, "nobody@example.com", time.Now()), store.ErrNotFound)

	got, err := s.NextRecipients(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a@example.com", got[0].Address)
	assert.Equal(t, "c@example.com", got[1].Address)
	assert.Less(t, got[0].ID, got[1].ID)

	got, err = s.NextRecipients(ctx, got[0].ID, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c@example.com", got[0].Address)
}

func TestStore_TemplateDedup(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	tmpl := &model.Template{ExternalMessageID: "msg-1", Sender: "boss@example.com", Subject: "Hi", Body: "<p>hi</p>"}
	require.NoError(t, s.CreateTemplate(ctx, tmpl))
	assert.NotZero(t, tmpl.ID)

	exists, err := s.TemplateExists(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, exists)

	err = s.CreateTemplate(ctx, &model.Template{ExternalMessageID: "msg-1", Sender: "x", Subject: "y", Body: "z"})
	require.ErrorIs(t, err, store.ErrDuplicate)

	att := &model.Attachment{TemplateID: tmpl.ID, ContentID: "<logo>", ContentType: "image/png", ContentDisposition: "inline", EncodedContent: "aGk="}
	require.NoError(t, s.CreateAttachment(ctx, att))

	atts, err := s.ListAttachments(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "<logo>", atts[0].ContentID)
}

func TestStore_JobLifecycle(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	tmpl := &model.Template{ExternalMessageID: "msg-2", Sender: "boss@example.com", Subject: "Hi", Body: "<p>hi</p>"}
	require.NoError(t, s.CreateTemplate(ctx, tmpl))

	later := &model.Job{TemplateID: tmpl.ID, ScheduledTo: now.Add(24 * time.Hour)}
	due := &model.Job{TemplateID: tmpl.ID, ScheduledTo: now.Add(-time.Minute)}
	require.NoError(t, s.CreateJob(ctx, later))
	require.NoError(t, s.CreateJob(ctx, due))

	err := s.Session(ctx, func(ctx context.Context) error {
		claimed, err := s.ClaimDueJob(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, due.ID, claimed.ID)
		assert.Equal(t, model.JobStarted, claimed.Status)
		require.NotNil(t, claimed.StartedAt)

		again, err := s.ClaimDueJob(ctx, now)
		require.NoError(t, err)
		assert.Nil(t, again, "the remaining job is not due yet")

		sentMail := &model.SentMail{JobID: claimed.ID, TemplateID: tmpl.ID, Address: "a@example.com", SentAt: now, Success: true}
		require.NoError(t, s.RecordDelivery(ctx, sentMail))

		return s.InTx(ctx, func(ctx context.Context) error {
			return s.FinishJob(ctx, claimed.ID, now)
		})
	})
	require.NoError(t, err)

	finished, err := s.GetJob(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFinished, finished.Status)
	require.NotNil(t, finished.FinishedAt)

	require.ErrorIs(t, s.FinishJob(ctx, due.ID, now), store.ErrNotFound, "finished jobs cannot be finished twice")

	stats, err := s.ListJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, due.ID, stats[0].Job.ID)
	assert.Equal(t, int64(1), stats[0].Sent)
	assert.Equal(t, int64(0), stats[0].Failed)
}

func TestStore_InTxRollback(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	err := s.Session(ctx, func(ctx context.Context) error {
		return s.InTx(ctx, func(ctx context.Context) error {
			require.NoError(t, s.CreateTemplate(ctx, &model.Template{ExternalMessageID: "msg-3", Sender: "a", Subject: "b", Body: "c"}))
			return assert.AnError
		})
	})
	require.ErrorIs(t, err, assert.AnError)

	exists, err := s.TemplateExists(ctx, "msg-3")
	require.NoError(t, err)
	assert.False(t, exists)
}
