package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qturkey/listmailer/internal/model"
)

var fixedNow = time.Date(2026, 5, 4, 10, 15, 42, 0, time.UTC)

func newIngester(store Store, src Source, senders ...string) *Ingester {
	return New(store, src, Config{AuthorizedSenders: senders}, WithClock(func() time.Time { return fixedNow }))
}

func pdf(attachmentID string) Part {
	return Part{
		MimeType: "application/pdf",
		Filename: "flyer.pdf",
		Headers:  []Header{{Name: "Content-Type", Value: "application/pdf"}},
		Body:     Body{AttachmentID: attachmentID},
	}
}

func TestPollAndEnqueue_AuthorizationFilter(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		ids: []string{"spam", "m1", "m2"},
		messages: map[string]*Message{
			"spam": htmlMessage("spam", "Someone <someone@else.org>", "[mail-list] Buy", "<p>buy</p>", pdf("att-spam")),
			"m1":   htmlMessage("m1", "Board <BOARD@qturkey.org>", "[mail-list] First", "<p>1</p>", pdf("att-1")),
			"m2":   htmlMessage("m2", "board@qturkey.org", "[mail-list] Second", "<p>2</p>"),
		},
		attachments: map[string]string{"att-1": b64("pdf-1"), "att-spam": b64("pdf-spam")},
	}
	store := &fakeStore{}

	res, err := newIngester(store, src, "board@qturkey.org").PollAndEnqueue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Listed)
	assert.Equal(t, 3, res.Templates)
	assert.Equal(t, 2, res.Authorized)
	assert.Equal(t, 1, res.Attachments)

	require.Len(t, store.templates, 3, "every fetched message is kept")
	require.Len(t, store.attachments, 1, "only authorized attachments are kept")
	assert.Equal(t, b64("pdf-1"), store.attachments[0].EncodedContent)
	assert.Equal(t, []string{"att-1"}, src.fetched)

	m1 := store.templates[1]
	assert.Equal(t, "m1", m1.ExternalMessageID)
	assert.Equal(t, m1.ID, store.attachments[0].TemplateID)
	assert.Equal(t, model.Minute(fixedNow), m1.CreatedAt)

	require.Len(t, store.jobs, 1)
	job := store.jobs[0]
	assert.Equal(t, m1.ID, job.TemplateID, "first authorized template wins")
	assert.Equal(t, model.JobPending, job.Status)
	assert.Equal(t, int64(0), job.AddressStartIndex)
	assert.Equal(t, model.Minute(fixedNow), job.ScheduledTo)
	require.NotNil(t, res.Job)
	assert.Equal(t, job.ID, res.Job.ID)
}

func TestPollAndEnqueue_Idempotent(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		ids: []string{"m1", "m1"},
		messages: map[string]*Message{
			"m1": htmlMessage("m1", "board@qturkey.org", "[mail-list] First", "<p>1</p>"),
		},
	}
	store := &fakeStore{}
	ing := newIngester(store, src, "board@qturkey.org")

	first, err := ing.PollAndEnqueue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first.Job)
	assert.Len(t, store.templates, 1, "duplicate ids in one listing are fetched once")

	second, err := ing.PollAndEnqueue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, second.Job)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, store.templates, 1)
	assert.Len(t, store.jobs, 1)
	assert.Equal(t, []string{"m1"}, src.gets)
}

func TestPollAndEnqueue_NoAuthorizedSender(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		ids:      []string{"m1"},
		messages: map[string]*Message{"m1": htmlMessage("m1", "x@y.z", "[mail-list] Hi", "<p/>", pdf("att"))},
	}
	store := &fakeStore{}

	res, err := newIngester(store, src).PollAndEnqueue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Job)
	assert.Len(t, store.templates, 1)
	assert.Empty(t, store.attachments)
	assert.Empty(t, store.jobs)
	assert.Empty(t, src.fetched)
}

func TestPollAndEnqueue_ParseFailureAbortsPass(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		ids: []string{"good", "bad"},
		messages: map[string]*Message{
			"good": htmlMessage("good", "board@qturkey.org", "[mail-list] Ok", "<p/>"),
			"bad":  htmlMessage("bad", "board@qturkey.org", "no tag", "<p/>"),
		},
	}
	store := &fakeStore{}

	res, err := newIngester(store, src, "board@qturkey.org").PollAndEnqueue(context.Background())
	require.ErrorIs(t, err, ErrMalformedSubject)
	assert.Nil(t, res)
	assert.Empty(t, store.templates)
	assert.Empty(t, store.jobs)
}

func TestPollAndEnqueue_WriteFailureRollsBack(t *testing.T) {
	t.Parallel()

	boom := errors.New("insert failed")
	src := &fakeSource{
		ids:      []string{"m1"},
		messages: map[string]*Message{"m1": htmlMessage("m1", "board@qturkey.org", "[mail-list] Ok", "<p/>")},
	}
	store := &fakeStore{failJob: boom}

	_, err := newIngester(store, src, "board@qturkey.org").PollAndEnqueue(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, store.templates)
}

func TestPollAndEnqueue_SourceErrors(t *testing.T) {
	t.Parallel()

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("unavailable")
		_, err := newIngester(&fakeStore{}, &fakeSource{listErr: boom}).PollAndEnqueue(context.Background())
		require.ErrorIs(t, err, boom)
	})

	t.Run("attachment fetch", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{
			ids:      []string{"m1"},
			messages: map[string]*Message{"m1": htmlMessage("m1", "board@qturkey.org", "[mail-list] Ok", "<p/>", pdf("missing"))},
		}
		store := &fakeStore{}
		_, err := newIngester(store, src, "board@qturkey.org").PollAndEnqueue(context.Background())
		require.Error(t, err)
		assert.Empty(t, store.templates)
	})
}

func TestPollAndEnqueue_Sanitize(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		ids:      []string{"m1"},
		messages: map[string]*Message{"m1": htmlMessage("m1", "board@qturkey.org", "[mail-list] Ok", `<p>hi</p><script>alert(1)</script>`)},
	}
	store := &fakeStore{}
	ing := New(store, src, Config{AuthorizedSenders: []string{"board@qturkey.org"}, SanitizeHTML: true})

	_, err := ing.PollAndEnqueue(context.Background())
	require.NoError(t, err)
	require.Len(t, store.templates, 1)
	assert.Equal(t, "<p>hi</p>", store.templates[0].Body)
}

func TestIngester_Authorized(t *testing.T) {
	t.Parallel()

	ing := New(nil, nil, Config{AuthorizedSenders: []string{" Board@QTurkey.org ", ""}})
	assert.True(t, ing.Authorized("board@qturkey.org"))
	assert.True(t, ing.Authorized("BOARD@qturkey.org"))
	assert.False(t, ing.Authorized("other@qturkey.org"))
	assert.False(t, ing.Authorized(""))
}

func TestIngester_AuthorizedWhitespaceSeparated(t *testing.T) {
	t.Parallel()

	ing := New(nil, nil, Config{AuthorizedSenders: []string{"board@qturkey.org\tChair@QTurkey.org\nthird@x.org"}})
	assert.True(t, ing.Authorized("board@qturkey.org"))
	assert.True(t, ing.Authorized("chair@qturkey.org"))
	assert.True(t, ing.Authorized("third@x.org"))
	assert.False(t, ing.Authorized("board@qturkey.org\tChair@QTurkey.org\nthird@x.org"))
}
