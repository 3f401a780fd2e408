package smtp

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/emersion/go-sasl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qturkey/listmailer/pkg/mailer"
)

func testEmail() *mailer.Email {
	return &mailer.Email{
		From:    "QTurkey <list@example.com>",
		To:      []string{"Alice <alice@example.com>"},
		Subject: "Hi",
		HTML:    "<p>hi</p>",
	}
}

func TestSender_Send(t *testing.T) {
	t.Parallel()

	var (
		gotAddr string
		gotAuth sasl.Client
		gotFrom string
		gotTo   []string
		gotBody []byte
	)
	s := &Sender{
		cfg: Config{Addr: "smtp.example.com:587", Username: "u", Password: "p"},
		send: func(addr string, a sasl.Client, from string, to []string, r io.Reader) error {
			gotAddr, gotAuth, gotFrom, gotTo = addr, a, from, to
			var err error
			gotBody, err = io.ReadAll(r)
			return err
		},
	}

	require.NoError(t, s.Send(context.Background(), testEmail()))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "list@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, string(gotBody), "Subject: Hi")
}

func TestSender_Send_NoAuth(t *testing.T) {
	t.Parallel()

	var authSeen sasl.Client = sasl.NewAnonymousClient("x")
	s := &Sender{
		cfg: Config{Addr: "localhost:25"},
		send: func(_ string, a sasl.Client, _ string, _ []string, _ io.Reader) error {
			authSeen = a
			return nil
		},
	}

	require.NoError(t, s.Send(context.Background(), testEmail()))
	assert.Nil(t, authSeen)
}

func TestSender_Send_Errors(t *testing.T) {
	t.Parallel()

	t.Run("transport", func(t *testing.T) {
		t.Parallel()

		sendErr := errors.New("550 mailbox unavailable")
		s := &Sender{send: func(string, sasl.Client, string, []string, io.Reader) error { return sendErr }}

		require.ErrorIs(t, s.Send(context.Background(), testEmail()), sendErr)
	})

	t.Run("invalid message", func(t *testing.T) {
		t.Parallel()

		called := false
		s := &Sender{send: func(string, sasl.Client, string, []string, io.Reader) error {
			called = true
			return nil
		}}
		email := testEmail()
		email.Subject = ""

		require.ErrorIs(t, s.Send(context.Background(), email), mailer.ErrNoSubject)
		assert.False(t, called)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := &Sender{send: func(string, sasl.Client, string, []string, io.Reader) error { return nil }}

		require.ErrorIs(t, s.Send(ctx, testEmail()), context.Canceled)
	})
}
