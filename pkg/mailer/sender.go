package mailer

import "context"

// Sender delivers one prepared message. The Gmail, SMTP and Resend providers
// implement it, and so does [Mailer].
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, email *Email) error

func (f SenderFunc) Send(ctx context.Context, email *Email) error {
	return f(ctx, email)
}
