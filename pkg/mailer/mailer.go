package mailer

import (
	"context"
	"errors"
)

// Mailer validates messages and applies defaults before handing them to a provider.
type Mailer struct {
	sender Sender
	from   string
}

// New creates a Mailer delivering through sender. from is used when an Email
// has no From of its own.
func New(sender Sender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

// Send implements Sender.
func (m *Mailer) Send(ctx context.Context, email *Email) error {
	if email.From == "" {
		email.From = m.from
	}
	if err := Validate(email); err != nil {
		return err
	}

	if err := m.sender.Send(ctx, email); err != nil {
		return errors.Join(ErrSendFailed, err)
	}

	return nil
}

// Validate checks the fields every provider requires.
func Validate(email *Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	if email.From == "" {
		return ErrNoSender
	}
	if email.Subject == "" {
		return ErrNoSubject
	}
	if email.HTML == "" {
		return ErrNoContent
	}
	for _, a := range email.Attachments {
		if err := CheckMediaType(a.ContentType); err != nil {
			return err
		}
	}
	return nil
}
