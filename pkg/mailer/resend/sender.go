// Package resend delivers mail through the Resend API.
package resend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/resend/resend-go/v3"

	"github.com/qturkey/listmailer/pkg/mailer"
)

// emailsAPI is the part of the Resend client used by Sender.
type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config holds the Resend API credentials.
type Config struct {
	APIKey string `env:"RESEND_API_KEY"`
}

// Sender implements mailer.Sender using the Resend API.
type Sender struct {
	emails emailsAPI
}

// New creates a new Resend sender.
func New(cfg Config) *Sender {
	return &Sender{emails: resend.NewClient(cfg.APIKey).Emails}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	_, err := s.emails.SendWithContext(ctx, buildRequest(email))
	if err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

func buildRequest(email *mailer.Email) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
		Headers: email.Headers,
	}

	if len(email.Attachments) > 0 {
		req.Attachments = make([]*resend.Attachment, len(email.Attachments))
		for i, a := range email.Attachments {
			att := &resend.Attachment{
				Filename:    a.Filename,
				Content:     a.Content,
				ContentType: mailer.MediaType(a.ContentType),
			}
			// Resend treats attachments with a content id as inline.
			if a.Inline() {
				att.ContentId = mailer.BareContentID(a.ContentID)
			}
			req.Attachments[i] = att
		}
	}

	if len(email.Tags) > 0 {
		req.Tags = make([]resend.Tag, 0, len(email.Tags))
		for name, value := range email.Tags {
			req.Tags = append(req.Tags, resend.Tag{Name: name, Value: tagValue(value)})
		}
	}

	return req
}

// tagValue converts any value to a string for Resend's tag API.
// Presence-only tags (struct{}{}) become "true".
func tagValue(v any) string {
	switch val := v.(type) {
	case nil, struct{}:
		return "true"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
