// Package gmail adapts the Gmail API to the mailer: it is the inbound
// message source for ingestion and the default outbound provider.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/qturkey/listmailer/internal/ingest"
	"github.com/qturkey/listmailer/pkg/mailer"
)

// me addresses the delegated mailbox.
const me = "me"

var (
	ErrCredentials = errors.New("gmail: invalid credentials")
	ErrRequest     = errors.New("gmail: request failed")
)

// Config locates the service account key. The account must have
// domain-wide delegation for the mailbox it impersonates.
type Config struct {
	CredentialsFile string `env:"GMAIL_CREDENTIALS_FILE" envDefault:"service-account.json"`
}

// Client talks to one mailbox.
type Client struct {
	svc *gmailapi.Service
}

var (
	_ ingest.Source = (*Client)(nil)
	_ mailer.Sender = (*Client)(nil)
)

// New authenticates as the service account in cfg, impersonating mailbox.
func New(ctx context.Context, cfg Config, mailbox string) (*Client, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, errors.Join(ErrCredentials, err)
	}

	jwt, err := google.JWTConfigFromJSON(data, gmailapi.MailGoogleComScope)
	if err != nil {
		return nil, errors.Join(ErrCredentials, err)
	}
	jwt.Subject = mailbox

	return NewWithOptions(ctx, option.WithTokenSource(jwt.TokenSource(ctx)))
}

// NewWithOptions builds a client from raw API options.
func NewWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListMatchingMessages returns the ids of all messages matching query,
// following pagination.
func (c *Client) ListMatchingMessages(ctx context.Context, query string) ([]string, error) {
	var ids []string
	err := c.svc.Users.Messages.List(me).Q(query).Pages(ctx, func(page *gmailapi.ListMessagesResponse) error {
		for _, m := range page.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrRequest, err)
	}
	return ids, nil
}

func (c *Client) GetMessage(ctx context.Context, id string) (*ingest.Message, error) {
	msg, err := c.svc.Users.Messages.Get(me, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, errors.Join(ErrRequest, err)
	}
	return convertMessage(msg), nil
}

func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error) {
	body, err := c.svc.Users.Messages.Attachments.Get(me, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return "", errors.Join(ErrRequest, err)
	}
	return body.Data, nil
}

// Send renders email as MIME and submits it raw.
func (c *Client) Send(ctx context.Context, email *mailer.Email) error {
	raw, err := mailer.BuildMIME(email)
	if err != nil {
		return err
	}

	msg := &gmailapi.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := c.svc.Users.Messages.Send(me, msg).Context(ctx).Do(); err != nil {
		return errors.Join(ErrRequest, err)
	}
	return nil
}

func convertMessage(m *gmailapi.Message) *ingest.Message {
	out := &ingest.Message{ID: m.Id}
	if m.Payload != nil {
		out.Payload = convertPart(m.Payload)
	}
	return out
}

func convertPart(p *gmailapi.MessagePart) ingest.Part {
	part := ingest.Part{
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	for _, h := range p.Headers {
		if h != nil {
			part.Headers = append(part.Headers, ingest.Header{Name: h.Name, Value: h.Value})
		}
	}
	if p.Body != nil {
		part.Body = ingest.Body{AttachmentID: p.Body.AttachmentId, Data: p.Body.Data}
	}
	for _, child := range p.Parts {
		if child != nil {
			part.Parts = append(part.Parts, convertPart(child))
		}
	}
	return part
}
