package ingest

import (
	"context"
	"strings"
)

// Source is the inbound mailbox.
type Source interface {
	// ListMatchingMessages returns the ids of every message matching query.
	ListMatchingMessages(ctx context.Context, query string) ([]string, error)
	// GetMessage returns the full MIME tree of one message.
	GetMessage(ctx context.Context, id string) (*Message, error)
	// GetAttachment returns the base64url content of a part stored apart
	// from the message.
	GetAttachment(ctx context.Context, messageID, attachmentID string) (string, error)
}

// Message is a fetched inbound message.
type Message struct {
	ID      string
	Payload Part
}

// Part is one node of the MIME tree.
type Part struct {
	MimeType string
	Filename string
	Headers  []Header
	Body     Body
	Parts    []Part
}

// Header returns the first value of the named header, matched case-insensitively.
func (p Part) Header(name string) (string, bool) {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

type Header struct {
	Name  string
	Value string
}

// Body holds either inline base64url Data or an AttachmentID to fetch it by.
type Body struct {
	AttachmentID string
	Data         string
}
