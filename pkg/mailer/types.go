package mailer

import (
	"fmt"
	"net/mail"
)

// Tags are provider-specific labels attached to a message. Providers without
// tag support ignore them. Presence-only tags use struct{}{} values.
type Tags map[string]any

// Recipient formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return (&mail.Address{Name: name, Address: email}).String()
}

// Email represents a fully-prepared email message ready for sending.
type Email struct {
	Headers     map[string]string // Custom headers
	Tags        Tags              // Provider-specific tags/categories
	Subject     string            // Email subject
	HTML        string            // HTML body content
	Text        string            // Plain text alternative
	From        string            // Sender, "Name <address>" or bare address
	ReplyTo     string            // Reply-to address
	To          []string          // Recipients (at least one required)
	Attachments []Attachment      // Inline parts and file attachments
}

// Disposition tells the client how to present an attachment.
type Disposition string

const (
	DispositionAttachment Disposition = "attachment"
	DispositionInline     Disposition = "inline"
)

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string      // Display name for the attachment
	ContentType string      // MIME type, application/* or image/*
	ContentID   string      // Content-ID referenced from the HTML body via cid:
	Disposition Disposition // Inline parts need a ContentID
	Content     []byte      // Raw file content
}

// Inline reports whether the attachment is rendered as part of the body.
func (a Attachment) Inline() bool {
	return a.Disposition == DispositionInline && a.ContentID != ""
}

func (a Attachment) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", a.Filename, a.ContentType, len(a.Content))
}
