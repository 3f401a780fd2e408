package mailer

import (
	"bytes"
	"errors"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
)

// BuildMIME renders email as an RFC 5322 message: an HTML body, inline parts
// addressed by Content-ID and regular attachments.
func BuildMIME(email *Email) ([]byte, error) {
	if err := Validate(email); err != nil {
		return nil, err
	}

	from, err := mail.ParseAddress(email.From)
	if err != nil {
		return nil, errors.Join(ErrInvalidAddress, err)
	}

	b := enmime.Builder().
		From(from.Name, from.Address).
		Subject(email.Subject).
		HTML([]byte(email.HTML))

	for _, to := range email.To {
		addr, err := mail.ParseAddress(to)
		if err != nil {
			return nil, errors.Join(ErrInvalidAddress, err)
		}
		b = b.To(addr.Name, addr.Address)
	}

	if email.ReplyTo != "" {
		addr, err := mail.ParseAddress(email.ReplyTo)
		if err != nil {
			return nil, errors.Join(ErrInvalidAddress, err)
		}
		b = b.ReplyTo(addr.Name, addr.Address)
	}

	if email.Text != "" {
		b = b.Text([]byte(email.Text))
	}

	for name, value := range email.Headers {
		b = b.Header(name, value)
	}

	for _, a := range email.Attachments {
		if a.Inline() {
			b = b.AddInline(a.Content, MediaType(a.ContentType), a.Filename, BareContentID(a.ContentID))
			continue
		}
		b = b.AddAttachment(a.Content, MediaType(a.ContentType), a.Filename)
	}

	root, err := b.Build()
	if err != nil {
		return nil, errors.Join(ErrBuildFailed, err)
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, errors.Join(ErrBuildFailed, err)
	}
	return buf.Bytes(), nil
}

// BareContentID strips the angle brackets of a Content-ID header value.
func BareContentID(id string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(id), "<"), ">")
}
