package ingest

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/qturkey/listmailer/internal/model"
)

// subjectPattern strips the list tag: "[mail-list] Spring news" -> "Spring news".
var subjectPattern = regexp.MustCompile(`^\[.*\]\s*(.+)$`)

const (
	mimeHTML        = "text/html"
	mimeAlternative = "multipart/alternative"
)

// parsed is a message decoded in memory, not yet persisted.
type parsed struct {
	template    model.Template
	attachments []pendingAttachment
	authorized  bool
}

// pendingAttachment is an attachment whose content may still live at the source.
type pendingAttachment struct {
	attachment   model.Attachment
	attachmentID string
}

func parseSubject(header string) (string, error) {
	m := subjectPattern.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedSubject, header)
	}
	return strings.TrimSpace(m[1]), nil
}

// parseSender returns the bare lowercase address of a From header.
func parseSender(header string) (string, error) {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrMalformedSender, header, err)
	}
	return strings.ToLower(addr.Address), nil
}

func parseMessage(msg *Message) (*parsed, error) {
	subjectHeader, ok := msg.Payload.Header("Subject")
	if !ok {
		return nil, fmt.Errorf("%w: Subject", ErrMissingHeader)
	}
	fromHeader, ok := msg.Payload.Header("From")
	if !ok {
		return nil, fmt.Errorf("%w: From", ErrMissingHeader)
	}

	subject, err := parseSubject(subjectHeader)
	if err != nil {
		return nil, err
	}
	sender, err := parseSender(fromHeader)
	if err != nil {
		return nil, err
	}

	w := &walker{}
	if err := w.walk(msg.Payload); err != nil {
		return nil, err
	}
	if !w.found {
		return nil, ErrMissingBody
	}

	return &parsed{
		template: model.Template{
			ExternalMessageID: msg.ID,
			Sender:            sender,
			Subject:           subject,
			Body:              w.body,
		},
		attachments: w.attachments,
	}, nil
}

type walker struct {
	body        string
	attachments []pendingAttachment
	found       bool
}

func (w *walker) walk(p Part) error {
	mimeType := strings.ToLower(p.MimeType)
	switch {
	case mimeType == mimeHTML:
		return w.setBody(p)
	case mimeType == mimeAlternative:
		for _, child := range p.Parts {
			if strings.EqualFold(child.MimeType, mimeHTML) {
				return w.setBody(child)
			}
		}
		return nil
	case strings.HasPrefix(mimeType, "multipart/"):
		for _, child := range p.Parts {
			if err := w.walk(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return w.addAttachment(p)
	}
}

// setBody keeps the first HTML body found in document order.
func (w *walker) setBody(p Part) error {
	if w.found {
		return nil
	}
	raw, err := model.DecodeBase64(p.Body.Data)
	if err != nil {
		return fmt.Errorf("%w: html body: %w", ErrMalformedPart, err)
	}
	w.body = string(raw)
	w.found = true
	return nil
}

func (w *walker) addAttachment(p Part) error {
	contentType, ok := p.Header("Content-Type")
	if !ok {
		return fmt.Errorf("%w: Content-Type of %s part", ErrMissingHeader, p.MimeType)
	}
	contentID, _ := p.Header("Content-ID")
	disposition, _ := p.Header("Content-Disposition")

	if p.Body.AttachmentID == "" && p.Body.Data == "" {
		return fmt.Errorf("%w: %s part has no content", ErrMalformedPart, p.MimeType)
	}

	filename := p.Filename
	if filename == "" {
		filename = fmt.Sprintf("attachment-%d", len(w.attachments)+1)
	}

	w.attachments = append(w.attachments, pendingAttachment{
		attachment: model.Attachment{
			ContentID:          contentID,
			ContentType:        contentType,
			ContentDisposition: disposition,
			Filename:           filename,
			EncodedContent:     p.Body.Data,
		},
		attachmentID: p.Body.AttachmentID,
	})
	return nil
}

// fetch resolves attachment content stored apart from the message.
func (a *pendingAttachment) fetch(ctx context.Context, src Source, messageID string) error {
	if a.attachmentID == "" {
		return nil
	}
	data, err := src.GetAttachment(ctx, messageID, a.attachmentID)
	if err != nil {
		return fmt.Errorf("ingest: fetch attachment %s: %w", a.attachmentID, err)
	}
	a.attachment.EncodedContent = data
	return nil
}
