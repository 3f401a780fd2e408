package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/qturkey/listmailer/internal/model"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

type fakeSource struct {
	messages    map[string]*Message
	attachments map[string]string
	ids         []string
	listErr     error
	gets        []string
	fetched     []string
}

func (s *fakeSource) ListMatchingMessages(_ context.Context, _ string) ([]string, error) {
	return s.ids, s.listErr
}

func (s *fakeSource) GetMessage(_ context.Context, id string) (*Message, error) {
	s.gets = append(s.gets, id)
	msg, ok := s.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *msg
	return &cp, nil
}

func (s *fakeSource) GetAttachment(_ context.Context, _, attachmentID string) (string, error) {
	s.fetched = append(s.fetched, attachmentID)
	data, ok := s.attachments[attachmentID]
	if !ok {
		return "", errors.New("attachment not found")
	}
	return data, nil
}

// fakeStore commits writes made inside InTx only when fn succeeds.
type fakeStore struct {
	mu          sync.Mutex
	templates   []model.Template
	attachments []model.Attachment
	jobs        []model.Job
	failJob     error
	nextID      int64

	staged *fakeStore
}

func (s *fakeStore) Session(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (s *fakeStore) InTx(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	s.staged = &fakeStore{nextID: s.nextID}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.staged = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append(s.templates, s.staged.templates...)
	s.attachments = append(s.attachments, s.staged.attachments...)
	s.jobs = append(s.jobs, s.staged.jobs...)
	s.nextID = s.staged.nextID
	s.staged = nil
	return nil
}

func (s *fakeStore) target() *fakeStore {
	if s.staged != nil {
		return s.staged
	}
	return s
}

func (s *fakeStore) TemplateExists(_ context.Context, externalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.ExternalMessageID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CreateTemplate(_ context.Context, t *model.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tgt := s.target()
	tgt.nextID++
	t.ID = tgt.nextID
	tgt.templates = append(tgt.templates, *t)
	return nil
}

func (s *fakeStore) CreateAttachment(_ context.Context, a *model.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tgt := s.target()
	tgt.nextID++
	a.ID = tgt.nextID
	tgt.attachments = append(tgt.attachments, *a)
	return nil
}

func (s *fakeStore) CreateJob(_ context.Context, j *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failJob != nil {
		return s.failJob
	}
	tgt := s.target()
	tgt.nextID++
	j.ID = tgt.nextID
	tgt.jobs = append(tgt.jobs, *j)
	return nil
}

func htmlMessage(id, from, subject, html string, attachments ...Part) *Message {
	parts := append([]Part{{
		MimeType: "multipart/alternative",
		Parts: []Part{
			{MimeType: "text/plain", Body: Body{Data: b64("plain")}},
			{MimeType: "text/html", Body: Body{Data: b64(html)}},
		},
	}}, attachments...)

	return &Message{
		ID: id,
		Payload: Part{
			MimeType: "multipart/mixed",
			Headers: []Header{
				{Name: "From", Value: from},
				{Name: "Subject", Value: subject},
			},
			Parts: parts,
		},
	}
}
