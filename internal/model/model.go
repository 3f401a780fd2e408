// Package model defines the typed records persisted by the mailer.
package model

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// JobStatus is the state of a Job.
// Transitions only go forward: pending -> started -> finished.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobStarted  JobStatus = "started"
	JobFinished JobStatus = "finished"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobStarted, JobFinished:
		return true
	}
	return false
}

// ErrInvalidContent is returned when attachment content is not valid base64.
var ErrInvalidContent = errors.New("model: attachment content is not valid base64")

// Address is a recipient. Ascending ID order is the pagination cursor.
type Address struct {
	UnsubscribedAt *time.Time
	Address        string
	ID             int64
}

// Subscribed reports whether the recipient still receives mail.
func (a Address) Subscribed() bool { return a.UnsubscribedAt == nil }

// Template is the captured content of one inbound source message.
type Template struct {
	CreatedAt         time.Time
	ExternalMessageID string
	Sender            string
	Subject           string
	Body              string
	ID                int64
}

// Attachment belongs to exactly one Template.
// EncodedContent keeps the base64url payload exactly as received from the source.
type Attachment struct {
	ContentID          string
	ContentType        string
	ContentDisposition string
	Filename           string
	EncodedContent     string
	ID                 int64
	TemplateID         int64
}

// Decode returns the raw attachment bytes.
func (a Attachment) Decode() ([]byte, error) {
	return DecodeBase64(a.EncodedContent)
}

// DecodeBase64 decodes message source payloads. Both padded and unpadded
// base64url are accepted, with standard base64 as a fallback.
func DecodeBase64(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding, base64.RawStdEncoding} {
		if b, err := enc.DecodeString(data); err == nil {
			return b, nil
		}
	}
	return nil, ErrInvalidContent
}

// Inline reports whether the attachment is meant to be displayed in the body.
func (a Attachment) Inline() bool {
	disposition := strings.ToLower(strings.TrimSpace(a.ContentDisposition))
	return strings.HasPrefix(disposition, "inline")
}

// Job is one bounded unit of batch work: send TemplateID to the addresses with
// id > AddressStartIndex, up to the batch limit.
type Job struct {
	ScheduledTo       time.Time
	StartedAt         *time.Time
	FinishedAt        *time.Time
	Status            JobStatus
	ID                int64
	TemplateID        int64
	AddressStartIndex int64
}

// Continuation returns the pending job that resumes after lastAddressID.
func (j Job) Continuation(lastAddressID int64, scheduledTo time.Time) Job {
	return Job{
		Status:            JobPending,
		ScheduledTo:       Minute(scheduledTo),
		TemplateID:        j.TemplateID,
		AddressStartIndex: lastAddressID,
	}
}

// JobStats summarizes the delivery log of one job.
type JobStats struct {
	Job    Job
	Sent   int64
	Failed int64
}

// SentMail is one append-only delivery log row.
type SentMail struct {
	SentAt     time.Time
	Traceback  *string
	Address    string
	ID         int64
	JobID      int64
	TemplateID int64
	Success    bool
}

// Minute truncates t to minute granularity in UTC, the resolution of every
// persisted timestamp.
func Minute(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
