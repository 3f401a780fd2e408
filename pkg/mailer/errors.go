package mailer

import "errors"

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("mailer: email must have at least one recipient")

	// ErrNoSender indicates the From address is missing.
	ErrNoSender = errors.New("mailer: email must have a sender")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("mailer: email must have a subject")

	// ErrNoContent indicates no HTML content was provided.
	ErrNoContent = errors.New("mailer: email must have HTML content")

	// ErrInvalidAddress indicates an address could not be parsed.
	ErrInvalidAddress = errors.New("mailer: invalid address")

	// ErrUnsupportedMediaType indicates an attachment type other than application/* or image/*.
	ErrUnsupportedMediaType = errors.New("mailer: unsupported attachment media type")

	// ErrBuildFailed indicates the MIME message could not be assembled.
	ErrBuildFailed = errors.New("mailer: failed to build message")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("mailer: failed to send email")
)
