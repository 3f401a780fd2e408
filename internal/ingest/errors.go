package ingest

import "errors"

var (
	ErrMissingHeader    = errors.New("ingest: missing header")
	ErrMalformedSubject = errors.New("ingest: malformed subject")
	ErrMalformedSender  = errors.New("ingest: malformed sender")
	ErrMissingBody      = errors.New("ingest: no html body")
	ErrMalformedPart    = errors.New("ingest: malformed part")
)
