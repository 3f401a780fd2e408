package mailer

import (
	"fmt"
	"mime"
	"strings"
)

// CheckMediaType accepts application/* and image/* content types.
// Parameters such as name="report.pdf" are allowed.
func CheckMediaType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrUnsupportedMediaType, contentType, err)
	}
	mainType, _, _ := strings.Cut(mediaType, "/")
	switch mainType {
	case "application", "image":
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
}

// MediaType returns the bare media type of contentType, without parameters.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(contentType)
	}
	return mediaType
}
