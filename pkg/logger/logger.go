package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Format string     `env:"LOG_FORMAT" envDefault:"json"`
	Sentry SentryConfig
}

// New creates a logger writing to stdout, fanned out to Sentry when
// cfg.Sentry.DSN is set. Context extractors apply to every destination.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return newLogger(os.Stdout, cfg, extractors...)
}

func newLogger(w io.Writer, cfg Config, extractors ...ContextExtractor) *slog.Logger {
	handler := newStreamHandler(w, cfg)
	if sentryHandler, ok := newSentryHandler(cfg.Sentry, handler); ok {
		handler = fanout{handler, sentryHandler}
	}
	return slog.New(WithExtractors(handler, extractors...))
}

func newStreamHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
