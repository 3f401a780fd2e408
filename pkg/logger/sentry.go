package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// MinLevel determines which log levels are sent to Sentry.
	MinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"warn"`
}

// newSentryHandler initializes the Sentry SDK. It returns false when no DSN
// is configured or initialization fails, in which case logging stays local.
func newSentryHandler(cfg SentryConfig, fallback slog.Handler) (slog.Handler, bool) {
	if cfg.DSN == "" {
		return nil, false
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(fallback).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return nil, false
	}

	// Errors create Issues; lower levels down to MinLevel are kept as logs.
	eventLevel := []slog.Level{slog.LevelError}
	var logLevel []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= cfg.MinLevel {
			logLevel = append(logLevel, l)
		}
	}

	return sentryslog.Option{
		EventLevel: eventLevel,
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background()), true
}

// FlushSentry returns a shutdown hook that delivers buffered Sentry events.
// It is a no-op when Sentry was never initialized.
func FlushSentry() func(context.Context) error {
	return func(ctx context.Context) error {
		timeout := 2 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		sentry.Flush(timeout)
		return nil
	}
}
