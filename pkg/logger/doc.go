// Package logger provides structured logging with context extraction and Sentry integration.
//
// The package extends log/slog with automatic context-based attribute
// injection and optional Sentry error reporting.
//
// # Basic Usage
//
//	log := logger.New(cfg, logger.RunIDExtractor())
//
//	ctx = logger.WithRunID(ctx)
//	log.InfoContext(ctx, "batch sent", slog.Int("sent", 600))
//	// {"level":"INFO","msg":"batch sent","sent":600,"run_id":"3f0c..."}
//
// Every scheduled tick starts with [WithRunID], so all lines produced by one
// ingestion or dispatch pass share a run_id.
//
// # Configuration
//
//	LOG_LEVEL          - debug, info, warn or error (default: info)
//	LOG_FORMAT         - json or text (default: json)
//	SENTRY_DSN         - enables Sentry when set
//	SENTRY_ENVIRONMENT - Sentry environment (default: production)
//	SENTRY_MIN_LEVEL   - lowest level forwarded to Sentry (default: warn)
//
// Errors create Sentry Issues; lower forwarded levels are stored as logs.
// If SENTRY_DSN is empty or Sentry fails to initialize, logging continues
// to stdout only.
//
// # Context Extractors
//
// A [ContextExtractor] returns an attribute to add to a record, or false to
// skip it. Extractors run on every log call, so values are always current.
// [WithExtractors] applies them to any slog.Handler.
package logger
