package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type runIDKey struct{}

// WithRunID returns a context carrying a fresh run id. Every line logged with
// that context gets a run_id attribute when RunIDExtractor is installed, which
// groups the output of one scheduled tick.
func WithRunID(ctx context.Context) context.Context {
	return context.WithValue(ctx, runIDKey{}, uuid.NewString())
}

// RunID returns the run id stored in ctx.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// RunIDExtractor injects the run id into log records.
func RunIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := RunID(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("run_id", id), true
	}
}
