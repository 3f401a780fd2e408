package health

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/qturkey/listmailer/pkg/logger"
)

const (
	defaultTimeout = 5 * time.Second

	// StatusHealthy indicates all checks passed.
	StatusHealthy = "healthy"
	// StatusUnhealthy indicates one or more checks failed.
	StatusUnhealthy = "unhealthy"
)

// CheckFunc is the standard health check function signature.
type CheckFunc func(ctx context.Context) error

// Checks is a map of named health check functions.
type Checks map[string]CheckFunc

// Response represents a health check response.
type Response struct {
	Checks map[string]Check `json:"checks,omitempty"`
	Status string           `json:"status"`
}

// Check represents the status of a single health check.
type Check struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures health check behavior.
type Option func(*config)

// WithTimeout sets the timeout shared by all checks of one request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used to report failing checks.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  logger.NewNope(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes all checks concurrently under one shared deadline.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	return runChecks(ctx, checks, newConfig(opts...))
}

type namedCheck struct {
	name string
	Check
}

func runChecks(ctx context.Context, checks Checks, cfg *config) *Response {
	resp := &Response{Status: StatusHealthy}
	if len(checks) == 0 {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	out := make(chan namedCheck, len(checks))
	for name, check := range checks {
		go func() {
			start := time.Now()
			err := check(ctx)
			res := namedCheck{name: name, Check: Check{
				Status:  StatusHealthy,
				Latency: time.Since(start).Round(time.Microsecond).String(),
			}}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
			}
			out <- res
		}()
	}

	resp.Checks = make(map[string]Check, len(checks))
	for range len(checks) {
		res := <-out
		resp.Checks[res.name] = res.Check
		if res.Status == StatusUnhealthy {
			resp.Status = StatusUnhealthy
			cfg.logger.WarnContext(ctx, "health check failed",
				slog.String("check", res.name),
				slog.String("error", res.Error),
			)
		}
	}
	return resp
}

// Failing returns the names of the failed checks in sorted order.
func (r *Response) Failing() []string {
	var names []string
	for name, c := range r.Checks {
		if c.Status == StatusUnhealthy {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
