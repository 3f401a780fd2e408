// Package throttle spaces out outbound sends.
//
// A [Throttle] blocks until the caller may perform its next operation. The
// dispatcher waits on it before every send, including the first one, so the gap
// between two deliveries is never shorter than the configured interval.
//
// Implementations:
//
//   - [Interval]: in-process limiter on golang.org/x/time/rate
//   - [Redis]: gate shared by every process using the same key
//   - [Nop]: never waits, for tests and manual runs
package throttle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle gates consecutive operations.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Interval allows one operation per interval.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates a limiter admitting one operation every d.
// A non-positive d disables throttling.
func NewInterval(d time.Duration) *Interval {
	if d <= 0 {
		return &Interval{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Interval{limiter: rate.NewLimiter(rate.Every(d), 1)}
}

// Wait implements Throttle.
func (i *Interval) Wait(ctx context.Context) error {
	return i.limiter.Wait(ctx)
}

// Nop never waits.
type Nop struct{}

// Wait implements Throttle.
func (Nop) Wait(ctx context.Context) error { return ctx.Err() }

// Func adapts a function to Throttle.
type Func func(ctx context.Context) error

// Wait implements Throttle.
func (f Func) Wait(ctx context.Context) error { return f(ctx) }
