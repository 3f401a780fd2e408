package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnexpectedReply is returned when the gate script answers with an unknown shape.
var ErrUnexpectedReply = errors.New("throttle: unexpected redis reply")

// fixedWindow admits the first INCR of each window and reports the window's
// remaining time in milliseconds.
var fixedWindow = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then redis.call('PEXPIRE', KEYS[1], ARGV[1]) end
local ttl = redis.call('PTTL', KEYS[1])
return {current, ttl}
`)

// Redis is a fixed-window gate admitting one operation per interval across
// every process sharing key, so several senders on one provider account
// stay under a common rate.
type Redis struct {
	client   redis.Scripter
	key      string
	interval time.Duration
}

// NewRedis creates a shared gate on client.
func NewRedis(client redis.Scripter, key string, interval time.Duration) *Redis {
	return &Redis{client: client, key: "throttle:" + key, interval: interval}
}

// Wait implements Throttle. It retries after the window's remaining time
// until a slot is admitted or ctx is done.
func (r *Redis) Wait(ctx context.Context) error {
	if r.interval <= 0 {
		return ctx.Err()
	}
	for {
		ok, retryIn, err := r.allow(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if retryIn <= 0 {
			retryIn = time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryIn):
		}
	}
}

func (r *Redis) allow(ctx context.Context) (bool, time.Duration, error) {
	res, err := fixedWindow.Run(ctx, r.client, []string{r.key}, r.interval.Milliseconds()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("throttle: run gate script: %w", err)
	}
	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return false, 0, ErrUnexpectedReply
	}
	current, ok1 := arr[0].(int64)
	ttl, ok2 := arr[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, ErrUnexpectedReply
	}
	if current <= 1 {
		return true, 0, nil
	}
	return false, time.Duration(ttl) * time.Millisecond, nil
}
