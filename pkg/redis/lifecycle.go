package redis

import (
	"context"
	"errors"
	"io"

	"github.com/redis/go-redis/v9"
)

// Healthcheck pings the shared throttle store. Without a client it reports
// healthy, since the local throttle does not need Redis.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return nil
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Shutdown closes client once the dispatcher has stopped using it.
func Shutdown(client io.Closer) func(context.Context) error {
	return func(context.Context) error {
		if client == nil {
			return nil
		}
		return client.Close()
	}
}
