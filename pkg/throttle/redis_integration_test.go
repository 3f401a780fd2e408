//go:build integration

package throttle

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_SharedGate(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	key := uuid.NewString()
	a := NewRedis(client, key, 100*time.Millisecond)
	b := NewRedis(client, key, 100*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, a.Wait(ctx))
	require.NoError(t, b.Wait(ctx))
	require.NoError(t, a.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
}
