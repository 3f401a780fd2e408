//go:build integration

package job_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qturkey/listmailer/pkg/db"
	"github.com/qturkey/listmailer/pkg/job"
	"github.com/qturkey/listmailer/pkg/logger"
)

type signalTask struct {
	done chan struct{}
}

func (signalTask) Name() string { return "signal" }

func (t signalTask) Handle(context.Context, struct{}) error {
	close(t.done)
	return nil
}

func TestManager_EnqueueAndRun(t *testing.T) {
	url := os.Getenv("DATABASE_CONN_URL")
	if url == "" {
		t.Skip("DATABASE_CONN_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, db.Config{ConnectionString: url, MaxOpenConns: 5, RetryAttempts: 1})
	require.NoError(t, err)
	defer pool.Close()

	log := logger.NewNope()
	require.NoError(t, job.Migrate(ctx, pool, log))

	task := signalTask{done: make(chan struct{})}
	m, err := job.NewManager(pool, job.WithLogger(log), job.WithTask[struct{}](task))
	require.NoError(t, err)

	require.NoError(t, m.Enqueue(ctx, "signal", nil))
	require.ErrorIs(t, m.Enqueue(ctx, "missing", nil), job.ErrUnknownTask)

	require.NoError(t, m.Start(ctx))
	defer func() { _ = m.Stop(context.Background()) }()

	require.NoError(t, job.Healthcheck(m)(ctx))

	select {
	case <-task.done:
	case <-ctx.Done():
		t.Fatal("task did not run")
	}
}
