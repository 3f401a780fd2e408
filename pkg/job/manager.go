package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"

	"github.com/qturkey/listmailer/pkg/logger"
)

// Manager runs registered tasks on River and enqueues new ones.
// Jobs can be enqueued before Start.
type Manager struct {
	pool     *pgxpool.Pool
	client   *river.Client[pgx.Tx]
	registry *taskRegistry
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewManager creates the River client, registers periodic tasks and
// installs the task worker. Call Start to begin processing.
func NewManager(pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}
	if cfg.maxWorkers == 0 {
		cfg.maxWorkers = defaultMaxWorkers
	}

	queues := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: cfg.maxWorkers},
	}
	for name, workers := range cfg.queues {
		queues[name] = river.QueueConfig{MaxWorkers: workers}
	}

	periodicJobs := make([]*river.PeriodicJob, 0, len(cfg.schedules))
	for _, sched := range cfg.schedules {
		schedule, err := parseCronSchedule(sched.schedule)
		if err != nil {
			return nil, fmt.Errorf("job: invalid cron schedule %q for %s: %w", sched.schedule, sched.name, err)
		}

		name := sched.name
		periodicJobs = append(periodicJobs, river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return &taskArgs{TaskName: name}, &river.InsertOpts{
					Queue:       cfg.scheduleQueue,
					MaxAttempts: 1,
				}
			},
			&river.PeriodicJobOpts{RunOnStart: cfg.runOnStart},
		))

		cfg.registry.register(name, sched.handler)
	}
	if err := cfg.registry.validate(); err != nil {
		return nil, err
	}
	if len(periodicJobs) > 0 {
		queues[cfg.scheduleQueue] = river.QueueConfig{MaxWorkers: 1}
	}

	m := &Manager{
		pool:     pool,
		registry: cfg.registry,
		logger:   cfg.logger,
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &taskWorker{
		registry: cfg.registry,
		logger:   cfg.logger,
		queue:    m,
	})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       queues,
		Workers:      workers,
		PeriodicJobs: periodicJobs,
		JobTimeout:   cfg.jobTimeout,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}
	m.client = client

	return m, nil
}

// Start begins processing jobs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("job: start client: %w", err)
	}

	m.started = true
	m.logger.Info("job manager started", slog.Any("tasks", m.registry.names()))
	return nil
}

// Stop waits for running tasks to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("job: stop client: %w", err)
	}

	m.started = false
	m.logger.Info("job manager stopped")
	return nil
}

// Enqueue inserts a job for a registered task.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	if _, ok := m.registry.get(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	args, insertOpts, err := buildArgs(name, payload, opts...)
	if err != nil {
		return err
	}

	res, err := m.client.Insert(ctx, args, insertOpts)
	if err != nil {
		return fmt.Errorf("job: enqueue %s: %w", name, err)
	}
	if res.UniqueSkippedAsDuplicate {
		m.logger.DebugContext(ctx, "duplicate job skipped",
			slog.String("task", name),
			slog.String("unique_key", args.UniqueKey),
		)
	}
	return nil
}

// Shutdown returns a shutdown function for the job manager.
func (m *Manager) Shutdown() func(context.Context) error {
	return m.Stop
}

type taskWorker struct {
	river.WorkerDefaults[taskArgs]
	registry *taskRegistry
	logger   *slog.Logger
	queue    Queue
}

func (w *taskWorker) Work(ctx context.Context, job *river.Job[taskArgs]) error {
	executor, ok := w.registry.get(job.Args.TaskName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, job.Args.TaskName)
	}

	log := w.logger.With(
		slog.String("task", job.Args.TaskName),
		slog.Int64("river_job_id", job.ID),
		slog.Int("attempt", job.Attempt),
	)
	log.DebugContext(ctx, "executing task")

	if err := executor.Execute(NewContext(ctx, w.queue), job.Args.Payload); err != nil {
		log.ErrorContext(ctx, "task failed", slog.Any("error", err))
		return err
	}

	log.DebugContext(ctx, "task completed")
	return nil
}

type cronSchedule struct {
	schedule cron.Schedule
}

func (s *cronSchedule) Next(current time.Time) time.Time {
	return s.schedule.Next(current)
}

func parseCronSchedule(expr string) (river.PeriodicSchedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronSchedule{schedule: schedule}, nil
}
