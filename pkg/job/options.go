package job

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultMaxWorkers    = 10
	defaultScheduleQueue = "scheduled"
)

type config struct {
	registry      *taskRegistry
	queues        map[string]int
	logger        *slog.Logger
	scheduleQueue string
	schedules     []scheduleConfig
	maxWorkers    int
	jobTimeout    time.Duration
	runOnStart    bool
}

func newConfig() *config {
	return &config{
		registry:      newTaskRegistry(),
		queues:        make(map[string]int),
		scheduleQueue: defaultScheduleQueue,
	}
}

type scheduleConfig struct {
	handler  scheduledTask
	name     string
	schedule string
}

// Option configures the job manager.
type Option func(*config)

// WithTask registers a task whose payload type P is inferred from Handle.
//
//	job.WithTask(tasks.NewContinue(dispatcher))
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), &payloadTask[P, T]{task: task})
	}
}

// WithScheduledTask registers a periodic task. Schedule returns a 5-field
// cron expression. Periodic runs go to the schedule queue with a single
// attempt so a failed run waits for the next tick instead of retrying.
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
			handler:  task.Handle,
		})
	}
}

// WithQueue configures a named queue with the given number of workers.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if name != "" && workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithScheduleQueue sets the queue used for periodic tasks. The queue runs
// a single worker, so periodic tasks never overlap each other.
func WithScheduleQueue(name string) Option {
	return func(c *config) {
		if name != "" {
			c.scheduleQueue = name
		}
	}
}

// WithLogger sets the logger for job processing.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers sets the worker count of the default queue.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithJobTimeout bounds a single task run. A negative value disables the
// timeout, zero keeps the River default.
func WithJobTimeout(d time.Duration) Option {
	return func(c *config) {
		c.jobTimeout = d
	}
}

// WithRunOnStart makes periodic tasks run once when the manager starts.
func WithRunOnStart(v bool) Option {
	return func(c *config) {
		c.runOnStart = v
	}
}
