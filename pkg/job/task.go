package job

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// taskExecutor runs a task with its raw JSON payload.
type taskExecutor interface {
	Execute(ctx context.Context, payload json.RawMessage) error
}

// taskRegistry maps task names to executors. It is filled by options before
// the River client exists and only read afterwards, so it needs no lock.
type taskRegistry struct {
	executors  map[string]taskExecutor
	duplicates []string
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{executors: make(map[string]taskExecutor)}
}

// register keeps the first executor for a name and remembers the clash.
func (r *taskRegistry) register(name string, executor taskExecutor) {
	if _, ok := r.executors[name]; ok {
		r.duplicates = append(r.duplicates, name)
		return
	}
	r.executors[name] = executor
}

func (r *taskRegistry) get(name string) (taskExecutor, bool) {
	executor, ok := r.executors[name]
	return executor, ok
}

func (r *taskRegistry) names() []string {
	return slices.Sorted(maps.Keys(r.executors))
}

// validate reports every name registered more than once.
func (r *taskRegistry) validate() error {
	if len(r.duplicates) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrDuplicateTask, r.duplicates)
}

// payloadTask decodes the JSON payload into P before calling the handler.
// An empty payload leaves P at its zero value.
type payloadTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}] struct {
	task T
}

func (w *payloadTask[P, T]) Execute(ctx context.Context, raw json.RawMessage) error {
	var payload P
	if len(raw) == 0 {
		return w.task.Handle(ctx, payload)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, w.task.Name(), err)
	}
	return w.task.Handle(ctx, payload)
}

// scheduledTask ignores the payload, so a periodic task enqueued by name
// runs exactly like a tick.
type scheduledTask func(ctx context.Context) error

func (f scheduledTask) Execute(ctx context.Context, _ json.RawMessage) error {
	return f(ctx)
}
