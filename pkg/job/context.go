package job

import "context"

// Queue enqueues tasks by name. *Manager implements it.
type Queue interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error
}

type queueKey struct{}

// NewContext returns a context carrying q. The worker sets it for every
// task so handlers can schedule follow-up work.
func NewContext(ctx context.Context, q Queue) context.Context {
	return context.WithValue(ctx, queueKey{}, q)
}

// FromContext returns the Queue stored by NewContext.
func FromContext(ctx context.Context) (Queue, bool) {
	q, ok := ctx.Value(queueKey{}).(Queue)
	return q, ok && q != nil
}
