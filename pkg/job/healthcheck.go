package job

import (
	"context"
	"errors"
	"fmt"
)

var (
	errManagerNil        = errors.New("manager is nil")
	errManagerNotStarted = errors.New("manager not started")
)

// Healthcheck fails until Start has succeeded and after Stop, and whenever
// the queue database does not answer.
func Healthcheck(m *Manager) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if m == nil {
			return fmt.Errorf("%w: %w", ErrHealthcheckFailed, errManagerNil)
		}
		if !m.running() {
			return fmt.Errorf("%w: %w", ErrHealthcheckFailed, errManagerNotStarted)
		}
		if err := m.pool.Ping(ctx); err != nil {
			return fmt.Errorf("%w: queue database: %w", ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func (m *Manager) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}
