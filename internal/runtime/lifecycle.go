package runtime

import (
	"context"
	"sync"
)

// Service is a daemon component with a managed lifecycle: started once
// under the host's context, shut down once during teardown.
type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Lifecycle is the daemon-wide shutdown latch. Wait loops select on Done;
// the first Shutdown call releases them all.
type Lifecycle struct {
	once sync.Once
	done chan struct{}
}

// NewLifecycle returns an open lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{done: make(chan struct{})}
}

// Done returns the channel closed on shutdown.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Shutdown releases everyone waiting on Done. Subsequent calls are no-ops.
func (l *Lifecycle) Shutdown() {
	l.once.Do(func() { close(l.done) })
}
