package outbox

import (
	"context"
	"sync"
)

// Trigger wakes the dispatcher after a commit. Every Fire releases all
// goroutines waiting at that moment; fires with no waiters are coalesced
// and never observed by later waiters. The zero value is ready to use.
type Trigger struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewTrigger creates a Trigger.
func NewTrigger() *Trigger {
	return &Trigger{ch: make(chan struct{})}
}

// Signal returns a channel closed by the next Fire.
func (t *Trigger) Signal() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ch == nil {
		t.ch = make(chan struct{})
	}
	return t.ch
}

// Fire releases all current waiters.
func (t *Trigger) Fire() {
	t.mu.Lock()
	prev := t.ch
	t.ch = make(chan struct{})
	t.mu.Unlock()

	if prev != nil {
		close(prev)
	}
}

// Wait blocks until the next Fire or until ctx is done.
func (t *Trigger) Wait(ctx context.Context) error {
	select {
	case <-t.Signal():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
