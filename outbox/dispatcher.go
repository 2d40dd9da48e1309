package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Dispatcher drains pending messages through a Cycler and then idles until
// the trigger fires or the poll interval elapses.
//
// A cycle that publishes nothing ends the drain: pending messages that only
// fail are retried after the next trigger or poll interval, not in a loop.
type Dispatcher struct {
	store     Store
	processor Cycler
	trigger   *Trigger
	config    Config

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDispatcher creates a new Dispatcher. A nil trigger leaves the
// dispatcher relying on polling alone.
func NewDispatcher(store Store, processor Cycler, trigger *Trigger, options ...Option) *Dispatcher {
	if trigger == nil {
		trigger = NewTrigger()
	}
	return &Dispatcher{
		store:     store,
		processor: processor,
		trigger:   trigger,
		config:    newConfig(options),
	}
}

// Start runs the dispatcher on its own goroutine. Only the first call has
// an effect.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = d.Run(ctx)
	}(d.done)
}

// Stop cancels the dispatcher started with Start and waits for it to finish.
// It returns at once when Start was never called.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run blocks until ctx is cancelled. Cancellation is a clean exit and
// returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("outbox dispatcher started")
	defer log.Info("outbox dispatcher stopped")

	for {
		// taken before draining so a commit racing with the drain is not missed
		wake := d.trigger.Signal()

		state, err := d.drain(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Error(err, "outbox: dispatch failed")
			continue
		}

		wait := d.config.PollInterval
		if state == drainContended {
			wait = d.config.ContentionDelay
		}
		if !d.idle(ctx, wake, wait) {
			return nil
		}
	}
}

type drainState int

const (
	drainEmpty drainState = iota
	drainContended
	drainStalled
)

func (d *Dispatcher) drain(ctx context.Context) (state drainState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("outbox: dispatch panicked: %v", r)
		}
	}()

	for {
		pending, err := d.store.HasPending(ctx)
		if err != nil {
			return drainEmpty, fmt.Errorf("outbox: check pending: %w", err)
		}
		if !pending {
			return drainEmpty, nil
		}

		res, err := d.processor.Process(ctx)
		if err != nil {
			return drainEmpty, err
		}
		if !res.Acquired {
			return drainContended, nil
		}
		if res.Published == 0 {
			// only failing messages are left; retry them on the next wake-up
			return drainStalled, nil
		}
	}
}

// idle reports false when ctx is done.
func (d *Dispatcher) idle(ctx context.Context, wake <-chan struct{}, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-wake:
	case <-timer.C:
	}
	return true
}
