package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/timeutil"
	"github.com/google/uuid"
)

var _ Service = (*Manager)(nil)

// Manager implements Service over a Store.
type Manager struct {
	store  Store
	owner  Owner
	config Config
}

// New creates a Manager acquiring leases on behalf of owner.
func New(store Store, owner Owner, options ...Option) *Manager {
	config := Config{
		Clock: timeutil.SystemClock{},
	}
	for _, opt := range options {
		opt.Apply(&config)
	}
	return &Manager{
		store:  store,
		owner:  owner,
		config: config,
	}
}

// Owner returns the identity written into acquired records.
func (m *Manager) Owner() Owner {
	return m.owner
}

// Acquire attempts to take the lease name for ttl.
//
// A missing record is inserted, an expired one is taken over with an
// optimistic update against the version that was read. Losing either race,
// or finding a live record, yields false and leaves the record untouched.
func (m *Manager) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	if ttl <= 0 {
		return nil, false, errors.PreconditionFailed("lock: ttl must be positive, got %s", ttl)
	}

	now := m.config.Clock.Now()
	rec := Record{
		Name:       name,
		AcquiredBy: string(m.owner),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
		Version:    uuid.NewString(),
	}

	existing, err := m.store.Get(ctx, name)
	switch {
	case errors.IsNotFound(err):
		if err := m.store.Insert(ctx, rec); err != nil {
			if errors.IsConflict(err) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("lock: insert %q: %w", name, err)
		}
		return m.lease(name), true, nil
	case err != nil:
		return nil, false, fmt.Errorf("lock: get %q: %w", name, err)
	}

	if existing.Held(now) {
		return nil, false, nil
	}

	if err := m.store.Update(ctx, rec, existing.Version); err != nil {
		if errors.IsConflict(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lock: take over %q: %w", name, err)
	}
	return m.lease(name), true, nil
}

func (m *Manager) lease(name string) *Lease {
	return &Lease{
		store: m.store,
		name:  name,
		owner: string(m.owner),
	}
}

// Lease is an acquired lock. Release it when the guarded work is done.
type Lease struct {
	store Store
	name  string
	owner string

	mu       sync.Mutex
	released bool
}

// Name returns the lock name.
func (l *Lease) Name() string {
	return l.name
}

// Release deletes the record if this owner still holds it. Calling Release
// more than once is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil
	}
	if err := l.store.Delete(ctx, l.name, l.owner); err != nil {
		return fmt.Errorf("lock: release %q: %w", l.name, err)
	}
	l.released = true
	return nil
}
