// Package lock implements lease based distributed locks on top of a shared
// record store. A lease is held until it is released or its expiry passes;
// it is never renewed, so work guarded by it must tolerate an overlapping
// holder once the lease runs out.
package lock

import (
	"context"
	"time"
)

// Record is the persisted state of one named lease.
type Record struct {
	Name       string
	AcquiredBy string
	AcquiredAt time.Time
	ExpiresAt  time.Time
	// Version is an opaque token rewritten on every write and used for
	// optimistic updates.
	Version string
}

// Held reports whether the lease is still live at now.
func (r Record) Held(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// Store persists lease records. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the record for name or an errors.NotFound error.
	Get(ctx context.Context, name string) (Record, error)

	// Insert creates rec. It returns an errors.Conflict error when a record
	// with the same name already exists.
	Insert(ctx context.Context, rec Record) error

	// Update overwrites the record named rec.Name only if its stored version
	// equals version, otherwise it returns an errors.Conflict error.
	Update(ctx context.Context, rec Record, version string) error

	// Delete removes the record matching both name and owner. Deleting a
	// record that does not exist or belongs to someone else is a no-op.
	Delete(ctx context.Context, name, owner string) error
}

// Service provides methods to acquire leases.
type Service interface {
	// Acquire attempts to take the lease name for ttl without blocking.
	// It returns false with a nil error when someone else holds the lease.
	Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, bool, error)
}
