package inmem

import (
	"context"
	"sync"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
)

var _ lock.Store = (*Store)(nil)

// Store implements lock.Store in process memory. It serializes leases only
// between Managers sharing the same Store value.
type Store struct {
	mu      sync.Mutex
	records map[string]lock.Record
}

// New creates a new in-memory lock store.
func New() *Store {
	return &Store{
		records: make(map[string]lock.Record),
	}
}

// Get returns the record for name.
func (s *Store) Get(ctx context.Context, name string) (lock.Record, error) {
	if err := ctx.Err(); err != nil {
		return lock.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return lock.Record{}, errors.NotFound("lock %q not found", name)
	}
	return rec, nil
}

// Insert creates rec unless a record with the same name exists.
func (s *Store) Insert(ctx context.Context, rec lock.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Name]; ok {
		return errors.Conflict("lock %q already exists", rec.Name).WithItem(rec.Name)
	}
	s.records[rec.Name] = rec
	return nil
}

// Update overwrites the record when the stored version matches.
func (s *Store) Update(ctx context.Context, rec lock.Record, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[rec.Name]
	if !ok || current.Version != version {
		return errors.Conflict("lock %q was modified concurrently", rec.Name).WithItem(rec.Name)
	}
	s.records[rec.Name] = rec
	return nil
}

// Delete removes the record held by owner.
func (s *Store) Delete(ctx context.Context, name, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.records[name]; ok && current.AcquiredBy == owner {
		delete(s.records, name)
	}
	return nil
}
