// Package sqlite implements lock.Store on SQLite through database/sql.
// Register a driver (for example modernc.org/sqlite) before opening the
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/enverbisevac/txoutbox/sqlutil"
)

var _ lock.Store = (*Store)(nil)

// Store implements lock.Store using a SQLite table.
type Store struct {
	config Config
	db     sqlutil.DB
}

// New creates a new lock store.
func New(db *sql.DB, options ...Option) *Store {
	config := Config{
		TableName: "outbox_locks",
	}
	for _, opt := range options {
		opt.Apply(&config)
	}
	return &Store{
		config: config,
		db:     sqlutil.FromStdLib(db),
	}
}

// Get returns the record for name.
func (s *Store) Get(ctx context.Context, name string) (lock.Record, error) {
	query := fmt.Sprintf(
		`SELECT name, acquired_by, acquired_at, expires_at, version FROM %s WHERE name = ?`,
		s.config.TableName,
	)

	var (
		rec                   lock.Record
		acquiredAt, expiresAt int64
	)
	err := s.db.QueryRow(ctx, query, name).Scan(&rec.Name, &rec.AcquiredBy, &acquiredAt, &expiresAt, &rec.Version)
	if err != nil {
		if sqlutil.IsNoRows(err) {
			return lock.Record{}, errors.NotFound("lock %q not found", name)
		}
		return lock.Record{}, fmt.Errorf("lock: get: %w", err)
	}
	rec.AcquiredAt = fromNanos(acquiredAt)
	rec.ExpiresAt = fromNanos(expiresAt)
	return rec, nil
}

// Insert creates rec unless a record with the same name exists.
func (s *Store) Insert(ctx context.Context, rec lock.Record) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (name, acquired_by, acquired_at, expires_at, version)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (name) DO NOTHING`,
		s.config.TableName,
	)

	n, err := s.db.Exec(ctx, query,
		rec.Name, rec.AcquiredBy, rec.AcquiredAt.UnixNano(), rec.ExpiresAt.UnixNano(), rec.Version)
	if err != nil {
		return fmt.Errorf("lock: insert: %w", err)
	}
	if n == 0 {
		return errors.Conflict("lock %q already exists", rec.Name).WithItem(rec.Name)
	}
	return nil
}

// Update overwrites the record when the stored version matches.
func (s *Store) Update(ctx context.Context, rec lock.Record, version string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET acquired_by = ?, acquired_at = ?, expires_at = ?, version = ?
WHERE name = ? AND version = ?`,
		s.config.TableName,
	)

	n, err := s.db.Exec(ctx, query,
		rec.AcquiredBy, rec.AcquiredAt.UnixNano(), rec.ExpiresAt.UnixNano(), rec.Version, rec.Name, version)
	if err != nil {
		return fmt.Errorf("lock: update: %w", err)
	}
	if n == 0 {
		return errors.Conflict("lock %q was modified concurrently", rec.Name).WithItem(rec.Name)
	}
	return nil
}

// Delete removes the record held by owner.
func (s *Store) Delete(ctx context.Context, name, owner string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE name = ? AND acquired_by = ?`, s.config.TableName)

	if _, err := s.db.Exec(ctx, query, name, owner); err != nil {
		return fmt.Errorf("lock: delete: %w", err)
	}
	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
