package pgx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/enverbisevac/txoutbox/sqlutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ lock.Store = (*Store)(nil)

// Store implements lock.Store using a PostgreSQL table.
type Store struct {
	config Config
	db     sqlutil.DB
}

func newConfig(options []Option) Config {
	config := Config{
		Schema:    "outbox",
		TableName: "locks",
	}
	for _, opt := range options {
		opt.Apply(&config)
	}
	return config
}

// New creates a new lock store using pgxpool.
func New(pool *pgxpool.Pool, options ...Option) *Store {
	return &Store{
		config: newConfig(options),
		db:     sqlutil.FromPgx(pool),
	}
}

// NewStdLib creates a new lock store using database/sql with the pgx driver.
func NewStdLib(db *sql.DB, options ...Option) *Store {
	return &Store{
		config: newConfig(options),
		db:     sqlutil.FromStdLib(db),
	}
}

// Get returns the record for name.
func (s *Store) Get(ctx context.Context, name string) (lock.Record, error) {
	query := fmt.Sprintf(
		`SELECT name, acquired_by, acquired_at, expires_at, version FROM %s WHERE name = $1`,
		s.config.table(),
	)

	var rec lock.Record
	err := s.db.QueryRow(ctx, query, name).Scan(
		&rec.Name, &rec.AcquiredBy, &rec.AcquiredAt, &rec.ExpiresAt, &rec.Version,
	)
	if err != nil {
		if sqlutil.IsNoRows(err) {
			return lock.Record{}, errors.NotFound("lock %q not found", name)
		}
		return lock.Record{}, fmt.Errorf("lock: get: %w", err)
	}
	return rec, nil
}

// Insert creates rec unless a record with the same name exists.
func (s *Store) Insert(ctx context.Context, rec lock.Record) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (name, acquired_by, acquired_at, expires_at, version)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO NOTHING`,
		s.config.table(),
	)

	n, err := s.db.Exec(ctx, query, rec.Name, rec.AcquiredBy, rec.AcquiredAt, rec.ExpiresAt, rec.Version)
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
		`UPDATE %s SET acquired_by = $2, acquired_at = $3, expires_at = $4, version = $5
WHERE name = $1 AND version = $6`,
		s.config.table(),
	)

	n, err := s.db.Exec(ctx, query, rec.Name, rec.AcquiredBy, rec.AcquiredAt, rec.ExpiresAt, rec.Version, version)
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
	query := fmt.Sprintf(`DELETE FROM %s WHERE name = $1 AND acquired_by = $2`, s.config.table())

	if _, err := s.db.Exec(ctx, query, name, owner); err != nil {
		return fmt.Errorf("lock: delete: %w", err)
	}
	return nil
}
