// Package pgx implements outbox.Store and outbox.Session on PostgreSQL, either
// over a pgxpool.Pool or over database/sql with the pgx driver.
package pgx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/outbox"
	"github.com/enverbisevac/txoutbox/sqlutil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ outbox.Store = (*Store)(nil)

// Store implements outbox.Store using PostgreSQL.
type Store struct {
	config Config
	db     sqlutil.DB
	begin  func(ctx context.Context) (*Tx, error)
}

// New creates a new outbox store using pgxpool.
func New(pool *pgxpool.Pool, options ...Option) *Store {
	return &Store{
		config: newConfig(options),
		db:     sqlutil.FromPgx(pool),
		begin: func(ctx context.Context) (*Tx, error) {
			tx, err := pool.Begin(ctx)
			if err != nil {
				return nil, err
			}
			return &Tx{db: sqlutil.FromPgx(tx), pgxTx: tx}, nil
		},
	}
}

// NewStdLib creates a new outbox store using database/sql.
func NewStdLib(db *sql.DB, options ...Option) *Store {
	return &Store{
		config: newConfig(options),
		db:     sqlutil.FromStdLib(db),
		begin: func(ctx context.Context) (*Tx, error) {
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return nil, err
			}
			return &Tx{db: sqlutil.FromStdLib(tx), sqlTx: tx}, nil
		},
	}
}

// Save persists messages within the given transaction.
// tx can be *Tx, pgx.Tx, *sql.Tx, or nil (Store creates its own transaction).
func (s *Store) Save(ctx context.Context, tx any, msgs ...outbox.Message) error {
	switch t := tx.(type) {
	case *Tx:
		return s.save(ctx, t.db, msgs)
	case pgx.Tx:
		return s.save(ctx, sqlutil.FromPgx(t), msgs)
	case *sql.Tx:
		return s.save(ctx, sqlutil.FromStdLib(t), msgs)
	case nil:
		own, err := s.begin(ctx)
		if err != nil {
			return fmt.Errorf("outbox: begin tx: %w", err)
		}
		defer own.Rollback(context.WithoutCancel(ctx))

		if err := s.save(ctx, own.db, msgs); err != nil {
			return err
		}
		return own.Commit(ctx)
	default:
		return fmt.Errorf("outbox: unsupported tx type %T", tx)
	}
}

func (s *Store) save(ctx context.Context, db sqlutil.DB, msgs []outbox.Message) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, message_type, payload, occurred_at, processed_at, error)
VALUES ($1, $2, $3, $4, $5, $6)`,
		s.config.table(),
	)

	for _, msg := range msgs {
		if _, err := db.Exec(ctx, query,
			msg.ID, msg.Type, msg.Payload, msg.OccurredAt, msg.ProcessedAt, msg.Error); err != nil {
			return fmt.Errorf("outbox: save: %w", err)
		}
	}
	return nil
}

// HasPending reports whether at least one message is pending.
func (s *Store) HasPending(ctx context.Context) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE processed_at IS NULL)`,
		s.config.table(),
	)

	var exists bool
	if err := s.db.QueryRow(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("outbox: has pending: %w", err)
	}
	return exists, nil
}

// FetchPending returns up to limit pending messages, oldest first.
func (s *Store) FetchPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	query := fmt.Sprintf(
		`SELECT id, message_type, payload, occurred_at, processed_at, error
FROM %s
WHERE processed_at IS NULL
ORDER BY occurred_at, id
LIMIT $1`,
		s.config.table(),
	)

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: fetch pending: %w", err)
	}

	msgs, err := sqlutil.CollectRows(rows, func(row sqlutil.Scannable) (outbox.Message, error) {
		var msg outbox.Message
		err := row.Scan(&msg.ID, &msg.Type, &msg.Payload, &msg.OccurredAt, &msg.ProcessedAt, &msg.Error)
		msg.OccurredAt = msg.OccurredAt.UTC()
		return msg, err
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: fetch pending: %w", err)
	}
	return msgs, nil
}

// Update persists the outcome of a publish attempt. A processed_at that is
// already set is never cleared.
func (s *Store) Update(ctx context.Context, msg outbox.Message) error {
	query := fmt.Sprintf(
		`UPDATE %s SET processed_at = COALESCE(processed_at, $2), error = $3 WHERE id = $1`,
		s.config.table(),
	)

	n, err := s.db.Exec(ctx, query, msg.ID, msg.ProcessedAt, msg.Error)
	if err != nil {
		return fmt.Errorf("outbox: update: %w", err)
	}
	if n == 0 {
		return errors.NotFound("outbox message %s not found", msg.ID).WithItem(msg.ID)
	}
	return nil
}
