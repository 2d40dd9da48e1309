// Package sqlite implements outbox.Store and outbox.Session on SQLite through
// database/sql. Register a driver (for example modernc.org/sqlite) before
// opening the database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/outbox"
	"github.com/enverbisevac/txoutbox/sqlutil"
)

var (
	_ outbox.Store   = (*Store)(nil)
	_ outbox.Session = (*Session)(nil)
	_ outbox.StoreTx = (*Tx)(nil)
)

// Store implements outbox.Store using a SQLite table.
type Store struct {
	config Config
	sqlDB  *sql.DB
	db     sqlutil.DB
}

// New creates a new outbox store.
func New(db *sql.DB, options ...Option) *Store {
	config := Config{
		TableName: "outbox_messages",
	}
	for _, opt := range options {
		opt.Apply(&config)
	}
	return &Store{
		config: config,
		sqlDB:  db,
		db:     sqlutil.FromStdLib(db),
	}
}

// Save persists messages within the given transaction.
// tx can be *Tx, *sql.Tx, or nil (Store creates its own transaction).
func (s *Store) Save(ctx context.Context, tx any, msgs ...outbox.Message) error {
	switch t := tx.(type) {
	case *Tx:
		return s.save(ctx, t.db, msgs)
	case *sql.Tx:
		return s.save(ctx, sqlutil.FromStdLib(t), msgs)
	case nil:
		own, err := s.sqlDB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("outbox: begin tx: %w", err)
		}
		defer own.Rollback()

		if err := s.save(ctx, sqlutil.FromStdLib(own), msgs); err != nil {
			return err
		}
		return own.Commit()
	default:
		return fmt.Errorf("outbox: unsupported tx type %T", tx)
	}
}

func (s *Store) save(ctx context.Context, db sqlutil.DB, msgs []outbox.Message) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, message_type, payload, occurred_at, processed_at, error)
VALUES (?, ?, ?, ?, ?, ?)`,
		s.config.TableName,
	)

	for _, msg := range msgs {
		if _, err := db.Exec(ctx, query,
			msg.ID, msg.Type, msg.Payload, msg.OccurredAt.UnixNano(), toNanos(msg.ProcessedAt), msg.Error); err != nil {
			return fmt.Errorf("outbox: save: %w", err)
		}
	}
	return nil
}

// HasPending reports whether at least one message is pending.
func (s *Store) HasPending(ctx context.Context) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE processed_at IS NULL)`,
		s.config.TableName,
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
LIMIT ?`,
		s.config.TableName,
	)

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: fetch pending: %w", err)
	}

	msgs, err := sqlutil.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("outbox: fetch pending: %w", err)
	}
	return msgs, nil
}

func scanMessage(row sqlutil.Scannable) (outbox.Message, error) {
	var (
		msg         outbox.Message
		occurredAt  int64
		processedAt sql.NullInt64
		lastErr     sql.NullString
	)
	if err := row.Scan(&msg.ID, &msg.Type, &msg.Payload, &occurredAt, &processedAt, &lastErr); err != nil {
		return outbox.Message{}, err
	}
	msg.OccurredAt = fromNanos(occurredAt)
	if processedAt.Valid {
		t := fromNanos(processedAt.Int64)
		msg.ProcessedAt = &t
	}
	if lastErr.Valid {
		msg.Error = &lastErr.String
	}
	return msg, nil
}

// Update persists the outcome of a publish attempt. A processed_at that is
// already set is never cleared.
func (s *Store) Update(ctx context.Context, msg outbox.Message) error {
	query := fmt.Sprintf(
		`UPDATE %s SET processed_at = COALESCE(processed_at, ?), error = ? WHERE id = ?`,
		s.config.TableName,
	)

	n, err := s.db.Exec(ctx, query, toNanos(msg.ProcessedAt), msg.Error, msg.ID)
	if err != nil {
		return fmt.Errorf("outbox: update: %w", err)
	}
	if n == 0 {
		return errors.NotFound("outbox message %s not found", msg.ID).WithItem(msg.ID)
	}
	return nil
}

// Session hosts at most one transaction at a time. Run business statements
// through DB so they join the open transaction.
type Session struct {
	store *Store

	mu sync.Mutex
	tx *Tx
}

// NewSession creates a session on the store's database.
func (s *Store) NewSession() *Session {
	return &Session{store: s}
}

// InTx reports whether a transaction is open.
func (s *Session) InTx() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// BeginTx opens a transaction on the session.
func (s *Session) BeginTx(ctx context.Context) (outbox.StoreTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return nil, errors.PreconditionFailed("outbox: session already has an active transaction").SetErr(outbox.ErrTxActive)
	}
	tx, err := s.store.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("outbox: begin tx: %w", err)
	}
	s.tx = &Tx{
		session: s,
		tx:      tx,
		db:      sqlutil.FromStdLib(tx),
	}
	return s.tx, nil
}

// DB returns the open transaction, or the store's database when none is open.
func (s *Session) DB() sqlutil.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx.db
	}
	return s.store.db
}

func (s *Session) finish(tx *Tx) {
	s.mu.Lock()
	if s.tx == tx {
		s.tx = nil
	}
	s.mu.Unlock()
}

// Tx is a SQLite transaction opened by a Session.
type Tx struct {
	session *Session
	tx      *sql.Tx
	db      sqlutil.DB
}

// DB returns the transaction as a sqlutil.DB.
func (t *Tx) DB() sqlutil.DB {
	return t.db
}

// Commit commits the transaction.
func (t *Tx) Commit(_ context.Context) error {
	defer t.session.finish(t)
	return t.tx.Commit()
}

// Rollback aborts the transaction. Rolling back a finished transaction is
// a no-op.
func (t *Tx) Rollback(_ context.Context) error {
	defer t.session.finish(t)
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func toNanos(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := t.UnixNano()
	return &n
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
