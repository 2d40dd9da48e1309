package pgx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/outbox"
	"github.com/enverbisevac/txoutbox/sqlutil"
	"github.com/jackc/pgx/v5"
)

var (
	_ outbox.Session = (*Session)(nil)
	_ outbox.StoreTx = (*Tx)(nil)
)

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
	tx, err := s.store.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("outbox: begin tx: %w", err)
	}
	tx.session = s
	s.tx = tx
	return tx, nil
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

// Tx is a PostgreSQL transaction opened by a Session or by the store itself.
type Tx struct {
	session *Session
	db      sqlutil.DB
	pgxTx   pgx.Tx
	sqlTx   *sql.Tx
}

// DB returns the transaction as a sqlutil.DB.
func (t *Tx) DB() sqlutil.DB {
	return t.db
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.release()
	if t.pgxTx != nil {
		return t.pgxTx.Commit(ctx)
	}
	return t.sqlTx.Commit()
}

// Rollback aborts the transaction. Rolling back a finished transaction is
// a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	defer t.release()
	if t.pgxTx != nil {
		if err := t.pgxTx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return err
		}
		return nil
	}
	if err := t.sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *Tx) release() {
	if t.session != nil {
		t.session.finish(t)
	}
}
