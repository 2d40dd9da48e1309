package outbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/google/uuid"
)

// TxFactory begins outbox transactions on store sessions.
type TxFactory struct {
	store    Store
	registry *Registry
	trigger  *Trigger
	config   Config
}

// NewTxFactory creates a TxFactory. Commits fire trigger when it is not nil.
func NewTxFactory(store Store, registry *Registry, trigger *Trigger, options ...Option) *TxFactory {
	return &TxFactory{
		store:    store,
		registry: registry,
		trigger:  trigger,
		config:   newConfig(options),
	}
}

// Begin opens a transaction on session. A session that already has an open
// transaction is rejected with ErrTxActive.
func (f *TxFactory) Begin(ctx context.Context, session Session) (*Tx, error) {
	if session.InTx() {
		return nil, preconditionFailed(ErrTxActive, "outbox: session already has an active transaction")
	}

	tx, err := session.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("outbox: begin: %w", err)
	}

	return &Tx{
		factory: f,
		tx:      tx,
	}, nil
}

// Tx stages outbox messages inside a store transaction. Business writes go
// through the session's native transaction; Commit persists both together.
// Always defer Close.
type Tx struct {
	factory *TxFactory
	tx      StoreTx

	mu     sync.Mutex
	staged []Message
	done   bool
}

// Add stages payload as a new message and returns it.
func (t *Tx) Add(payload any) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return Message{}, errTxDone()
	}

	messageType, err := t.factory.registry.Resolve(payload)
	if err != nil {
		return Message{}, err
	}

	body, err := t.factory.config.Codec.Encode(payload)
	if err != nil {
		return Message{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, fmt.Errorf("outbox: message id: %w", err)
	}

	msg := Message{
		ID:         id.String(),
		Type:       messageType,
		Payload:    body,
		OccurredAt: t.factory.config.Clock.Now(),
	}
	t.staged = append(t.staged, msg)
	return msg, nil
}

// Staged returns the messages added so far.
func (t *Tx) Staged() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Message, len(t.staged))
	copy(out, t.staged)
	return out
}

// Commit saves the staged messages, commits the transaction and fires the
// trigger.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxDone()
	}
	t.done = true

	if len(t.staged) > 0 {
		if err := t.factory.store.Save(ctx, t.tx, t.staged...); err != nil {
			rerr := t.tx.Rollback(context.WithoutCancel(ctx))
			return fmt.Errorf("outbox: save messages: %w", errors.Join(err, rerr))
		}
	}

	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("outbox: commit: %w", err)
	}
	t.staged = nil

	if t.factory.trigger != nil {
		t.factory.trigger.Fire()
	}
	return nil
}

// Rollback aborts the transaction and drops the staged messages.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxDone()
	}
	return t.rollback(ctx)
}

// Close rolls the transaction back if it is still open. It is a no-op after
// Commit or Rollback.
func (t *Tx) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	return t.rollback(ctx)
}

func (t *Tx) rollback(ctx context.Context) error {
	t.done = true
	t.staged = nil
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("outbox: rollback: %w", err)
	}
	return nil
}

func errTxDone() error {
	return preconditionFailed(ErrTxDone, "outbox: transaction has already been committed or rolled back")
}
