package outbox

import "context"

// Store persists outbox messages.
type Store interface {
	// Save persists msgs within tx, the StoreTx returned by Session.BeginTx.
	// Implementations may accept their native transaction types as well.
	Save(ctx context.Context, tx any, msgs ...Message) error

	// HasPending reports whether at least one message is pending.
	HasPending(ctx context.Context) (bool, error)

	// FetchPending returns up to limit pending messages ordered by OccurredAt.
	FetchPending(ctx context.Context, limit int) ([]Message, error)

	// Update persists the ProcessedAt and Error fields of msg.
	Update(ctx context.Context, msg Message) error
}

// Session is a unit of work against the store that can host at most one
// transaction at a time. Business writes go through the backend's native
// transaction exposed by the concrete session type.
type Session interface {
	// InTx reports whether a transaction is open on the session.
	InTx() bool

	// BeginTx opens a transaction on the session.
	BeginTx(ctx context.Context) (StoreTx, error)
}

// StoreTx is an open store transaction.
type StoreTx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
