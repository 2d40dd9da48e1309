package outbox

import (
	"github.com/enverbisevac/txoutbox/errors"
)

var (
	// ErrNilPayload is returned when a nil payload is staged.
	ErrNilPayload = errors.New("outbox: payload is nil")

	// ErrNotRegistered is returned for payload types missing from the registry.
	ErrNotRegistered = errors.New("outbox: payload type is not registered")

	// ErrTxActive is returned when a transaction is begun on a session that
	// already has one open.
	ErrTxActive = errors.New("outbox: session already has an active transaction")

	// ErrTxDone is returned when a committed or rolled back Tx is used.
	ErrTxDone = errors.New("outbox: transaction has already been committed or rolled back")
)

func preconditionFailed(cause error, format string, args ...any) error {
	return errors.PreconditionFailed(format, args...).SetErr(cause)
}
