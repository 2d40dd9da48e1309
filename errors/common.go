package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Base carries the fields shared by every typed error.
type Base struct {
	// Msg contains human readable error.
	Msg       string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func newBasef(format string, args ...any) Base {
	return Base{
		Msg:       fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	}
}

// message returns Msg, or describes item with suffix, or falls back to def.
func (b Base) message(item any, suffix, def string) string {
	switch {
	case b.Msg != "":
		return b.Msg
	case item != nil:
		return fmt.Sprintf("%v %s", item, suffix)
	default:
		return def
	}
}

// as finds the first error in err's tree of type E.
func as[E error](err error) (E, bool) {
	var target E
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// ConflictError is returned by stores when a write loses an optimistic
// concurrency race or hits a unique constraint.
type ConflictError struct {
	Base
	// Item is the conflicting resource.
	Item any `json:"item,omitempty"`
}

// Conflict returns a ConflictError with a formatted message.
func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Base: newBasef(format, args...)}
}

// IsConflict reports whether err's tree contains a ConflictError.
func IsConflict(err error) bool {
	_, ok := as[*ConflictError](err)
	return ok
}

// AsConflict returns the first ConflictError in err's tree.
func AsConflict(err error) (*ConflictError, bool) {
	return as[*ConflictError](err)
}

func (e *ConflictError) Error() string {
	return e.message(e.Item, "already exist", "resource already exist")
}

// WithItem sets the conflicting resource.
func (e *ConflictError) WithItem(item any) *ConflictError {
	e.Item = item
	return e
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Base
	Item any `json:"item,omitempty"`
}

// NotFound returns a NotFoundError with a formatted message.
func NotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Base: newBasef(format, args...)}
}

// IsNotFound reports whether err's tree contains a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := as[*NotFoundError](err)
	return ok
}

// AsNotFound returns the first NotFoundError in err's tree.
func AsNotFound(err error) (*NotFoundError, bool) {
	return as[*NotFoundError](err)
}

func (e *NotFoundError) Error() string {
	return e.message(e.Item, "not found", "resource not found")
}

// WithItem sets the missing resource.
func (e *NotFoundError) WithItem(item any) *NotFoundError {
	e.Item = item
	return e
}

// PreconditionFailedError reports API misuse detected synchronously,
// e.g. a missing argument or an operation on a finished resource.
type PreconditionFailedError struct {
	Base
	Err error `json:"-"`
}

// PreconditionFailed returns a PreconditionFailedError with a formatted
// message.
func PreconditionFailed(format string, args ...any) *PreconditionFailedError {
	return &PreconditionFailedError{Base: newBasef(format, args...)}
}

// IsPreconditionFailed reports whether err's tree contains a
// PreconditionFailedError.
func IsPreconditionFailed(err error) bool {
	_, ok := as[*PreconditionFailedError](err)
	return ok
}

// AsPreconditionFailed returns the first PreconditionFailedError in err's
// tree.
func AsPreconditionFailed(err error) (*PreconditionFailedError, bool) {
	return as[*PreconditionFailedError](err)
}

func (e *PreconditionFailedError) Error() string {
	if e.Msg == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.message(nil, "", "precondition failed error")
}

// ErrorDetails renders the message followed by its cause.
func (e *PreconditionFailedError) ErrorDetails() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	if e.Err != nil {
		sb.WriteString("\n\nCaused by:\n\t")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// SetErr sets the cause.
func (e *PreconditionFailedError) SetErr(err error) *PreconditionFailedError {
	e.Err = err
	return e
}

// Unwrap returns the cause so errors.Is matches sentinel causes.
func (e *PreconditionFailedError) Unwrap() error {
	return e.Err
}
