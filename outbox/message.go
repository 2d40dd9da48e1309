// Package outbox implements the transactional outbox pattern.
//
// Messages are staged with a Tx in the same local transaction as the business
// change they describe. A Dispatcher running in every process drains pending
// messages through a Processor, which holds a named lease while it publishes,
// so only one process delivers at a time. Delivery is at least once.
package outbox

import "time"

// Message is one outbox row.
type Message struct {
	ID         string
	Type       string
	Payload    string
	OccurredAt time.Time
	// ProcessedAt is nil while the message is pending.
	ProcessedAt *time.Time
	// Error holds the last publish failure, if any.
	Error *string
}

// Pending reports whether the message still waits for delivery.
func (m Message) Pending() bool {
	return m.ProcessedAt == nil
}

// MarkPublished records a successful delivery at t and clears the last error.
func (m *Message) MarkPublished(t time.Time) {
	m.ProcessedAt = &t
	m.Error = nil
}

// MarkFailed records err as the last failure. The message stays pending.
func (m *Message) MarkFailed(err error) {
	msg := err.Error()
	m.Error = &msg
}
