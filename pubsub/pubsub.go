// Package pubsub defines a small broker abstraction used to carry outbox
// messages to consumers. Topics are namespaced as app:namespace:topic.
package pubsub

import (
	"context"

	"github.com/enverbisevac/txoutbox/errors"
)

// ErrSendTimeout is returned when a subscriber does not accept a message
// within the configured send timeout.
var ErrSendTimeout = errors.New("pubsub: send timed out")

// Msg is a message received from a topic.
type Msg struct {
	Topic   string
	Payload []byte
}

// Publisher sends payloads to a topic.
type Publisher interface {
	// Publish topic to message broker with payload.
	Publish(ctx context.Context, topic string, payload []byte,
		options ...PublishOption) error
}

// Subscription is an active subscription. Close stops delivery.
type Subscription interface {
	Close() error
}

// Subscriber registers handlers for topics.
type Subscriber interface {
	// Subscribe calls handler for every message on topic until ctx is done
	// or the subscription is closed.
	Subscribe(ctx context.Context, topic string,
		handler func(msg *Msg) error, options ...SubscribeOption) (Subscription, error)
}

// FormatTopic returns the fully qualified topic name.
func FormatTopic(app, ns, topic string) string {
	return app + ":" + ns + ":" + topic
}
