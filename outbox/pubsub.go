package outbox

import (
	"context"

	"github.com/enverbisevac/txoutbox/pubsub"
)

var _ Publisher = (*PubSubAdapter)(nil)

// PubSubAdapter publishes outbox messages to a pubsub.Publisher, using the
// message type as the topic.
type PubSubAdapter struct {
	pub  pubsub.Publisher
	opts []pubsub.PublishOption
}

// NewPubSubAdapter creates a new PubSubAdapter.
func NewPubSubAdapter(p pubsub.Publisher, opts ...pubsub.PublishOption) *PubSubAdapter {
	return &PubSubAdapter{
		pub:  p,
		opts: opts,
	}
}

// Publish forwards the message to the underlying pubsub.Publisher.
func (a *PubSubAdapter) Publish(ctx context.Context, messageType, payload string) error {
	return a.pub.Publish(ctx, messageType, []byte(payload), a.opts...)
}
