package outbox

import "context"

// Publisher hands a message to the outside world.
type Publisher interface {
	Publish(ctx context.Context, messageType, payload string) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, messageType, payload string) error

// Publish calls f(ctx, messageType, payload).
func (f PublisherFunc) Publish(ctx context.Context, messageType, payload string) error {
	return f(ctx, messageType, payload)
}

// PublisherFactory creates the publisher used for one processing cycle.
// A publisher that implements io.Closer is closed when the cycle ends.
type PublisherFactory interface {
	NewPublisher(ctx context.Context) (Publisher, error)
}

// PublisherFactoryFunc adapts a function to the PublisherFactory interface.
type PublisherFactoryFunc func(ctx context.Context) (Publisher, error)

// NewPublisher calls f(ctx).
func (f PublisherFactoryFunc) NewPublisher(ctx context.Context) (Publisher, error) {
	return f(ctx)
}

// StaticPublisher returns a factory that hands out p for every cycle.
func StaticPublisher(p Publisher) PublisherFactory {
	return PublisherFactoryFunc(func(context.Context) (Publisher, error) {
		return p, nil
	})
}
