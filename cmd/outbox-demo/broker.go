package main

import (
	"context"
	"fmt"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/outbox"
	"github.com/enverbisevac/txoutbox/pubsub"
	"github.com/enverbisevac/txoutbox/pubsub/inmem"
	pubsubredis "github.com/enverbisevac/txoutbox/pubsub/redis"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

// LogPublisher writes every message to the logger found in ctx.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, messageType, payload string) error {
	logr.FromContextOrDiscard(ctx).Info("publishing message",
		"type", messageType, "payload", payload)
	return nil
}

// Broker is where the outbox delivers messages. Subscriber is nil for the
// log broker.
type Broker struct {
	Publishers outbox.PublisherFactory
	Subscriber pubsub.Subscriber

	close func() error
}

func (b *Broker) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBroker builds the broker selected by config.Kind.
func OpenBroker(ctx context.Context, config BrokerConfig) (*Broker, error) {
	options := []pubsub.Option{
		pubsub.WithApp(config.App),
		pubsub.WithNamespace(config.Namespace),
	}

	switch config.Kind {
	case brokerLog:
		return &Broker{
			Publishers: outbox.StaticPublisher(LogPublisher{}),
		}, nil
	case brokerInmem:
		ps := inmem.New(options...)
		return &Broker{
			Publishers: outbox.StaticPublisher(outbox.NewPubSubAdapter(ps)),
			Subscriber: ps,
			close:      ps.Close,
		}, nil
	case brokerRedis:
		client := redis.NewClient(&redis.Options{
			Addr: config.RedisAddr,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("broker: connect redis: %w", err)
		}
		ps := pubsubredis.New(client, options...)
		return &Broker{
			Publishers: outbox.StaticPublisher(outbox.NewPubSubAdapter(ps)),
			Subscriber: ps,
			close: func() error {
				return errors.Join(ps.Close(), client.Close())
			},
		}, nil
	default:
		return nil, fmt.Errorf("broker: unsupported kind %q", config.Kind)
	}
}

// SubscribeAll logs every delivery on the given message types. It is a
// no-op for brokers without a subscriber side.
func (b *Broker) SubscribeAll(ctx context.Context, messageTypes []string) error {
	if b.Subscriber == nil {
		return nil
	}

	log := logr.FromContextOrDiscard(ctx)
	for _, messageType := range messageTypes {
		_, err := b.Subscriber.Subscribe(ctx, messageType, func(msg *pubsub.Msg) error {
			log.Info("message delivered", "topic", msg.Topic, "payload", string(msg.Payload))
			return nil
		})
		if err != nil {
			return fmt.Errorf("broker: subscribe %s: %w", messageType, err)
		}
	}
	return nil
}
