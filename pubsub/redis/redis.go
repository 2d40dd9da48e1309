// Package redis implements pubsub on redis PUBLISH and SUBSCRIBE.
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/enverbisevac/txoutbox/pubsub"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

var (
	_ pubsub.Publisher  = (*PubSub)(nil)
	_ pubsub.Subscriber = (*PubSub)(nil)
)

// PubSub is a redis backed broker.
type PubSub struct {
	config pubsub.Config
	client redis.UniversalClient

	mutex    sync.Mutex
	registry map[*redisSubscriber]struct{}
}

// New creates a redis broker.
func New(client redis.UniversalClient, options ...pubsub.Option) *PubSub {
	config := pubsub.DefaultConfig()
	for _, f := range options {
		f.Apply(&config)
	}
	return &PubSub{
		config:   config,
		client:   client,
		registry: make(map[*redisSubscriber]struct{}),
	}
}

// Subscribe calls handler for every message published to topic. The
// subscription is confirmed by the server before Subscribe returns.
func (ps *PubSub) Subscribe(
	ctx context.Context,
	topic string,
	handler func(msg *pubsub.Msg) error,
	options ...pubsub.SubscribeOption,
) (pubsub.Subscription, error) {
	channel := pubsub.SubscribeTopic(ps.config, topic, options...)

	rdb := ps.client.Subscribe(ctx, channel)
	if _, err := rdb.Receive(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pubsub: subscribe to %q: %w", channel, err)
	}

	sub := &redisSubscriber{
		ps:  ps,
		rdb: rdb,
	}

	ps.mutex.Lock()
	ps.registry[sub] = struct{}{}
	ps.mutex.Unlock()

	go sub.start(ctx, handler, ps.config)
	return sub, nil
}

// Publish event topic to message broker with payload.
func (ps *PubSub) Publish(ctx context.Context, topic string, payload []byte, opts ...pubsub.PublishOption) error {
	topic = pubsub.PublishTopic(ps.config, topic, opts...)

	if err := ps.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("pubsub: publish to %q: %w", topic, err)
	}
	return nil
}

// Close closes every subscription.
func (ps *PubSub) Close() error {
	ps.mutex.Lock()
	subs := make([]*redisSubscriber, 0, len(ps.registry))
	for sub := range ps.registry {
		subs = append(subs, sub)
	}
	ps.mutex.Unlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type redisSubscriber struct {
	ps   *PubSub
	rdb  *redis.PubSub
	once sync.Once
}

func (s *redisSubscriber) start(ctx context.Context, handler func(*pubsub.Msg) error, config pubsub.Config) {
	log := logr.FromContextOrDiscard(ctx)
	defer s.Close()

	ch := s.rdb.Channel(
		redis.WithChannelHealthCheckInterval(config.HealthInterval),
		redis.WithChannelSendTimeout(config.SendTimeout),
		redis.WithChannelSize(config.ChannelSize),
	)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				log.V(1).Info("pubsub: redis channel closed")
				return
			}
			if err := handler(&pubsub.Msg{
				Topic:   msg.Channel,
				Payload: []byte(msg.Payload),
			}); err != nil {
				log.Error(err, "pubsub: handler failed", "topic", msg.Channel)
			}
		}
	}
}

// Close unsubscribes and releases the connection.
func (s *redisSubscriber) Close() error {
	var err error
	s.once.Do(func() {
		s.ps.mutex.Lock()
		delete(s.ps.registry, s)
		s.ps.mutex.Unlock()

		if cerr := s.rdb.Close(); cerr != nil {
			err = fmt.Errorf("pubsub: close subscriber: %w", cerr)
		}
	})
	return err
}
