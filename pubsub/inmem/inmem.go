// Package inmem is an in-process pubsub broker for tests and single binary
// deployments.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/pubsub"
	"github.com/go-logr/logr"
)

var (
	_ pubsub.Publisher  = (*PubSub)(nil)
	_ pubsub.Subscriber = (*PubSub)(nil)
)

// PubSub is an in-memory broker.
type PubSub struct {
	config pubsub.Config

	mutex    sync.RWMutex
	registry map[*subscriber]struct{}
}

// New creates an in-memory broker.
func New(options ...pubsub.Option) *PubSub {
	config := pubsub.DefaultConfig()
	for _, f := range options {
		f.Apply(&config)
	}
	return &PubSub{
		config:   config,
		registry: make(map[*subscriber]struct{}),
	}
}

// Subscribe runs handler on its own goroutine for every message published to topic.
func (ps *PubSub) Subscribe(
	ctx context.Context,
	topic string,
	handler func(msg *pubsub.Msg) error,
	options ...pubsub.SubscribeOption,
) (pubsub.Subscription, error) {
	sub := &subscriber{
		ps:      ps,
		topic:   pubsub.SubscribeTopic(ps.config, topic, options...),
		channel: make(chan *pubsub.Msg, ps.config.ChannelSize),
		done:    make(chan struct{}),
	}

	ps.mutex.Lock()
	ps.registry[sub] = struct{}{}
	ps.mutex.Unlock()

	go sub.start(ctx, handler)
	return sub, nil
}

// Publish delivers payload to every subscriber of topic. A subscriber whose
// buffer stays full for SendTimeout misses the message and Publish returns
// an error wrapping pubsub.ErrSendTimeout; the other subscribers still get it.
func (ps *PubSub) Publish(ctx context.Context, topic string, payload []byte, opts ...pubsub.PublishOption) error {
	log := logr.FromContextOrDiscard(ctx)
	topic = pubsub.PublishTopic(ps.config, topic, opts...)

	ps.mutex.RLock()
	targets := make([]*subscriber, 0, len(ps.registry))
	for sub := range ps.registry {
		if sub.topic == topic {
			targets = append(targets, sub)
		}
	}
	ps.mutex.RUnlock()

	if len(targets) == 0 {
		log.V(1).Info("pubsub: no subscribers", "topic", topic)
		return nil
	}

	var errs []error
	for _, sub := range targets {
		if err := ps.send(ctx, sub, &pubsub.Msg{Topic: topic, Payload: payload}); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ps *PubSub) send(ctx context.Context, sub *subscriber, msg *pubsub.Msg) error {
	t := time.NewTimer(ps.config.SendTimeout)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sub.done:
	case sub.channel <- msg:
	case <-t.C:
		logr.FromContextOrDiscard(ctx).Info("pubsub: subscriber buffer full, message dropped",
			"topic", msg.Topic, "timeout", ps.config.SendTimeout)
		return fmt.Errorf("%w: topic %q after %s", pubsub.ErrSendTimeout, msg.Topic, ps.config.SendTimeout)
	}
	return nil
}

// Close closes every subscription.
func (ps *PubSub) Close() error {
	ps.mutex.RLock()
	subs := make([]*subscriber, 0, len(ps.registry))
	for sub := range ps.registry {
		subs = append(subs, sub)
	}
	ps.mutex.RUnlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

func (ps *PubSub) remove(sub *subscriber) {
	ps.mutex.Lock()
	delete(ps.registry, sub)
	ps.mutex.Unlock()
}

type subscriber struct {
	ps      *PubSub
	topic   string
	channel chan *pubsub.Msg
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) start(ctx context.Context, handler func(*pubsub.Msg) error) {
	log := logr.FromContextOrDiscard(ctx)
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg := <-s.channel:
			if err := handler(msg); err != nil {
				log.Error(err, "pubsub: handler failed", "topic", msg.Topic)
			}
		}
	}
}

// Close stops delivery to the subscription.
func (s *subscriber) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.ps.remove(s)
	})
	return nil
}
