package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/enverbisevac/txoutbox/lock"
	lockinmem "github.com/enverbisevac/txoutbox/lock/inmem"
	"github.com/enverbisevac/txoutbox/pubsub"
	"github.com/enverbisevac/txoutbox/pubsub/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPubSub struct {
	err error
}

func (f failingPubSub) Publish(context.Context, string, []byte, ...pubsub.PublishOption) error {
	return f.err
}

func TestPubSubAdapterDeliversToSubscriber(t *testing.T) {
	ctx := context.Background()
	ps := inmem.New(pubsub.WithApp("shop"))
	t.Cleanup(func() { _ = ps.Close() })

	received := make(chan *pubsub.Msg, 1)
	_, err := ps.Subscribe(ctx, "send_email_v1", func(msg *pubsub.Msg) error {
		received <- msg
		return nil
	}, pubsub.WithSubscribeNamespace("orders"))
	require.NoError(t, err)

	adapter := NewPubSubAdapter(ps, pubsub.WithPublishNamespace("orders"))
	require.NoError(t, adapter.Publish(ctx, "send_email_v1", `{"to":"a@b.c"}`))

	select {
	case msg := <-received:
		assert.Equal(t, pubsub.FormatTopic("shop", "orders", "send_email_v1"), msg.Topic)
		assert.Equal(t, `{"to":"a@b.c"}`, string(msg.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestPubSubAdapterPublishError(t *testing.T) {
	pubErr := errors.New("broker unavailable")
	adapter := NewPubSubAdapter(failingPubSub{err: pubErr})

	err := adapter.Publish(context.Background(), "send_email_v1", "{}")
	assert.ErrorIs(t, err, pubErr)
}

func TestPubSubAdapterAsProcessorPublisher(t *testing.T) {
	pubErr := errors.New("broker unavailable")
	store := newMemStore(pending("m1", "{}", 0))

	p := newTestProcessor(t, store, lock.New(lockinmem.New(), "me"), NewPubSubAdapter(failingPubSub{err: pubErr}))
	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Acquired: true, Failed: 1}, res)

	msg, _ := store.get("m1")
	require.NotNil(t, msg.Error)
	assert.Equal(t, "broker unavailable", *msg.Error)
	assert.Nil(t, msg.ProcessedAt)
}

func TestPubSubAdapterKeepsMessagesDroppedBySlowSubscriber(t *testing.T) {
	ctx := context.Background()
	ps := inmem.New(pubsub.WithSize(1), pubsub.WithSendTimeout(10*time.Millisecond))
	t.Cleanup(func() { _ = ps.Close() })

	block := make(chan struct{})
	defer close(block)
	_, err := ps.Subscribe(ctx, "test_v1", func(*pubsub.Msg) error {
		<-block
		return nil
	})
	require.NoError(t, err)

	store := newMemStore(
		pending("m1", "1", 0),
		pending("m2", "2", time.Second),
		pending("m3", "3", 2*time.Second),
		pending("m4", "4", 3*time.Second),
	)
	p := newTestProcessor(t, store, lock.New(lockinmem.New(), "me"), NewPubSubAdapter(ps))

	res, err := p.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Published+res.Failed)
	assert.GreaterOrEqual(t, res.Failed, 1)

	var failed int
	for _, msg := range store.all() {
		if msg.ProcessedAt != nil {
			assert.Nil(t, msg.Error, "message %s", msg.ID)
			continue
		}
		failed++
		require.NotNil(t, msg.Error, "message %s", msg.ID)
		assert.Contains(t, *msg.Error, "send timed out")
	}
	assert.Equal(t, res.Failed, failed)

	has, err := store.HasPending(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}
