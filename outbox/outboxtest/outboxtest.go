// Package outboxtest holds a conformance suite shared by the outbox.Store
// implementations.
package outboxtest

import (
	"context"
	"errors"
	"testing"
	"time"

	liberrors "github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/enverbisevac/txoutbox/lock/inmem"
	"github.com/enverbisevac/txoutbox/outbox"
	"github.com/enverbisevac/txoutbox/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Harness is a freshly migrated, empty store plus a way to open sessions on it.
type Harness struct {
	Store      outbox.Store
	NewSession func() outbox.Session
}

// Factory creates a Harness for one subtest.
type Factory func(t *testing.T) Harness

// OrderPlaced is the payload registered by the suite.
type OrderPlaced struct {
	OrderID int     `json:"order_id"`
	Note    *string `json:"note"`
}

// t0 has microsecond precision so every backend round-trips it exactly.
var t0 = time.Date(2024, 2, 3, 4, 5, 6, 7000, time.UTC)

func message(id string, offset time.Duration) outbox.Message {
	return outbox.Message{
		ID:         id,
		Type:       "test_v1",
		Payload:    `{"id":"` + id + `"}`,
		OccurredAt: t0.Add(offset),
	}
}

func save(t *testing.T, h Harness, msgs ...outbox.Message) {
	t.Helper()

	ctx := context.Background()
	tx, err := h.NewSession().BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Store.Save(ctx, tx, msgs...))
	require.NoError(t, tx.Commit(ctx))
}

func ids(msgs []outbox.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

// Run executes the suite against stores built by newHarness.
func Run(t *testing.T, newHarness Factory) {
	t.Run("Empty", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		pending, err := h.Store.HasPending(ctx)
		require.NoError(t, err)
		assert.False(t, pending)

		msgs, err := h.Store.FetchPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("FetchPendingSkipsProcessedInOrder", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		processedAt := t0.Add(time.Hour)
		done := message("b", 2*time.Second)
		done.ProcessedAt = &processedAt

		save(t, h, message("c", 3*time.Second), done, message("a", time.Second))

		pending, err := h.Store.HasPending(ctx)
		require.NoError(t, err)
		assert.True(t, pending)

		msgs, err := h.Store.FetchPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids(msgs))

		got := msgs[0]
		assert.Equal(t, "test_v1", got.Type)
		assert.Equal(t, `{"id":"a"}`, got.Payload)
		assert.True(t, got.OccurredAt.Equal(t0.Add(time.Second)))
		assert.Nil(t, got.ProcessedAt)
		assert.Nil(t, got.Error)
	})

	t.Run("FetchPendingLimit", func(t *testing.T) {
		h := newHarness(t)

		save(t, h, message("1", time.Microsecond), message("2", 2*time.Microsecond), message("3", 3*time.Microsecond))

		msgs, err := h.Store.FetchPending(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, ids(msgs))
	})

	t.Run("UpdateFailureThenSuccess", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		save(t, h, message("1", 0))

		msg := message("1", 0)
		msg.MarkFailed(errors.New("broker down"))
		require.NoError(t, h.Store.Update(ctx, msg))

		msgs, err := h.Store.FetchPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.NotNil(t, msgs[0].Error)
		assert.Equal(t, "broker down", *msgs[0].Error)

		msg = msgs[0]
		msg.MarkPublished(t0.Add(time.Minute))
		require.NoError(t, h.Store.Update(ctx, msg))

		pending, err := h.Store.HasPending(ctx)
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("UpdateNeverClearsProcessedAt", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		save(t, h, message("1", 0))

		msg := message("1", 0)
		msg.MarkPublished(t0)
		require.NoError(t, h.Store.Update(ctx, msg))

		// a late failure from an overlapping processor
		late := message("1", 0)
		late.MarkFailed(errors.New("late"))
		require.NoError(t, h.Store.Update(ctx, late))

		pending, err := h.Store.HasPending(ctx)
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		h := newHarness(t)

		err := h.Store.Update(context.Background(), message("missing", 0))
		assert.True(t, liberrors.IsNotFound(err))
	})

	t.Run("RollbackDiscardsMessages", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		tx, err := h.NewSession().BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, h.Store.Save(ctx, tx, message("1", 0)))
		require.NoError(t, tx.Rollback(ctx))

		pending, err := h.Store.HasPending(ctx)
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("SaveWithoutTransaction", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.Store.Save(ctx, nil, message("1", 0)))

		msgs, err := h.Store.FetchPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, ids(msgs))
	})

	t.Run("SaveUnsupportedTransaction", func(t *testing.T) {
		h := newHarness(t)

		err := h.Store.Save(context.Background(), "not a tx", message("1", 0))
		assert.Error(t, err)
	})

	t.Run("SessionTracksTransaction", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		session := h.NewSession()

		assert.False(t, session.InTx())
		tx, err := session.BeginTx(ctx)
		require.NoError(t, err)
		assert.True(t, session.InTx())

		_, err = session.BeginTx(ctx)
		assert.ErrorIs(t, err, outbox.ErrTxActive)

		require.NoError(t, tx.Commit(ctx))
		assert.False(t, session.InTx())
	})

	t.Run("CommitThenProcess", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		clock := timeutil.NewFixedClock(t0)

		registry := outbox.MustNewRegistry(outbox.Register[OrderPlaced]("order_placed_v1"))
		factory := outbox.NewTxFactory(h.Store, registry, outbox.NewTrigger(), outbox.WithClock(clock))

		tx, err := factory.Begin(ctx, h.NewSession())
		require.NoError(t, err)
		_, err = tx.Add(OrderPlaced{OrderID: 1})
		require.NoError(t, err)
		clock.Advance(time.Millisecond)
		_, err = tx.Add(&OrderPlaced{OrderID: 2})
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
		require.NoError(t, tx.Close(ctx))

		var published []string
		pub := outbox.PublisherFunc(func(_ context.Context, messageType, payload string) error {
			published = append(published, messageType+" "+payload)
			return nil
		})
		p, err := outbox.NewProcessor(h.Store, lock.New(inmem.New(), "me"), outbox.StaticPublisher(pub),
			outbox.WithClock(clock))
		require.NoError(t, err)

		res, err := p.Process(ctx)
		require.NoError(t, err)
		assert.Equal(t, outbox.Result{Acquired: true, Published: 2}, res)
		assert.Equal(t, []string{
			`order_placed_v1 {"order_id":1}`,
			`order_placed_v1 {"order_id":2}`,
		}, published)

		pending, err := h.Store.HasPending(ctx)
		require.NoError(t, err)
		assert.False(t, pending)
	})
}
