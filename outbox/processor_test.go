package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/enverbisevac/txoutbox/lock"
	"github.com/enverbisevac/txoutbox/lock/inmem"
	"github.com/enverbisevac/txoutbox/timeutil"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func pending(id, payload string, offset time.Duration) Message {
	return Message{
		ID:         id,
		Type:       "test_v1",
		Payload:    payload,
		OccurredAt: t0.Add(offset),
	}
}

func newTestProcessor(t *testing.T, store Store, locks lock.Service, pub Publisher, options ...Option) *Processor {
	t.Helper()

	options = append([]Option{WithClock(timeutil.NewFixedClock(t0.Add(time.Hour)))}, options...)
	p, err := NewProcessor(store, locks, StaticPublisher(pub), options...)
	require.NoError(t, err)
	return p
}

func TestProcessorPublishesPendingInOrder(t *testing.T) {
	processedAt := t0.Add(-time.Minute)
	done := pending("0", "done", 0)
	done.ProcessedAt = &processedAt

	store := newMemStore(
		pending("2", "second", 2*time.Second),
		done,
		pending("1", "first", time.Second),
	)
	pub := &recordingPublisher{}
	p := newTestProcessor(t, store, lock.New(inmem.New(), "me"), pub, WithBatchSize(10))

	res, err := p.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Acquired: true, Published: 2}, res)
	assert.Equal(t, []string{"test_v1:first", "test_v1:second"}, pub.calls())
	assert.Equal(t, 1, pub.closed)

	for _, id := range []string{"1", "2"} {
		msg, _ := store.get(id)
		require.NotNil(t, msg.ProcessedAt)
		assert.Equal(t, t0.Add(time.Hour), *msg.ProcessedAt)
		assert.Nil(t, msg.Error)
	}
}

func TestProcessorRespectsBatchSize(t *testing.T) {
	store := newMemStore(
		pending("1", "a", 1),
		pending("2", "b", 2),
		pending("3", "c", 3),
	)
	pub := &recordingPublisher{}
	p := newTestProcessor(t, store, lock.New(inmem.New(), "me"), pub, WithBatchSize(2))

	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Published)

	msg, _ := store.get("3")
	assert.True(t, msg.Pending())
}

func TestProcessorRecordsFailureThenSuccess(t *testing.T) {
	store := newMemStore(pending("1", "flaky", 0))
	pub := &recordingPublisher{failures: map[string]error{"flaky": errors.New("broker down")}}
	p := newTestProcessor(t, store, lock.New(inmem.New(), "me"), pub)
	ctx := context.Background()

	res, err := p.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Acquired: true, Failed: 1}, res)

	msg, _ := store.get("1")
	assert.True(t, msg.Pending())
	require.NotNil(t, msg.Error)
	assert.Equal(t, "broker down", *msg.Error)

	pub.mu.Lock()
	pub.failures = nil
	pub.mu.Unlock()

	res, err = p.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Acquired: true, Published: 1}, res)

	msg, _ = store.get("1")
	assert.False(t, msg.Pending())
	assert.Nil(t, msg.Error)
}

func TestProcessorFailureDoesNotStopBatch(t *testing.T) {
	store := newMemStore(
		pending("1", "bad", 1),
		pending("2", "good", 2),
	)
	pub := &recordingPublisher{failures: map[string]error{"bad": errors.New("rejected")}}
	p := newTestProcessor(t, store, lock.New(inmem.New(), "me"), pub)

	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Acquired: true, Published: 1, Failed: 1}, res)
	assert.Equal(t, []string{"test_v1:good"}, pub.calls())
}

func TestProcessorSkipsWhenLockHeld(t *testing.T) {
	locks := inmem.New()
	holder := lock.New(locks, "other")
	_, ok, err := holder.Acquire(context.Background(), DefaultLockName, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	store := newMemStore(pending("1", "a", 0))
	pub := &recordingPublisher{}
	p := newTestProcessor(t, store, lock.New(locks, "me"), pub)

	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, pub.calls())

	msg, _ := store.get("1")
	assert.True(t, msg.Pending())
}

func TestProcessorLogsContentionOncePerStreak(t *testing.T) {
	var lines []string
	log := funcr.New(func(_, args string) {
		lines = append(lines, args)
	}, funcr.Options{})
	ctx := logr.NewContext(context.Background(), log)

	locks := inmem.New()
	holder := lock.New(locks, "other")
	p := newTestProcessor(t, newMemStore(), lock.New(locks, "me"), &recordingPublisher{})

	contentionLines := func() int {
		n := 0
		for _, l := range lines {
			if strings.Contains(l, "lock held elsewhere") {
				n++
			}
		}
		return n
	}

	lease, ok, err := holder.Acquire(ctx, DefaultLockName, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	for range 3 {
		res, err := p.Process(ctx)
		require.NoError(t, err)
		assert.False(t, res.Acquired)
	}
	assert.Equal(t, 1, contentionLines())

	require.NoError(t, lease.Release(ctx))
	res, err := p.Process(ctx)
	require.NoError(t, err)
	assert.True(t, res.Acquired)

	_, ok, err = holder.Acquire(ctx, DefaultLockName, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = p.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, contentionLines())
}

func TestProcessorReleasesLease(t *testing.T) {
	locks := inmem.New()
	store := newMemStore(pending("1", "a", 0))
	p := newTestProcessor(t, store, lock.New(locks, "me"), &recordingPublisher{})
	ctx := context.Background()

	_, err := p.Process(ctx)
	require.NoError(t, err)

	_, ok, err := lock.New(locks, "other").Acquire(ctx, DefaultLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProcessorReleasesLeaseOnStoreError(t *testing.T) {
	locks := inmem.New()
	store := newMemStore()
	store.fetchErr = errors.New("db down")
	p := newTestProcessor(t, store, lock.New(locks, "me"), &recordingPublisher{})
	ctx := context.Background()

	_, err := p.Process(ctx)
	assert.ErrorIs(t, err, store.fetchErr)

	_, ok, err := lock.New(locks, "other").Acquire(ctx, DefaultLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProcessorUpdateError(t *testing.T) {
	store := newMemStore(pending("1", "a", 0))
	store.updateErr = errors.New("write failed")
	p := newTestProcessor(t, store, lock.New(inmem.New(), "me"), &recordingPublisher{})

	res, err := p.Process(context.Background())
	assert.ErrorIs(t, err, store.updateErr)
	assert.True(t, res.Acquired)
}

func TestProcessorCancelledDuringPublish(t *testing.T) {
	store := newMemStore(pending("1", "a", 0), pending("2", "b", 1))
	locks := inmem.New()
	ctx, cancel := context.WithCancel(context.Background())

	pub := PublisherFunc(func(ctx context.Context, _, _ string) error {
		cancel()
		return ctx.Err()
	})
	p := newTestProcessor(t, store, lock.New(locks, "me"), pub)

	_, err := p.Process(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	msg, _ := store.get("1")
	assert.Nil(t, msg.Error)
	assert.True(t, msg.Pending())

	// released with a non-cancelled context
	_, ok, err := lock.New(locks, "other").Acquire(context.Background(), DefaultLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProcessorPublisherFactoryError(t *testing.T) {
	store := newMemStore(pending("1", "a", 0))
	factoryErr := errors.New("no connection")
	p, err := NewProcessor(store, lock.New(inmem.New(), "me"),
		PublisherFactoryFunc(func(context.Context) (Publisher, error) {
			return nil, factoryErr
		}))
	require.NoError(t, err)

	_, err = p.Process(context.Background())
	assert.ErrorIs(t, err, factoryErr)
}

func TestProcessorNoPendingSkipsPublisher(t *testing.T) {
	created := 0
	p, err := NewProcessor(newMemStore(), lock.New(inmem.New(), "me"),
		PublisherFactoryFunc(func(context.Context) (Publisher, error) {
			created++
			return &recordingPublisher{}, nil
		}))
	require.NoError(t, err)

	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Acquired)
	assert.Zero(t, created)
}

func TestProcessorMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	store := newMemStore(pending("1", "ok", 1), pending("2", "bad", 2))
	pub := &recordingPublisher{failures: map[string]error{"bad": errors.New("nope")}}
	p := newTestProcessor(t, store, lock.New(inmem.New(), "me"), pub, WithMeterProvider(provider))

	_, err := p.Process(context.Background())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	var sawDuration bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				sawDuration = m.Name == "outbox.cycle.duration"
			}
		}
	}

	assert.Equal(t, int64(1), sums["outbox.messages.published"])
	assert.Equal(t, int64(1), sums["outbox.messages.failed"])
	assert.True(t, sawDuration)
}
