package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/enverbisevac/txoutbox/lock/locktest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, options ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return New(client, options...), mr
}

func TestStore(t *testing.T) {
	locktest.Run(t, func(t *testing.T) lock.Store {
		store, _ := newTestStore(t)
		return store
	})
}

func TestKeyLayout(t *testing.T) {
	store, mr := newTestStore(t, WithApp("shop"), WithNamespace("orders"))
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	err := store.Insert(ctx, lock.Record{
		Name:       "outbox-processor",
		AcquiredBy: "host_1_abc",
		AcquiredAt: at,
		ExpiresAt:  at.Add(time.Minute),
		Version:    "v1",
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("shop:orders:lock:outbox-processor"))
	assert.Equal(t, "host_1_abc", mr.HGet("shop:orders:lock:outbox-processor", "acquired_by"))
}

func TestGetCorruptRecord(t *testing.T) {
	store, mr := newTestStore(t)

	mr.HSet("app:default:lock:broken", "acquired_by", "x", "acquired_at", "nope", "expires_at", "1", "version", "v")

	_, err := store.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, errors.IsNotFound(err))
}

func TestUnavailableServer(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, _, err := lock.New(store, "me").Acquire(context.Background(), "outbox-processor", time.Minute)
	assert.Error(t, err)
}
