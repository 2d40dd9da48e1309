// Package locktest provides a behaviour suite shared by all lock.Store
// implementations.
package locktest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) lock.Store

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func record(name, owner, version string, ttl time.Duration) lock.Record {
	return lock.Record{
		Name:       name,
		AcquiredBy: owner,
		AcquiredAt: base,
		ExpiresAt:  base.Add(ttl),
		Version:    version,
	}
}

// Run executes the store suite against stores created by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err), "want not found, got %v", err)
	})

	t.Run("InsertAndGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		rec := record("insert", "owner-a", "v1", 15*time.Minute)
		require.NoError(t, store.Insert(ctx, rec))

		got, err := store.Get(ctx, "insert")
		require.NoError(t, err)
		assert.Equal(t, rec.Name, got.Name)
		assert.Equal(t, rec.AcquiredBy, got.AcquiredBy)
		assert.Equal(t, rec.Version, got.Version)
		assert.True(t, rec.AcquiredAt.Equal(got.AcquiredAt), "acquired at %v, want %v", got.AcquiredAt, rec.AcquiredAt)
		assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt), "expires at %v, want %v", got.ExpiresAt, rec.ExpiresAt)
	})

	t.Run("InsertConflict", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, record("dup", "owner-a", "v1", time.Minute)))

		err := store.Insert(ctx, record("dup", "owner-b", "v2", time.Minute))
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err), "want conflict, got %v", err)

		got, err := store.Get(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "owner-a", got.AcquiredBy)
	})

	t.Run("UpdateWithMatchingVersion", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, record("steal", "owner-a", "v1", time.Minute)))

		next := record("steal", "owner-b", "v2", time.Hour)
		require.NoError(t, store.Update(ctx, next, "v1"))

		got, err := store.Get(ctx, "steal")
		require.NoError(t, err)
		assert.Equal(t, "owner-b", got.AcquiredBy)
		assert.Equal(t, "v2", got.Version)
		assert.True(t, next.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("UpdateWithStaleVersion", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, record("stale", "owner-a", "v1", time.Minute)))

		err := store.Update(ctx, record("stale", "owner-b", "v3", time.Hour), "v0")
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err), "want conflict, got %v", err)

		got, err := store.Get(ctx, "stale")
		require.NoError(t, err)
		assert.Equal(t, "owner-a", got.AcquiredBy)
		assert.Equal(t, "v1", got.Version)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		store := newStore(t)

		err := store.Update(context.Background(), record("gone", "owner-b", "v2", time.Hour), "v1")
		require.Error(t, err)
		assert.True(t, errors.IsConflict(err), "want conflict, got %v", err)
	})

	t.Run("DeleteMatchesOwner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, record("owned", "owner-a", "v1", time.Minute)))

		require.NoError(t, store.Delete(ctx, "owned", "owner-b"))
		_, err := store.Get(ctx, "owned")
		require.NoError(t, err, "delete by another owner must keep the record")

		require.NoError(t, store.Delete(ctx, "owned", "owner-a"))
		_, err = store.Get(ctx, "owned")
		assert.True(t, errors.IsNotFound(err), "want not found, got %v", err)

		require.NoError(t, store.Delete(ctx, "owned", "owner-a"), "second delete must be a no-op")
	})

	t.Run("ConcurrentInsertSingleWinner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Insert(ctx, record("race", "owner", string(rune('a'+i)), time.Minute))
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				if !errors.IsConflict(err) {
					t.Errorf("Insert() error = %v, want conflict", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
	})
}
