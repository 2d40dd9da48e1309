// Package redis implements lock.Store with one redis hash per lock.
// Conditional writes run as Lua scripts so every check and write is atomic.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/redis/go-redis/v9"
)

var _ lock.Store = (*Store)(nil)

const (
	fieldAcquiredBy = "acquired_by"
	fieldAcquiredAt = "acquired_at"
	fieldExpiresAt  = "expires_at"
	fieldVersion    = "version"
)

var (
	insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'acquired_by', ARGV[1], 'acquired_at', ARGV[2], 'expires_at', ARGV[3], 'version', ARGV[4])
return 1
`)

	updateScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'version') ~= ARGV[5] then
	return 0
end
redis.call('HSET', KEYS[1], 'acquired_by', ARGV[1], 'acquired_at', ARGV[2], 'expires_at', ARGV[3], 'version', ARGV[4])
return 1
`)

	deleteScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'acquired_by') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)
)

// Store implements lock.Store on redis.
type Store struct {
	config Config
	client redis.UniversalClient
}

// New creates a redis lock store.
func New(client redis.UniversalClient, options ...Option) *Store {
	config := Config{
		App:       "app",
		Namespace: "default",
	}
	for _, f := range options {
		f.Apply(&config)
	}
	return &Store{
		config: config,
		client: client,
	}
}

func (s *Store) key(name string) string {
	return s.config.App + ":" + s.config.Namespace + ":lock:" + name
}

// Get returns the record for name.
func (s *Store) Get(ctx context.Context, name string) (lock.Record, error) {
	values, err := s.client.HGetAll(ctx, s.key(name)).Result()
	if err != nil {
		return lock.Record{}, fmt.Errorf("lock: get: %w", err)
	}
	if len(values) == 0 {
		return lock.Record{}, errors.NotFound("lock %q not found", name)
	}

	acquiredAt, err := parseNanos(values[fieldAcquiredAt])
	if err != nil {
		return lock.Record{}, fmt.Errorf("lock: get %q: acquired_at: %w", name, err)
	}
	expiresAt, err := parseNanos(values[fieldExpiresAt])
	if err != nil {
		return lock.Record{}, fmt.Errorf("lock: get %q: expires_at: %w", name, err)
	}

	return lock.Record{
		Name:       name,
		AcquiredBy: values[fieldAcquiredBy],
		AcquiredAt: acquiredAt,
		ExpiresAt:  expiresAt,
		Version:    values[fieldVersion],
	}, nil
}

// Insert creates rec unless the key exists.
func (s *Store) Insert(ctx context.Context, rec lock.Record) error {
	n, err := insertScript.Run(ctx, s.client, []string{s.key(rec.Name)}, recordArgs(rec)...).Int()
	if err != nil {
		return fmt.Errorf("lock: insert: %w", err)
	}
	if n == 0 {
		return errors.Conflict("lock %q already exists", rec.Name).WithItem(rec.Name)
	}
	return nil
}

// Update overwrites the record when the stored version matches.
func (s *Store) Update(ctx context.Context, rec lock.Record, version string) error {
	args := append(recordArgs(rec), version)
	n, err := updateScript.Run(ctx, s.client, []string{s.key(rec.Name)}, args...).Int()
	if err != nil {
		return fmt.Errorf("lock: update: %w", err)
	}
	if n == 0 {
		return errors.Conflict("lock %q was modified concurrently", rec.Name).WithItem(rec.Name)
	}
	return nil
}

// Delete removes the record held by owner.
func (s *Store) Delete(ctx context.Context, name, owner string) error {
	if err := deleteScript.Run(ctx, s.client, []string{s.key(name)}, owner).Err(); err != nil {
		return fmt.Errorf("lock: delete: %w", err)
	}
	return nil
}

func recordArgs(rec lock.Record) []any {
	return []any{
		rec.AcquiredBy,
		strconv.FormatInt(rec.AcquiredAt.UnixNano(), 10),
		strconv.FormatInt(rec.ExpiresAt.UnixNano(), 10),
		rec.Version,
	}
}

func parseNanos(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}
