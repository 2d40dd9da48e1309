// Package pgtest provides PostgreSQL connections for integration tests.
package pgtest

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	once     sync.Once
	dsn      string
	startErr error
)

// Pool returns a pool to a scratch database. TEST_DATABASE_URL wins when set,
// otherwise one postgres container is started per test binary. The test is
// skipped in -short mode or when no container runtime is reachable.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		if testing.Short() {
			t.Skip("TEST_DATABASE_URL not set and -short given, skipping postgres tests")
		}
		testcontainers.SkipIfProviderIsNotHealthy(t)

		once.Do(start)
		if startErr != nil {
			t.Fatalf("failed to start postgres container: %v", startErr)
		}
		url = dsn
	}

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func start() {
	ctx := context.Background()

	// the container is reaped by the testcontainers sidecar when the binary exits
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("outbox"),
		postgres.WithUsername("outbox"),
		postgres.WithPassword("outbox"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		startErr = err
		return
	}

	dsn, startErr = ctr.ConnectionString(ctx, "sslmode=disable")
}
