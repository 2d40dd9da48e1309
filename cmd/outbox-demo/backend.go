package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/enverbisevac/txoutbox/lock"
	lockpgx "github.com/enverbisevac/txoutbox/lock/pgx"
	locksqlite "github.com/enverbisevac/txoutbox/lock/sqlite"
	"github.com/enverbisevac/txoutbox/outbox"
	outboxpgx "github.com/enverbisevac/txoutbox/outbox/pgx"
	outboxsqlite "github.com/enverbisevac/txoutbox/outbox/sqlite"
	"github.com/enverbisevac/txoutbox/sqlutil"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// Session is an outbox session that also runs business statements inside
// its open transaction.
type Session interface {
	outbox.Session
	DB() sqlutil.DB
}

// Backend bundles the stores of one database.
type Backend struct {
	Store      outbox.Store
	Locks      lock.Store
	NewSession func() Session

	// InsertPurchase inserts (item, customer) and returns the new id.
	InsertPurchase string

	ping  func(ctx context.Context) error
	close func()
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

func (b *Backend) Close() {
	b.close()
}

// OpenBackend connects to the configured database and creates the outbox,
// lock and purchase tables when missing.
func OpenBackend(ctx context.Context, config DatabaseConfig) (*Backend, error) {
	switch config.Driver {
	case driverSQLite:
		return openSQLite(ctx, config.DSN)
	case driverPostgres:
		return openPostgres(ctx, config.DSN)
	default:
		return nil, fmt.Errorf("backend: unsupported driver %q", config.Driver)
	}
}

func openSQLite(ctx context.Context, dsn string) (*Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("backend: open sqlite: %w", err)
	}

	ddl := []string{
		outboxsqlite.CreateTableSQL("outbox_messages"),
		locksqlite.CreateTableSQL("outbox_locks"),
		`CREATE TABLE IF NOT EXISTS purchases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item TEXT NOT NULL,
	customer TEXT NOT NULL
)`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("backend: migrate sqlite: %w", err)
		}
	}

	store := outboxsqlite.New(db)
	return &Backend{
		Store: store,
		Locks: locksqlite.New(db),
		NewSession: func() Session {
			return store.NewSession()
		},
		InsertPurchase: `INSERT INTO purchases (item, customer) VALUES (?, ?) RETURNING id`,
		ping:           db.PingContext,
		close:          func() { db.Close() },
	}, nil
}

func openPostgres(ctx context.Context, dsn string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("backend: connect postgres: %w", err)
	}

	ddl := []string{
		outboxpgx.CreateTableSQL("outbox", "messages"),
		lockpgx.CreateTableSQL("outbox", "locks"),
		`CREATE TABLE IF NOT EXISTS purchases (
	id BIGSERIAL PRIMARY KEY,
	item TEXT NOT NULL,
	customer TEXT NOT NULL
)`,
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("backend: migrate postgres: %w", err)
		}
	}

	store := outboxpgx.New(pool)
	return &Backend{
		Store: store,
		Locks: lockpgx.New(pool),
		NewSession: func() Session {
			return store.NewSession()
		},
		InsertPurchase: `INSERT INTO purchases (item, customer) VALUES ($1, $2) RETURNING id`,
		ping:           pool.Ping,
		close:          pool.Close,
	}, nil
}
