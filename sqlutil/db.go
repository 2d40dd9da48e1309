package sqlutil

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of a database handle used by the stores. Adapters exist
// for pgx (pool, conn, tx) and database/sql (db, conn, tx), so a store can run
// the same query against a pool or inside a caller supplied transaction.
type DB interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Scannable
}

// PgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StdQuerier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type StdQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FromPgx adapts a pgx querier to DB.
func FromPgx(q PgxQuerier) DB {
	return pgxDB{q: q}
}

// FromStdLib adapts a database/sql querier to DB.
func FromStdLib(q StdQuerier) DB {
	return stdDB{q: q}
}

// IsNoRows reports whether err signals an empty single row result.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

type pgxDB struct {
	q PgxQuerier
}

func (d pgxDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := d.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (d pgxDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := d.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{Rows: rows}, nil
}

func (d pgxDB) QueryRow(ctx context.Context, query string, args ...any) Scannable {
	return d.q.QueryRow(ctx, query, args...)
}

// pgxRows gives pgx.Rows the error returning Close of the Rows interface.
type pgxRows struct {
	pgx.Rows
}

func (r pgxRows) Close() error {
	r.Rows.Close()
	return nil
}

type stdDB struct {
	q StdQuerier
}

func (d stdDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d stdDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := d.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (d stdDB) QueryRow(ctx context.Context, query string, args ...any) Scannable {
	return d.q.QueryRowContext(ctx, query, args...)
}
