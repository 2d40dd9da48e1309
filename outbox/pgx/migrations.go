package pgx

import "fmt"

// CreateTableSQL returns the DDL for creating the outbox messages table
// inside schema.
func CreateTableSQL(schema, tableName string) string {
	return fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[1]s.%[2]s (
	id TEXT PRIMARY KEY,
	message_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[2]s_pending
	ON %[1]s.%[2]s (processed_at, occurred_at);`, schema, tableName)
}
