package pgx

import "fmt"

// CreateTableSQL returns the DDL for creating the locks table inside schema.
func CreateTableSQL(schema, tableName string) string {
	return fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;

CREATE TABLE IF NOT EXISTS %s.%s (
	name TEXT PRIMARY KEY,
	acquired_by TEXT NOT NULL,
	acquired_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	version TEXT NOT NULL
);`, schema, schema, tableName)
}
