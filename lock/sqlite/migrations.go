package sqlite

import "fmt"

// CreateTableSQL returns the DDL for creating the locks table.
// Timestamps are stored as unix nanoseconds.
func CreateTableSQL(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	acquired_by TEXT NOT NULL,
	acquired_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	version TEXT NOT NULL
);`, tableName)
}
