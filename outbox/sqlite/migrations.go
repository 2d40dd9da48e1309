package sqlite

import "fmt"

// CreateTableSQL returns the DDL for creating the outbox messages table.
// Timestamps are stored as unix nanoseconds.
func CreateTableSQL(tableName string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	message_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	occurred_at INTEGER NOT NULL,
	processed_at INTEGER,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_pending
	ON %[1]s (processed_at, occurred_at);`, tableName)
}
