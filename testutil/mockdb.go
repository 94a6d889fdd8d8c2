package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

const createSessionKV = `
	CREATE TABLE IF NOT EXISTS session_kv (
		key TEXT PRIMARY KEY,
		value TEXT
	)`

// CreateInMemoryDB creates an in-memory SQLite database with the session_kv table.
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// Every pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSessionKV); err != nil {
		db.Close()
		t.Fatalf("Failed to create session_kv table: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateSessionDB creates an in-memory session database seeded with values.
func CreateSessionDB(t *testing.T, values map[string]string) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)
	insertValues(t, db, values)
	return db
}

func insertValues(t *testing.T, db *sql.DB, values map[string]string) {
	t.Helper()
	for k, v := range values {
		if _, err := db.Exec("INSERT OR REPLACE INTO session_kv (key, value) VALUES (?, ?)", k, v); err != nil {
			t.Fatalf("Failed to insert %s: %v", k, err)
		}
	}
}
