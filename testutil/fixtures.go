package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// CreateSessionDBFixture writes a session database file at dbPath holding values.
func CreateSessionDBFixture(t *testing.T, dbPath string, values map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(createSessionKV); err != nil {
		t.Fatalf("Failed to create session_kv table: %v", err)
	}
	insertValues(t, db, values)
}

// OwnerSessionValues returns the persisted entries of the Acme owner session.
func OwnerSessionValues(issued time.Time) map[string]string {
	return map[string]string{
		"auth_token":      OwnerToken,
		"user_role":       "owner",
		"org_id":          "1",
		"org_name":        "Acme",
		"user_id":         "7",
		"login_timestamp": issued.UTC().Format(time.RFC3339Nano),
	}
}

// MemberSessionValues returns the persisted entries of an Acme member session.
func MemberSessionValues(issued time.Time) map[string]string {
	return map[string]string{
		"auth_token":      MemberToken,
		"user_role":       "member",
		"org_id":          "1",
		"org_name":        "Acme",
		"user_id":         "8",
		"login_timestamp": issued.UTC().Format(time.RFC3339Nano),
	}
}

// Tokens and credentials accepted by the fake backend.
const (
	OwnerToken     = "abc"
	MemberToken    = "mem"
	OwnerUsername  = "alice"
	MemberUsername = "bob"
	Password       = "secret"
)

// DefaultModels is the by-model payload served by the fake backend.
func DefaultModels() []map[string]any {
	return []map[string]any{
		{
			"model_name": "gpt-4o", "usage_count": 12,
			"total_input_tokens": 120000, "total_output_tokens": 30000,
			"total_input_cost": 0.3, "total_output_cost": 0.3, "total_cost": 0.6,
		},
		{
			"model_name": "gpt-4o-mini", "usage_count": 40,
			"total_input_tokens": 200000, "total_output_tokens": 50000,
			"total_input_cost": 0.03, "total_output_cost": 0.03, "total_cost": 0.06,
		},
	}
}

// DefaultStages is the by-stage payload served by the fake backend.
func DefaultStages() []map[string]any {
	return []map[string]any{
		{
			"stage_name": "sql_generation", "usage_count": 30,
			"total_input_tokens": 250000, "total_output_tokens": 60000,
			"total_input_cost": 0.25, "total_output_cost": 0.2, "total_cost": 0.45,
		},
		{
			"stage_name": "answer", "usage_count": 22,
			"total_input_tokens": 70000, "total_output_tokens": 20000,
			"total_input_cost": 0.08, "total_output_cost": 0.13, "total_cost": 0.21,
		},
	}
}

// DefaultUsers is the per-user payload served by the fake backend.
func DefaultUsers() []map[string]any {
	return []map[string]any{
		{
			"user_id": 7, "username": "alice", "conversations_count": 10,
			"total_input_tokens": 220000, "total_output_tokens": 55000,
			"total_input_cost": 0.2, "total_output_cost": 0.26, "total_cost": 0.46,
		},
		{
			"user_id": 8, "username": "", "conversations_count": 4,
			"total_input_tokens": 100000, "total_output_tokens": 25000,
			"total_input_cost": 0.13, "total_output_cost": 0.07, "total_cost": 0.2,
		},
	}
}
