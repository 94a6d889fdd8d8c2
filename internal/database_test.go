package internal

import (
	"path/filepath"
	"testing"

	"github.com/iksnae/orgdash/testutil"
)

func TestOpenDatabase(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "existing database",
			setup: func(t *testing.T) string {
				dbPath := filepath.Join(t.TempDir(), "session.db")
				testutil.CreateSessionDBFixture(t, dbPath, map[string]string{"auth_token": "abc"})
				return dbPath
			},
		},
		{
			name: "new database in missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nested", "dir", "session.db")
			},
		},
		{
			name: "in-memory database",
			setup: func(t *testing.T) string {
				return ":memory:"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setup(t)
			db, err := OpenDatabase(dbPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OpenDatabase() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			defer db.Close()

			if _, err := QueryKV(db, "%"); err != nil {
				t.Errorf("session_kv table not usable: %v", err)
			}
		})
	}
}

func TestReplaceAndQueryKV(t *testing.T) {
	db, err := OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer db.Close()

	first := []KeyValuePair{
		{Key: "auth_token", Value: "abc"},
		{Key: "user_role", Value: "owner"},
		{Key: "org_id", Value: "1"},
	}
	if err := ReplaceKV(db, first); err != nil {
		t.Fatalf("ReplaceKV() error = %v", err)
	}

	pairs, err := QueryKV(db, "%")
	if err != nil {
		t.Fatalf("QueryKV() error = %v", err)
	}
	if len(pairs) != 3 {
		t.Errorf("QueryKV() returned %d pairs, want 3", len(pairs))
	}

	// A second replace drops keys that are not part of the new group.
	if err := ReplaceKV(db, []KeyValuePair{{Key: "auth_token", Value: "xyz"}}); err != nil {
		t.Fatalf("ReplaceKV() error = %v", err)
	}
	pairs, err = QueryKV(db, "%")
	if err != nil {
		t.Fatalf("QueryKV() error = %v", err)
	}
	if len(pairs) != 1 || pairs[0].Value != "xyz" {
		t.Errorf("QueryKV() = %+v, want single auth_token=xyz", pairs)
	}

	roles, err := QueryKV(db, "user_%")
	if err != nil {
		t.Fatalf("QueryKV() error = %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("QueryKV(user_%%) = %+v, want none", roles)
	}

	if err := ClearKV(db); err != nil {
		t.Fatalf("ClearKV() error = %v", err)
	}
	pairs, _ = QueryKV(db, "%")
	if len(pairs) != 0 {
		t.Errorf("ClearKV() left %d pairs", len(pairs))
	}
}
