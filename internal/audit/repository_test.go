package audit

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE audit_logs (
			id          TEXT PRIMARY KEY,
			action      TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT,
			user_id     TEXT,
			details     TEXT,
			created_at  TEXT NOT NULL
		);
	`
	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create audit schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	entry := &Entry{
		Action:     "create",
		EntityType: "track",
		EntityID:   "trk-1",
		UserID:     "usr-1",
		Details:    map[string]any{"name": "melody"},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" {
		t.Error("Create() should assign an ID")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("List() total = %d, entries = %d, want 1 each", result.Total, len(result.Entries))
	}

	got := result.Entries[0]
	if got.Action != "create" || got.EntityType != "track" || got.EntityID != "trk-1" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.Details["name"] != "melody" {
		t.Errorf("details = %v, want name=melody", got.Details)
	}
}

func TestList_Filters(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	seed := []Entry{
		{Action: "login", EntityType: "user", UserID: "usr-1"},
		{Action: "create", EntityType: "track", UserID: "usr-1"},
		{Action: "delete", EntityType: "track", UserID: "usr-2"},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"no filter", Filter{}, 3},
		{"by action", Filter{Action: "login"}, 1},
		{"by entity type", Filter{EntityType: "track"}, 2},
		{"by user", Filter{UserID: "usr-1"}, 2},
		{"combined", Filter{EntityType: "track", UserID: "usr-2"}, 1},
		{"no matches", Filter{Action: "register"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("total = %d, want %d", result.Total, tt.want)
			}
		})
	}
}

func TestList_Pagination(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := &Entry{Action: "login", EntityType: "user"}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	result, err := repo.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(result.Entries))
	}
	if result.Total != 5 {
		t.Errorf("total = %d, want 5", result.Total)
	}

	// Limit is capped.
	result, err = repo.List(ctx, Filter{Limit: 9999})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != maxLimit {
		t.Errorf("limit = %d, want capped to %d", result.Limit, maxLimit)
	}
}
