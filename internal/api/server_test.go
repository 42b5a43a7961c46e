package api

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gebworks/geb-core/internal/audit"
	"github.com/gebworks/geb-core/internal/auth"
	"github.com/gebworks/geb-core/internal/infrastructure/config"
	"github.com/gebworks/geb-core/internal/infrastructure/logging"
	"github.com/gebworks/geb-core/internal/track"
)

// Test signing secrets. Distinct, like production config requires.
const (
	testAccessSecret  = "test-access-secret-key-for-jwt-signing!!"
	testRefreshSecret = "test-refresh-secret-key-for-jwt-signing!"
)

// testServer builds a server over two in-memory databases with the full
// schema, ready for buildRouter(). The main database handle is returned for
// tests that poke at rows directly.
func testServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()

	mainDB := openTestDB(t, `
		CREATE TABLE users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);
		CREATE TABLE tracks (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			file_id    TEXT NOT NULL,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE audit_logs (
			id          TEXT PRIMARY KEY,
			action      TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT,
			user_id     TEXT,
			details     TEXT,
			created_at  TEXT NOT NULL
		);
	`)

	filesDB := openTestDB(t, `
		CREATE TABLE track_files (
			id         TEXT PRIMARY KEY,
			file_name  TEXT NOT NULL,
			file_data  BLOB NOT NULL,
			created_at TEXT NOT NULL
		);
	`)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := &logging.Logger{Logger: discard}

	srv := &Server{
		cfg: config.APIConfig{Host: "127.0.0.1", Port: 0},
		secCfg: config.SecurityConfig{
			JWT: config.JWTConfig{
				AccessSecret:    testAccessSecret,
				RefreshSecret:   testRefreshSecret,
				AccessTokenTTL:  15,
				RefreshTokenTTL: 1440,
			},
		},
		logger:     logger,
		userRepo:   auth.NewUserRepository(mainDB),
		hasher:     auth.NewHasher(4),
		trackStore: track.NewStore(track.NewMetadataRepository(mainDB), track.NewFileRepository(filesDB), discard),
		auditRepo:  audit.NewSQLiteRepository(mainDB),
		version:    "test",
	}
	return srv, mainDB
}

// openTestDB opens an in-memory SQLite database and applies the schema.
func openTestDB(t *testing.T, schema string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user with a hashed password and returns it.
func createTestUser(t *testing.T, srv *Server, username, email, password string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := srv.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}

	user := &auth.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := srv.userRepo.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

// testToken returns a signed access token for the user.
func testToken(t *testing.T, user *auth.User) string {
	t.Helper()

	token, err := auth.GenerateAccessToken(user, testAccessSecret, 15)
	if err != nil {
		t.Fatalf("generating test token: %v", err)
	}
	return token
}
