package repository

import (
	"database/sql"
	"testing"

	"github.com/Rubayet19/price-tracker/internal/database/migrations"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// insertTestUser is a helper to insert a test user directly.
func insertTestUser(t *testing.T, db *sql.DB, userID string) {
	t.Helper()
	query := `
		INSERT INTO users (user_id, email, has_paid_access, trial_status, created_at, updated_at)
		VALUES (?, ?, 0, 'not_started', datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, userID, userID+"@example.com"); err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}
}
