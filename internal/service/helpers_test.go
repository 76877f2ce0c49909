package service_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"pomodoro/collab/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if _, err := db.RunMigrations(context.Background(), database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}
