package database

import (
	"path/filepath"
	"testing"
)

func TestMigrateFreshDatabase(t *testing.T) {
	db := openTestDB(t)
	version, err := getSchemaVersion(db.conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.InsertEpisode("Kept across reopen", nil, "2026-03-15T10:00:00Z", true, nil)
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalEpisodes != 1 {
		t.Errorf("expected data to survive reopen, got %d episodes", stats.TotalEpisodes)
	}
}
