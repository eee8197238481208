package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mgomes/mdindex/internal/indexer"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	tmpDir, err := os.MkdirTemp("", "mdindex-db-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func TestDatabaseOpen(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if db == nil {
		t.Fatal("expected non-nil database")
	}

	savedAt, err := db.SavedAt()
	if err != nil {
		t.Fatalf("failed to read saved_at: %v", err)
	}
	if !savedAt.IsZero() {
		t.Errorf("expected zero saved_at on fresh database, got %v", savedAt)
	}
}

func TestSnapshotRoundTripKeepsOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	snap := indexer.Snapshot{
		{Path: "/notes/b.md", Name: "b.md", Modified: 300, Size: 10},
		{Path: "/notes/c.md", Name: "c.md", Modified: 200, Size: 20},
		{Path: "/notes/a.md", Name: "a.md", Modified: 200, Size: 30},
	}

	if err := db.SaveSnapshot(snap); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	loaded, err := db.LoadSnapshot()
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}

	if len(loaded) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(loaded))
	}
	for i := range snap {
		if loaded[i] != snap[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, snap[i], loaded[i])
		}
	}

	savedAt, _ := db.SavedAt()
	if savedAt.IsZero() {
		t.Error("expected saved_at to be set")
	}
}

func TestSaveSnapshotReplaces(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_ = db.SaveSnapshot(indexer.Snapshot{
		{Path: "/a.md", Name: "a.md"},
		{Path: "/b.md", Name: "b.md"},
	})
	if err := db.SaveSnapshot(indexer.Snapshot{{Path: "/c.md", Name: "c.md"}}); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	count, _ := db.DocumentCount()
	if count != 1 {
		t.Errorf("expected 1 document, got %d", count)
	}

	loaded, _ := db.LoadSnapshot()
	if len(loaded) != 1 || loaded[0].Path != "/c.md" {
		t.Errorf("expected only /c.md, got %v", loaded.Paths())
	}
}

func TestLoadEmptySnapshot(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	loaded, err := db.LoadSnapshot()
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if loaded == nil || len(loaded) != 0 {
		t.Errorf("expected empty snapshot, got %v", loaded)
	}
}
