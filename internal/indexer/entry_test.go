package indexer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMaterialize_ExistingFile(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "notes/today.md", "# Today\n", 1700000000)

	entry, ok := Materialize(path)
	if !ok {
		t.Fatal("expected entry for existing markdown file")
	}
	if entry.Path != path {
		t.Errorf("expected path '%s', got '%s'", path, entry.Path)
	}
	if entry.Name != "today.md" {
		t.Errorf("expected name 'today.md', got '%s'", entry.Name)
	}
	if entry.Modified != 1700000000 {
		t.Errorf("expected modified 1700000000, got %d", entry.Modified)
	}
	if entry.Size != int64(len("# Today\n")) {
		t.Errorf("expected size %d, got %d", len("# Today\n"), entry.Size)
	}
}

func TestMaterialize_Rejections(t *testing.T) {
	root := t.TempDir()
	txt := writeDoc(t, root, "notes.txt", "plain", 100)
	dir := filepath.Join(root, "folder.md")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	tests := map[string]string{
		"missing":      filepath.Join(root, "gone.md"),
		"not markdown": txt,
		"directory":    dir,
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			if _, ok := Materialize(path); ok {
				t.Errorf("expected no entry for %s", path)
			}
		})
	}
}

func TestMaterialize_PreEpochDegradesToZero(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "old.md", "x", 100)

	old := time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Skipf("filesystem rejects pre-epoch times: %v", err)
	}

	entry, ok := Materialize(path)
	if !ok {
		t.Fatal("expected entry despite pre-epoch timestamp")
	}
	if entry.Modified != 0 {
		t.Errorf("expected modified 0, got %d", entry.Modified)
	}
}

func TestUnixSeconds(t *testing.T) {
	if got := unixSeconds(time.Time{}); got != 0 {
		t.Errorf("expected 0 for zero time, got %d", got)
	}
	if got := unixSeconds(time.Unix(-5, 0)); got != 0 {
		t.Errorf("expected 0 for pre-epoch time, got %d", got)
	}
	if got := unixSeconds(time.Unix(42, 900)); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "doc.md", "# Hello\n\nbody\n", 100)

	content, err := ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if content != "# Hello\n\nbody\n" {
		t.Errorf("unexpected content %q", content)
	}
}

func TestReadFile_ErrorEchoesPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.md")

	_, err := ReadFile(missing)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), missing) {
		t.Errorf("expected error to contain path, got '%v'", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected error to wrap fs.ErrNotExist, got '%v'", err)
	}
}
