package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DocumentEntry is a point-in-time view of one Markdown file.
type DocumentEntry struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Modified int64  `json:"modified"`
	Size     int64  `json:"size"`
}

// Snapshot is a list of entries ordered newest first with unique paths.
type Snapshot []DocumentEntry

// Paths returns the entry paths in snapshot order.
func (s Snapshot) Paths() []string {
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.Path
	}
	return out
}

// Materialize stats path and builds an entry for it. It returns false when
// the path is gone, is a directory, or is not a Markdown file.
func Materialize(path string) (DocumentEntry, bool) {
	entry, err := materialize(path)
	return entry, err == nil
}

func materialize(path string) (DocumentEntry, error) {
	if !IsMarkdownPath(path) {
		return DocumentEntry{}, errNotDocument
	}

	info, err := os.Stat(path)
	if err != nil {
		return DocumentEntry{}, err
	}
	if info.IsDir() {
		return DocumentEntry{}, errNotDocument
	}

	return entryFromInfo(path, info), nil
}

func entryFromInfo(path string, info os.FileInfo) DocumentEntry {
	return DocumentEntry{
		Path:     path,
		Name:     filepath.Base(path),
		Modified: unixSeconds(info.ModTime()),
		Size:     info.Size(),
	}
}

// unixSeconds converts t to seconds since the epoch. Zero and pre-epoch
// times map to 0 so those entries sort last.
func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	secs := t.Unix()
	if secs < 0 {
		return 0
	}
	return secs
}

// ReadFile returns the contents of a document. The raw path is expanded
// like a root and echoed in the error.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(ExpandRoot(path))
	if err != nil {
		return "", fmt.Errorf("failed to read file '%s': %w", path, err)
	}
	return string(data), nil
}
