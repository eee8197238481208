package mcptools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/library"
)

func newTestLibrary(t *testing.T, root string) *library.Library {
	t.Helper()
	settings := config.DefaultSettings()
	settings.Sources = []config.Source{{Path: root, Enabled: true}}
	lib := library.New(context.Background(), settings, library.Options{})
	t.Cleanup(lib.Close)
	return lib
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sb strings.Builder
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			sb.WriteString(tc.Text)
		case *mcp.TextContent:
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), res.IsError
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestScanThenList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha.md"), "a")
	writeFile(t, filepath.Join(root, "beta.mdx"), "b")
	lib := newTestLibrary(t, root)

	text, isErr := call(t, scanHandler(lib), nil)
	if isErr {
		t.Fatalf("scan failed: %s", text)
	}
	if !strings.Contains(text, "Found 2 documents") {
		t.Errorf("expected 2 documents, got %q", text)
	}

	text, _ = call(t, listHandler(lib), map[string]any{"filter": "ALPHA"})
	if !strings.Contains(text, "alpha.md") || strings.Contains(text, "beta.mdx") {
		t.Errorf("expected only alpha.md, got %q", text)
	}

	text, _ = call(t, listHandler(lib), map[string]any{"limit": 1})
	if strings.Count(text, "\n") != 1 {
		t.Errorf("expected one line, got %q", text)
	}
}

func TestListEmpty(t *testing.T) {
	lib := newTestLibrary(t, t.TempDir())

	text, _ := call(t, listHandler(lib), nil)
	if text != "No documents." {
		t.Errorf("expected 'No documents.', got %q", text)
	}
}

func TestScanReportsSkippedRoot(t *testing.T) {
	root := t.TempDir()
	lib := newTestLibrary(t, root)

	text, _ := call(t, scanHandler(lib), map[string]any{"paths": root + ", " + filepath.Join(root, "missing")})
	if !strings.Contains(text, "missing_root") {
		t.Errorf("expected missing root to be reported, got %q", text)
	}
}

func TestReadDocument(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "doc.md")
	writeFile(t, path, "# Hello")
	lib := newTestLibrary(t, root)

	text, isErr := call(t, readHandler(lib), map[string]any{"path": path})
	if isErr || text != "# Hello" {
		t.Errorf("expected document text, got %q (error=%v)", text, isErr)
	}

	text, isErr = call(t, readHandler(lib), map[string]any{"path": filepath.Join(root, "nope.md")})
	if !isErr {
		t.Error("expected tool error for missing file")
	}
	if !strings.Contains(text, "nope.md") {
		t.Errorf("expected path in error, got %q", text)
	}

	_, isErr = call(t, readHandler(lib), nil)
	if !isErr {
		t.Error("expected tool error without path")
	}
}

func TestWatchSessions(t *testing.T) {
	root := t.TempDir()
	lib := newTestLibrary(t, root)

	text, _ := call(t, sessionsHandler(lib), nil)
	if text != "No watch sessions." {
		t.Errorf("expected no sessions, got %q", text)
	}

	session, err := lib.StartWatching(nil, nil)
	if err != nil {
		t.Fatalf("failed to start watching: %v", err)
	}

	text, _ = call(t, sessionsHandler(lib), nil)
	if !strings.Contains(text, session.ID()) {
		t.Errorf("expected session %s listed, got %q", session.ID(), text)
	}
}
