// Package mcptools exposes the document index as MCP tools.
package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mgomes/mdindex/internal/indexer"
	"github.com/mgomes/mdindex/internal/library"
)

const defaultListLimit = 50

// NewServer builds an MCP server with every tool registered.
func NewServer(lib *library.Library, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mdindex",
		version,
		server.WithToolCapabilities(true),
	)
	Register(s, lib)
	return s
}

// Register adds the document tools to s.
func Register(s *server.MCPServer, lib *library.Library) {
	s.AddTool(listTool(), listHandler(lib))
	s.AddTool(scanTool(), scanHandler(lib))
	s.AddTool(readTool(), readHandler(lib))
	s.AddTool(sessionsTool(), sessionsHandler(lib))
}

// --- list_documents ---

func listTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List indexed Markdown documents, newest first."),
		mcp.WithString("filter",
			mcp.Description("Only documents whose path contains this text (case-insensitive)."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of documents to return. Defaults to 50."),
		),
	)
}

func listHandler(lib *library.Library) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := strings.ToLower(strings.TrimSpace(req.GetString("filter", "")))
		limit := req.GetInt("limit", defaultListLimit)
		if limit <= 0 {
			limit = defaultListLimit
		}

		var docs indexer.Snapshot
		for _, doc := range lib.Snapshot() {
			if filter != "" && !strings.Contains(strings.ToLower(doc.Path), filter) {
				continue
			}
			docs = append(docs, doc)
			if len(docs) == limit {
				break
			}
		}

		if len(docs) == 0 {
			return mcp.NewToolResultText("No documents."), nil
		}
		return mcp.NewToolResultText(formatDocuments(docs)), nil
	}
}

// --- scan ---

func scanTool() mcp.Tool {
	return mcp.NewTool("scan",
		mcp.WithDescription("Rescan directories for Markdown documents and replace the index."),
		mcp.WithString("paths",
			mcp.Description("Comma-separated directories to scan. Omit to scan the enabled sources."),
		),
	)
}

func scanHandler(lib *library.Library) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var roots []string
		for _, p := range strings.Split(req.GetString("paths", ""), ",") {
			if p = strings.TrimSpace(p); p != "" {
				roots = append(roots, p)
			}
		}

		report := lib.Scan(ctx, roots)
		if report.Err != nil {
			return toolError(fmt.Errorf("scan cancelled: %w", report.Err))
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Found %d documents in %v.\n", len(report.Snapshot), report.Duration.Round(time.Millisecond))
		for _, skip := range report.Skipped {
			fmt.Fprintf(&sb, "skipped %s\n", skip)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- read_document ---

func readTool() mcp.Tool {
	return mcp.NewTool("read_document",
		mcp.WithDescription("Read the full text of a Markdown document."),
		mcp.WithString("path",
			mcp.Description("Absolute path of the document, or one starting with ~."),
			mcp.Required(),
		),
	)
}

func readHandler(lib *library.Library) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return toolError(fmt.Errorf("path is required"))
		}

		content, err := lib.ReadFile(path)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(content), nil
	}
}

// --- watch_sessions ---

func sessionsTool() mcp.Tool {
	return mcp.NewTool("watch_sessions",
		mcp.WithDescription("List the running filesystem watch sessions."),
	)
}

func sessionsHandler(lib *library.Library) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions := lib.Sessions()
		if len(sessions) == 0 {
			return mcp.NewToolResultText("No watch sessions."), nil
		}

		var sb strings.Builder
		for _, s := range sessions {
			fmt.Fprintf(&sb, "%s  %d dirs  %s  since %s\n",
				s.ID, s.Watched, strings.Join(s.Roots, ", "), s.StartedAt.Format(time.RFC3339))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func formatDocuments(docs indexer.Snapshot) string {
	var sb strings.Builder
	for _, doc := range docs {
		modified := "-"
		if doc.Modified > 0 {
			modified = time.Unix(doc.Modified, 0).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&sb, "%s  %d bytes  %s\n", modified, doc.Size, doc.Path)
	}
	return sb.String()
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
