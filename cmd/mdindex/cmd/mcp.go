package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mgomes/mdindex/internal/logging"
	"github.com/mgomes/mdindex/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the document index as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := lib.LoadCachedSnapshot(); err != nil {
			logging.Warn("%v", err)
		}
		if len(lib.Snapshot()) == 0 {
			lib.Scan(cmd.Context(), nil)
		}

		return server.ServeStdio(mcptools.NewServer(lib, version))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
