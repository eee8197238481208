package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgomes/mdindex/internal/indexer"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan [path...]",
	Short: "List Markdown documents, newest first",
	Long: `Scan the given directories, or the enabled sources when none are given,
and print every Markdown document ordered by modification time.

Examples:
  mdindex scan
  mdindex scan ~/Notes ~/Code/docs
  mdindex scan --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := lib.Scan(cmd.Context(), args)
		if report.Err != nil {
			return fmt.Errorf("scan cancelled: %w", report.Err)
		}

		for _, skip := range report.Skipped {
			fmt.Fprintf(os.Stderr, "skipped %s\n", skip)
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report.Snapshot)
		}

		printSnapshot(report.Snapshot)
		fmt.Fprintf(os.Stderr, "%d documents in %s\n", len(report.Snapshot), report.Duration.Round(time.Millisecond))
		return nil
	},
}

func printSnapshot(snap indexer.Snapshot) {
	for _, doc := range snap {
		modified := "-"
		if doc.Modified > 0 {
			modified = time.Unix(doc.Modified, 0).Format("2006-01-02 15:04")
		}
		fmt.Printf("%-16s %8d  %s\n", modified, doc.Size, doc.Path)
	}
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(scanCmd)
}
