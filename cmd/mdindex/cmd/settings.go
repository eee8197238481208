package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/indexer"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
	Long: `Show or change the persisted settings.

Examples:
  mdindex settings show
  mdindex settings add-source ~/Writing
  mdindex settings remove-source ~/Code
  mdindex settings exclude archive
  mdindex settings theme dark`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lib.Settings())
	},
}

var settingsAddSourceCmd = &cobra.Command{
	Use:   "add-source <path>",
	Short: "Add or re-enable a source directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := lib.Settings()
		settings.Sources = addSource(settings.Sources, args[0])
		return saveAndReport(settings, "Added source %s", args[0])
	},
}

var settingsRemoveSourceCmd = &cobra.Command{
	Use:   "remove-source <path>",
	Short: "Remove a source directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := lib.Settings()
		sources, ok := removeSource(settings.Sources, args[0])
		if !ok {
			return fmt.Errorf("no source matches %s", args[0])
		}
		settings.Sources = sources
		return saveAndReport(settings, "Removed source %s", args[0])
	},
}

var settingsExcludeCmd = &cobra.Command{
	Use:   "exclude <name>",
	Short: "Skip directories with this name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := lib.Settings()
		for _, name := range settings.Exclusions {
			if name == args[0] {
				fmt.Printf("%s is already excluded\n", args[0])
				return nil
			}
		}
		settings.Exclusions = append(settings.Exclusions, args[0])
		return saveAndReport(settings, "Excluding %s", args[0])
	},
}

var settingsThemeCmd = &cobra.Command{
	Use:       "theme <light|dark|system>",
	Short:     "Set the theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"light", "dark", "system"},
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := lib.Settings()
		settings.Theme = args[0]
		return saveAndReport(settings, "Theme set to %s", args[0])
	},
}

var settingsLastOpenedCmd = &cobra.Command{
	Use:   "last-opened [path]",
	Short: "Show, set or clear (with an empty argument) the last opened document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			if last := lib.Settings().LastOpenedFile; last != nil {
				fmt.Println(*last)
			}
			return nil
		}
		return lib.SetLastOpenedFile(args[0])
	},
}

func saveAndReport(settings config.Settings, format string, args ...interface{}) error {
	if err := lib.SaveSettings(settings); err != nil {
		return err
	}
	fmt.Printf(format+"\n", args...)
	return nil
}

// sameRoot compares source paths after home expansion and cleaning.
func sameRoot(a, b string) bool {
	return filepath.Clean(indexer.ExpandRoot(a)) == filepath.Clean(indexer.ExpandRoot(b))
}

func addSource(sources []config.Source, path string) []config.Source {
	out := make([]config.Source, len(sources))
	copy(out, sources)
	for i := range out {
		if sameRoot(out[i].Path, path) {
			out[i].Enabled = true
			return out
		}
	}
	return append(out, config.Source{Path: path, Enabled: true})
}

func removeSource(sources []config.Source, path string) ([]config.Source, bool) {
	out := make([]config.Source, 0, len(sources))
	found := false
	for _, s := range sources {
		if sameRoot(s.Path, path) {
			found = true
			continue
		}
		out = append(out, s)
	}
	return out, found
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsAddSourceCmd)
	settingsCmd.AddCommand(settingsRemoveSourceCmd)
	settingsCmd.AddCommand(settingsExcludeCmd)
	settingsCmd.AddCommand(settingsThemeCmd)
	settingsCmd.AddCommand(settingsLastOpenedCmd)
}
