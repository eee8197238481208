package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/db"
	"github.com/mgomes/mdindex/internal/library"
	"github.com/mgomes/mdindex/internal/logging"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

var (
	configDir string
	debug     bool
	noCache   bool

	lib   *library.Library
	cache *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "mdindex",
	Short: "Index and watch directories of Markdown documents",
	Long: `mdindex finds Markdown documents (.md, .mdx) under your configured
source directories and keeps the list current as files change.

Hidden directories and node_modules, .git, vendor, dist, build and target
are never descended into.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return initLibrary(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if lib != nil {
			lib.Close()
		}
		if cache != nil {
			cache.Close() //nolint:errcheck
		}
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops every watch session.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "settings directory (default ~/.config/mdindex)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "do not read or write the snapshot cache")
}

func initLibrary(ctx context.Context) error {
	if debug {
		logging.SetLevel(logging.LevelDebug)
	}
	if configDir != "" {
		if err := os.Setenv("MDINDEX_CONFIG_DIR", configDir); err != nil {
			return err
		}
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	opts := library.Options{
		Persist: func(s *config.Settings) error { return s.Save() },
	}

	if !noCache {
		cache, err = openCache()
		if err != nil {
			logging.Warn("Snapshot cache unavailable: %v", err)
		} else {
			opts.Cache = cache
		}
	}

	lib = library.New(ctx, *settings, opts)
	return nil
}

func openCache() (*db.DB, error) {
	path, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return db.Open(path)
}
