package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/indexer"
	"github.com/mgomes/mdindex/internal/logging"
	"github.com/mgomes/mdindex/internal/tui"
)

var watchTUI bool

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Report documents as they are added, changed or removed",
	Long: `Watch the given directories, or the enabled sources when none are given,
and report Markdown documents as they change. With --tui an interactive
browser shows the full list and updates it live.

Examples:
  mdindex watch
  mdindex watch ~/Notes
  mdindex watch --tui`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchTUI {
			return runBrowser(cmd, args)
		}
		return runWatch(cmd, args)
	},
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	events := make(indexer.ChanSink, 64)

	session, err := lib.StartWatching(events, args)
	if err != nil {
		return err
	}

	for _, skip := range session.Skipped() {
		fmt.Fprintf(os.Stderr, "skipped %s\n", skip)
	}
	fmt.Fprintf(os.Stderr, "Watching %d directories (session %s). Press Ctrl+C to stop.\n", session.Watched(), session.ID())

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\nStopping watcher...")
			session.Stop()
			return nil
		case <-session.Done():
			return nil
		case ev := <-events:
			fmt.Printf("%s %-13s %s\n", time.Now().Format("15:04:05"), ev.Signal(), ev.EventPath())
		}
	}
}

func runBrowser(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logFile, err := openLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close() //nolint:errcheck
	logging.SetOutput(logFile)
	defer logging.SetOutput(os.Stderr)

	if err := lib.LoadCachedSnapshot(); err != nil {
		logging.Warn("%v", err)
	}

	roots := args
	if len(roots) == 0 {
		roots = lib.State().Config().EnabledRoots()
	}

	model := tui.NewBrowserModel(lib.Snapshot(), roots)
	model.OnOpen = func(path string) {
		if err := lib.SetLastOpenedFile(path); err != nil {
			logging.Warn("Failed to record last opened file: %v", err)
		}
	}

	program := tea.NewProgram(model, tea.WithAltScreen())

	session, err := lib.StartWatching(tui.NewProgramSink(program), roots)
	if err != nil {
		return err
	}
	defer session.Stop()

	go func() {
		report := lib.Scan(ctx, roots)
		if report.Err != nil {
			return
		}
		program.Send(tui.SnapshotMsg{Snapshot: report.Snapshot})
		if n := len(session.Skipped()); n > 0 {
			program.Send(tui.WatchErrorMsg{Error: fmt.Sprintf("%d roots could not be watched, see the log", n)})
		}
	}()

	_, err = program.Run()
	return err
}

func openLogFile() (*os.File, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "mdindex.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

func init() {
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "show an interactive live document browser")
	rootCmd.AddCommand(watchCmd)
}
