package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/indexer"
	"github.com/mgomes/mdindex/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Choose source directories and exclusions interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := lib.Settings()

		program := tea.NewProgram(newSetupRunner(settings))
		finalModel, err := program.Run()
		if err != nil {
			return err
		}

		runner, ok := finalModel.(setupRunner)
		if !ok || !runner.submitted {
			return fmt.Errorf("setup cancelled")
		}

		settings.Sources = runner.sources
		settings.Exclusions = runner.exclusions
		if err := lib.SaveSettings(settings); err != nil {
			return err
		}

		fmt.Printf("Saved %d sources\n", len(settings.Sources))
		return nil
	},
}

type setupRunner struct {
	setupModel tui.SetupModel
	submitted  bool
	sources    []config.Source
	exclusions []string
}

func newSetupRunner(settings config.Settings) setupRunner {
	return setupRunner{setupModel: tui.NewSetupModel(settings)}
}

func (m setupRunner) Init() tea.Cmd {
	return tea.Batch(m.setupModel.Init(), tea.EnableBracketedPaste)
}

func (m setupRunner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.SetupSubmitMsg:
		sources := make([]config.Source, 0, len(msg.Sources))
		for _, path := range msg.Sources {
			info, err := os.Stat(indexer.ExpandRoot(path))
			if err != nil || !info.IsDir() {
				return m.showError("Not a directory: " + path)
			}
			sources = append(sources, config.Source{Path: path, Enabled: true})
		}

		m.submitted = true
		m.sources = sources
		m.exclusions = msg.Exclusions
		return m, tea.Quit

	default:
		newModel, cmd := m.setupModel.Update(msg)
		if sm, ok := newModel.(tui.SetupModel); ok {
			m.setupModel = sm
		}
		return m, cmd
	}
}

func (m setupRunner) showError(text string) (tea.Model, tea.Cmd) {
	newModel, _ := m.setupModel.Update(tui.SetupErrorMsg{Error: text})
	if sm, ok := newModel.(tui.SetupModel); ok {
		m.setupModel = sm
	}
	return m, nil
}

func (m setupRunner) View() string {
	return m.setupModel.View()
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
