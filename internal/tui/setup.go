package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgomes/mdindex/internal/config"
)

const (
	focusSources = iota
	focusExclusions
	focusCount
)

// SetupModel edits the source directories and extra exclusions.
type SetupModel struct {
	sourcesInput    textinput.Model
	exclusionsInput textinput.Model
	focus           int
	error           string
	width           int
	height          int
}

func NewSetupModel(settings config.Settings) SetupModel {
	sources := textinput.New()
	sources.Placeholder = "~/Notes, ~/Code"
	sources.Focus()
	sources.Width = 60

	var paths []string
	for _, s := range settings.Sources {
		if s.Enabled {
			paths = append(paths, s.Path)
		}
	}
	sources.SetValue(strings.Join(paths, ", "))

	exclusions := textinput.New()
	exclusions.Placeholder = "node_modules, vendor, dist"
	exclusions.Width = 60
	exclusions.SetValue(strings.Join(settings.Exclusions, ", "))

	return SetupModel{
		sourcesInput:    sources,
		exclusionsInput: exclusions,
		focus:           focusSources,
	}
}

func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *SetupModel) setFocus(focus int) {
	m.focus = (focus + focusCount) % focusCount
	if m.focus == focusSources {
		m.exclusionsInput.Blur()
		m.sourcesInput.Focus()
	} else {
		m.sourcesInput.Blur()
		m.exclusionsInput.Focus()
	}
}

func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab", "down":
			m.setFocus(m.focus + 1)
			return m, nil

		case "shift+tab", "up":
			m.setFocus(m.focus - 1)
			return m, nil

		case "enter":
			sources := splitList(m.sourcesInput.Value())
			if len(sources) == 0 {
				m.error = "At least one source directory is required"
				return m, nil
			}

			exclusions := splitList(m.exclusionsInput.Value())
			return m, func() tea.Msg {
				return SetupSubmitMsg{
					Sources:    sources,
					Exclusions: exclusions,
				}
			}
		}

		m = m.updateFocused(msg, &cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case SetupErrorMsg:
		m.error = msg.Error

	default:
		m = m.updateFocused(msg, &cmd)
	}

	return m, cmd
}

func (m SetupModel) updateFocused(msg tea.Msg, cmd *tea.Cmd) SetupModel {
	if m.focus == focusSources {
		m.sourcesInput, *cmd = m.sourcesInput.Update(msg)
	} else {
		m.exclusionsInput, *cmd = m.exclusionsInput.Update(msg)
	}
	return m
}

func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("mdindex - Setup") + "\n\n")
	b.WriteString("Choose the directories to index for Markdown documents.\n")
	b.WriteString(dimStyle.Render("Hidden directories and node_modules, .git, vendor, dist, build, target are always skipped.") + "\n\n")

	b.WriteString(m.label("Source directories (comma separated):", focusSources) + "\n")
	b.WriteString(inputBoxStyle.Render(m.sourcesInput.View()) + "\n\n")

	b.WriteString(m.label("Extra exclusions (comma separated):", focusExclusions) + "\n")
	b.WriteString(inputBoxStyle.Render(m.exclusionsInput.View()) + "\n")

	if m.error != "" {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.error) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("tab switch field  enter submit  esc cancel"))

	return b.String()
}

func (m SetupModel) label(text string, focus int) string {
	if m.focus == focus {
		return activeStyle.Render("> " + text)
	}
	return "  " + text
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
