package tui

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgomes/mdindex/internal/indexer"
)

// BrowserModel lists documents newest first and applies live changes as
// they arrive.
type BrowserModel struct {
	docs      indexer.Snapshot
	filter    textinput.Model
	filtering bool
	selected  int
	status    string
	error     string
	width     int
	height    int
	roots     []string

	// OnOpen is called after a document was handed to the editor.
	OnOpen func(path string)
}

func NewBrowserModel(snapshot indexer.Snapshot, roots []string) BrowserModel {
	filter := textinput.New()
	filter.Placeholder = "filter by path..."
	filter.Prompt = "/ "
	filter.Width = 50

	docs := make(indexer.Snapshot, len(snapshot))
	copy(docs, snapshot)

	return BrowserModel{
		docs:   docs,
		filter: filter,
		roots:  roots,
	}
}

func (m BrowserModel) Init() tea.Cmd {
	return nil
}

// Documents returns the current list, unfiltered.
func (m BrowserModel) Documents() indexer.Snapshot {
	return m.docs
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "/":
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink

		case "esc":
			m.filter.SetValue("")
			m.selected = 0

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.visible())-1 {
				m.selected++
			}

		case "enter", "o":
			if doc, ok := m.current(); ok {
				return m, openInEditor(doc.Path)
			}

		case "r":
			if doc, ok := m.current(); ok {
				return m, revealInFileManager(doc.Path)
			}

		case "y":
			if doc, ok := m.current(); ok {
				return m, copyPath(doc.Path)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case SnapshotMsg:
		m.docs = make(indexer.Snapshot, len(msg.Snapshot))
		copy(m.docs, msg.Snapshot)
		m.clampSelection()

	case ChangeMsg:
		m.docs = applyChange(m.docs, msg.Event)
		m.status = fmt.Sprintf("%s %s", msg.Event.Signal(), msg.Event.EventPath())
		m.clampSelection()

	case WatchErrorMsg:
		m.error = msg.Error

	case actionDoneMsg:
		if msg.err != nil {
			m.error = fmt.Sprintf("failed to %s '%s': %v", msg.action, msg.path, msg.err)
			return m, nil
		}
		m.error = ""
		if msg.action == "copy" {
			m.status = "copied " + msg.path
		}
		if msg.action == "open" && m.OnOpen != nil {
			m.OnOpen(msg.path)
		}
	}

	return m, nil
}

func (m BrowserModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc":
		m.filtering = false
		m.filter.Blur()
		if msg.String() == "esc" {
			m.filter.SetValue("")
		}
		m.selected = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.selected = 0
	return m, cmd
}

func (m BrowserModel) visible() indexer.Snapshot {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if query == "" {
		return m.docs
	}

	var out indexer.Snapshot
	for _, doc := range m.docs {
		if strings.Contains(strings.ToLower(doc.Path), query) {
			out = append(out, doc)
		}
	}
	return out
}

func (m BrowserModel) current() (indexer.DocumentEntry, bool) {
	docs := m.visible()
	if m.selected < 0 || m.selected >= len(docs) {
		return indexer.DocumentEntry{}, false
	}
	return docs[m.selected], true
}

func (m *BrowserModel) clampSelection() {
	n := len(m.visible())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// applyChange returns docs with ev applied, keeping newest-first order.
// Added and Changed replace any existing entry for the path.
func applyChange(docs indexer.Snapshot, ev indexer.ChangeEvent) indexer.Snapshot {
	out := make(indexer.Snapshot, 0, len(docs)+1)
	for _, doc := range docs {
		if doc.Path != ev.EventPath() {
			out = append(out, doc)
		}
	}

	var entry indexer.DocumentEntry
	switch e := ev.(type) {
	case indexer.Added:
		entry = e.Entry
	case indexer.Changed:
		entry = e.Entry
	default:
		return out
	}

	i := sort.Search(len(out), func(i int) bool {
		return out[i].Modified <= entry.Modified
	})
	out = append(out, indexer.DocumentEntry{})
	copy(out[i+1:], out[i:])
	out[i] = entry
	return out
}

func (m BrowserModel) View() string {
	var b strings.Builder

	docs := m.visible()

	b.WriteString(titleStyle.Render("mdindex") + " ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d documents", len(docs))))
	if len(m.roots) > 0 {
		b.WriteString(dimStyle.Render(" in " + strings.Join(m.roots, ", ")))
	}
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n\n")
	}

	if len(docs) == 0 {
		b.WriteString(dimStyle.Render("No documents found") + "\n")
	}

	start, end := m.window(len(docs))
	for i := start; i < end; i++ {
		doc := docs[i]

		var line strings.Builder
		if i == m.selected {
			line.WriteString(selectedStyle.Render("> "))
		} else {
			line.WriteString("  ")
		}

		line.WriteString(timeStyle.Render(formatModified(doc.Modified)) + " ")
		line.WriteString(nameStyle.Render(doc.Name) + " ")
		line.WriteString(pathStyle.Render(truncate(filepath.Dir(doc.Path), m.pathWidth())))
		b.WriteString(line.String() + "\n")
	}

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(truncate(m.status, m.lineWidth())) + "\n")
	}

	if m.error != "" {
		for _, line := range wrapText("Error: "+m.error, m.lineWidth(), 3) {
			b.WriteString(errorStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render("↑/↓ navigate  / filter  enter open  r reveal  y copy path  q quit"))

	return b.String()
}

// window returns the visible slice bounds keeping the selection on screen.
func (m BrowserModel) window(n int) (int, int) {
	rows := m.height - 8
	if rows <= 0 || rows >= n {
		return 0, n
	}

	start := m.selected - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

func (m BrowserModel) lineWidth() int {
	if m.width > 10 {
		return m.width - 2
	}
	return 78
}

func (m BrowserModel) pathWidth() int {
	w := m.lineWidth() - 40
	if w < 20 {
		return 20
	}
	return w
}

func formatModified(unix int64) string {
	if unix <= 0 {
		return "----------------"
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func wrapText(s string, width, maxLines int) []string {
	// Clean up the text
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.TrimSpace(s)

	// Collapse multiple spaces
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}

	if len(s) == 0 {
		return nil
	}

	var lines []string
	for len(s) > 0 && len(lines) < maxLines {
		if len(s) <= width {
			lines = append(lines, s)
			break
		}

		breakAt := width
		for breakAt > width/2 && s[breakAt] != ' ' {
			breakAt--
		}
		if s[breakAt] != ' ' {
			breakAt = width // No space found, just cut
		}

		lines = append(lines, strings.TrimSpace(s[:breakAt]))
		s = strings.TrimSpace(s[breakAt:])
	}

	if len(s) > 0 && len(lines) == maxLines {
		lastLine := lines[maxLines-1]
		if len(lastLine) > width-3 {
			lastLine = lastLine[:width-3]
		}
		lines[maxLines-1] = lastLine + "..."
	}

	return lines
}

// openInEditor suspends the program and runs $EDITOR on path. Without an
// editor the platform opener is used instead.
func openInEditor(path string) tea.Cmd {
	if editor := strings.TrimSpace(os.Getenv("EDITOR")); editor != "" {
		args := strings.Fields(editor)
		cmd := exec.Command(args[0], append(args[1:], path)...)
		return tea.ExecProcess(cmd, func(err error) tea.Msg {
			return actionDoneMsg{action: "open", path: path, err: err}
		})
	}

	return func() tea.Msg {
		cmd := systemOpener(path)
		if cmd == nil {
			return actionDoneMsg{action: "open", path: path, err: fmt.Errorf("unsupported platform %s", runtime.GOOS)}
		}
		return actionDoneMsg{action: "open", path: path, err: cmd.Start()}
	}
}

func revealInFileManager(path string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", "-R", path)
		case "linux":
			cmd = exec.Command("xdg-open", filepath.Dir(path))
		case "windows":
			cmd = exec.Command("explorer", "/select,"+path)
		}
		if cmd == nil {
			return actionDoneMsg{action: "reveal", path: path, err: fmt.Errorf("unsupported platform %s", runtime.GOOS)}
		}
		return actionDoneMsg{action: "reveal", path: path, err: cmd.Start()}
	}
}

func copyPath(path string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: "copy", path: path, err: clipboard.WriteAll(path)}
	}
}

func systemOpener(path string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path)
	case "linux":
		return exec.Command("xdg-open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	}
	return nil
}
