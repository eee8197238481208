package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgomes/mdindex/internal/indexer"
)

// ProgramSink forwards watch events into a running program as ChangeMsg.
type ProgramSink struct {
	program *tea.Program
}

func NewProgramSink(p *tea.Program) *ProgramSink {
	return &ProgramSink{program: p}
}

func (s *ProgramSink) Emit(ev indexer.ChangeEvent) error {
	s.program.Send(ChangeMsg{Event: ev})
	return nil
}
