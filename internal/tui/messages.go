package tui

import "github.com/mgomes/mdindex/internal/indexer"

type SetupSubmitMsg struct {
	Sources    []string
	Exclusions []string
}

type SetupErrorMsg struct {
	Error string
}

// SnapshotMsg replaces the whole document list.
type SnapshotMsg struct {
	Snapshot indexer.Snapshot
}

// ChangeMsg carries one live change from a watch session.
type ChangeMsg struct {
	Event indexer.ChangeEvent
}

type WatchErrorMsg struct {
	Error string
}

type actionDoneMsg struct {
	action string
	path   string
	err    error
}
