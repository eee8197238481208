// Package state holds the process-wide document snapshot and settings.
package state

import (
	"sync"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/indexer"
)

// AppState owns the latest snapshot and the current settings. Values are
// copied on the way in and out, so callers never share memory with the
// store and the lock is only held for the copy.
type AppState struct {
	mu       sync.Mutex
	snapshot indexer.Snapshot
	settings config.Settings
}

func New(settings config.Settings) *AppState {
	return &AppState{
		snapshot: indexer.Snapshot{},
		settings: settings.Clone(),
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *AppState) Snapshot() indexer.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(indexer.Snapshot{}, s.snapshot...)
}

// ReplaceSnapshot swaps in snap. The last writer wins regardless of when
// its scan started.
func (s *AppState) ReplaceSnapshot(snap indexer.Snapshot) {
	cp := append(indexer.Snapshot{}, snap...)
	s.mu.Lock()
	s.snapshot = cp
	s.mu.Unlock()
}

// Config returns the current root configuration.
func (s *AppState) Config() config.RootConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.RootConfiguration.Clone()
}

// ReplaceConfig swaps the root configuration, leaving other settings alone.
func (s *AppState) ReplaceConfig(rc config.RootConfiguration) {
	cp := rc.Clone()
	s.mu.Lock()
	s.settings.RootConfiguration = cp
	s.mu.Unlock()
}

// Settings returns a copy of all settings.
func (s *AppState) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

func (s *AppState) ReplaceSettings(settings config.Settings) {
	cp := settings.Clone()
	s.mu.Lock()
	s.settings = cp
	s.mu.Unlock()
}
