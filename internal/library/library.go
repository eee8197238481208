// Package library ties the document state, scanner, watcher and snapshot
// cache together behind the operations the CLI, TUI and HTTP API call.
package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgomes/mdindex/internal/config"
	"github.com/mgomes/mdindex/internal/db"
	"github.com/mgomes/mdindex/internal/indexer"
	"github.com/mgomes/mdindex/internal/logging"
	"github.com/mgomes/mdindex/internal/state"
)

var ErrUnknownSession = errors.New("unknown watch session")

// Options configures optional collaborators.
type Options struct {
	// Cache persists snapshots between runs. Nil disables caching.
	Cache *db.DB
	// Persist stores settings. Nil keeps settings in memory only.
	Persist func(*config.Settings) error
}

type Library struct {
	ctx     context.Context
	state   *state.AppState
	watcher *indexer.Watcher
	cache   *db.DB
	persist func(*config.Settings) error
}

// New creates a Library. ctx bounds the lifetime of every watch session it
// starts.
func New(ctx context.Context, settings config.Settings, opts Options) *Library {
	return &Library{
		ctx:     ctx,
		state:   state.New(settings),
		watcher: indexer.NewWatcher(indexer.NewPolicy(settings.Exclusions)),
		cache:   opts.Cache,
		persist: opts.Persist,
	}
}

func (l *Library) State() *state.AppState {
	return l.state
}

// LoadCachedSnapshot seeds the state from the cache, if one is configured.
func (l *Library) LoadCachedSnapshot() error {
	if l.cache == nil {
		return nil
	}
	snap, err := l.cache.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to load cached snapshot: %w", err)
	}
	l.state.ReplaceSnapshot(snap)
	return nil
}

// Scan walks roots, or the enabled sources when roots is empty, and swaps
// the result into the state. The traversal runs without holding the state
// lock. A cancelled scan leaves the state and the cache untouched and
// reports the cancellation in report.Err.
func (l *Library) Scan(ctx context.Context, roots []string) indexer.ScanReport {
	rc := l.state.Config()
	if len(roots) == 0 {
		roots = rc.EnabledRoots()
	}

	report := indexer.NewScanner(indexer.NewPolicy(rc.Exclusions)).ScanWithReport(ctx, roots)
	if report.Err != nil {
		logging.Warn("Scan cancelled, keeping previous snapshot: %v", report.Err)
		return report
	}
	l.state.ReplaceSnapshot(report.Snapshot)

	for _, skip := range report.Skipped {
		logging.Debug("Scan skipped %s", skip)
	}

	if l.cache != nil {
		if err := l.cache.SaveSnapshot(report.Snapshot); err != nil {
			logging.Warn("Failed to cache snapshot: %v", err)
		}
	}

	return report
}

// Snapshot returns the last snapshot.
func (l *Library) Snapshot() indexer.Snapshot {
	return l.state.Snapshot()
}

func (l *Library) ReadFile(path string) (string, error) {
	return indexer.ReadFile(path)
}

// StartWatching starts a new session alongside any running ones. Empty
// roots mean the enabled sources.
func (l *Library) StartWatching(sink indexer.Sink, roots []string) (*indexer.Session, error) {
	return l.watcher.Start(l.ctx, l.rootsOrDefault(roots), sink)
}

// ReplaceWatching stops every running session and starts one over roots.
func (l *Library) ReplaceWatching(sink indexer.Sink, roots []string) (*indexer.Session, error) {
	return l.watcher.Replace(l.ctx, l.rootsOrDefault(roots), sink)
}

func (l *Library) StopWatching(id string) error {
	if !l.watcher.Stop(id) {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return nil
}

func (l *Library) Sessions() []indexer.SessionInfo {
	return l.watcher.Sessions()
}

func (l *Library) Settings() config.Settings {
	return l.state.Settings()
}

// SaveSettings validates, persists and installs settings. New exclusions
// apply to scans and to sessions started afterwards; running sessions keep
// their configuration until replaced.
func (l *Library) SaveSettings(settings config.Settings) error {
	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}
	if l.persist != nil {
		if err := l.persist(&settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}
	l.state.ReplaceSettings(settings)
	l.watcher.SetPolicy(indexer.NewPolicy(settings.Exclusions))
	return nil
}

// SetLastOpenedFile records the most recently opened document.
func (l *Library) SetLastOpenedFile(path string) error {
	settings := l.state.Settings()
	if path == "" {
		settings.LastOpenedFile = nil
	} else {
		settings.LastOpenedFile = &path
	}
	return l.SaveSettings(settings)
}

// Close stops every watch session.
func (l *Library) Close() {
	l.watcher.StopAll()
}

func (l *Library) rootsOrDefault(roots []string) []string {
	if len(roots) > 0 {
		return roots
	}
	return l.state.Config().EnabledRoots()
}
