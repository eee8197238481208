package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/mgomes/mdindex/internal/logging"
	"github.com/mgomes/mdindex/internal/metrics"
)

// Watcher owns the live watch sessions. Every Start creates an independent
// session; sessions over the same root do not deduplicate each other and
// keep running until stopped.
type Watcher struct {
	mu       sync.Mutex
	policy   *Policy
	sessions map[string]*Session
}

// SessionInfo describes a running session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Roots     []string  `json:"roots"`
	StartedAt time.Time `json:"startedAt"`
	Watched   int       `json:"watched"`
	Skipped   int       `json:"skipped"`
}

func NewWatcher(policy *Policy) *Watcher {
	if policy == nil {
		policy = NewPolicy(nil)
	}
	return &Watcher{
		policy:   policy,
		sessions: make(map[string]*Session),
	}
}

// SetPolicy changes the policy for sessions started afterwards. Running
// sessions keep the policy they started with.
func (w *Watcher) SetPolicy(policy *Policy) {
	if policy == nil {
		return
	}
	w.mu.Lock()
	w.policy = policy
	w.mu.Unlock()
}

// Start subscribes to roots and begins delivering events to sink in a new
// goroutine. Roots that cannot be subscribed are logged and recorded on the
// session. The session ends when ctx is cancelled or Stop is called, so ctx
// must outlive the caller's request. The only error is failure to create the
// native watcher.
func (w *Watcher) Start(ctx context.Context, roots []string, sink Sink) (*Session, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w.mu.Lock()
	policy := w.policy
	w.mu.Unlock()

	s := newSession(policy, sink)
	s.fsw = fsw
	s.roots = append([]string(nil), roots...)

	for _, raw := range roots {
		s.subscribeRoot(raw)
	}

	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	w.mu.Lock()
	w.sessions[s.id] = s
	w.mu.Unlock()

	s.onExit = func() {
		w.mu.Lock()
		delete(w.sessions, s.id)
		w.mu.Unlock()
		metrics.WatcherSessionsActive.Dec()
	}

	metrics.WatcherSessionsActive.Inc()
	go s.run(sctx)

	logging.Info("Watch session %s started: %d directories across %d roots", s.id, s.Watched(), len(roots))
	return s, nil
}

// Replace stops every running session and starts a new one.
func (w *Watcher) Replace(ctx context.Context, roots []string, sink Sink) (*Session, error) {
	w.StopAll()
	return w.Start(ctx, roots, sink)
}

// Stop stops the session with the given id and reports whether it existed.
func (w *Watcher) Stop(id string) bool {
	w.mu.Lock()
	s, ok := w.sessions[id]
	w.mu.Unlock()
	if !ok {
		return false
	}
	s.Stop()
	return true
}

// StopAll stops every running session and waits for them to exit.
func (w *Watcher) StopAll() {
	w.mu.Lock()
	running := make([]*Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		running = append(running, s)
	}
	w.mu.Unlock()

	for _, s := range running {
		s.Stop()
	}
}

// Sessions lists the running sessions.
func (w *Watcher) Sessions() []SessionInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]SessionInfo, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s.Info())
	}
	return out
}

// Session is one running watch over a fixed set of roots.
type Session struct {
	id        string
	roots     []string
	policy    *Policy
	sink      Sink
	fsw       *fsnotify.Watcher
	startedAt time.Time

	cancel   context.CancelFunc
	onExit   func()
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	watched int
	skipped []Skip
}

func newSession(policy *Policy, sink Sink) *Session {
	if sink == nil {
		sink = SinkFunc(func(ChangeEvent) error { return ErrNoSubscribers })
	}
	return &Session{
		id:        uuid.NewString(),
		policy:    policy,
		sink:      sink,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Roots() []string {
	return append([]string(nil), s.roots...)
}

// Done is closed once the session loop has exited and the native watcher
// is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Watched returns the number of subscribed directories.
func (s *Session) Watched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watched
}

// Skipped returns the roots and directories that could not be subscribed.
func (s *Session) Skipped() []Skip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Skip(nil), s.skipped...)
}

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:        s.id,
		Roots:     append([]string(nil), s.roots...),
		StartedAt: s.startedAt,
		Watched:   s.watched,
		Skipped:   len(s.skipped),
	}
}

// Stop cancels the session and waits for its loop to exit. It must not be
// called from the session's own sink.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
}

func (s *Session) skip(path, reason string, err error) {
	s.mu.Lock()
	s.skipped = append(s.skipped, Skip{Path: path, Reason: reason, Err: err})
	s.mu.Unlock()
}

func (s *Session) subscribeRoot(raw string) {
	root := normalizeRoot(raw)

	info, err := os.Stat(root)
	if err != nil {
		reason := SkipWalkError
		if errors.Is(err, fs.ErrNotExist) {
			reason = SkipMissingRoot
		}
		logging.Warn("Failed to watch %s: %v", raw, err)
		metrics.WatcherErrors.Inc()
		s.skip(root, reason, err)
		return
	}

	if s.policy.IsExcludedPath(root) {
		logging.Debug("Not watching excluded root %s", root)
		s.skip(root, SkipExcludedRoot, nil)
		return
	}

	if !info.IsDir() {
		s.add(root)
		return
	}
	s.addTree(root)
}

// addTree subscribes dir and every non-excluded directory below it,
// following dir itself if it is a symlink. fsnotify watches are per
// directory.
func (s *Session) addTree(dir string) {
	err := walkRoot(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Failed to walk %s for watching: %v", path, err)
			metrics.WatcherErrors.Inc()
			s.skip(path, SkipWalkError, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && s.policy.IsExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		s.add(path)
		return nil
	})
	if err != nil {
		s.skip(dir, SkipWalkError, err)
	}
}

func (s *Session) add(path string) {
	if err := s.fsw.Add(path); err != nil {
		logging.Warn("Failed to add path to watcher %s: %v", path, err)
		metrics.WatcherErrors.Inc()
		s.skip(path, SkipWalkError, err)
		return
	}
	s.mu.Lock()
	s.watched++
	s.mu.Unlock()
	metrics.WatcherWatchedDirectories.Inc()
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		if err := s.fsw.Close(); err != nil {
			logging.Error("Failed to close file watcher: %v", err)
		}
		metrics.WatcherWatchedDirectories.Sub(float64(s.Watched()))
		if s.onExit != nil {
			s.onExit()
		}
		logging.Info("Watch session %s stopped", s.id)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.handle(event)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watch error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

// handle turns one native notification into at most one change event.
func (s *Session) handle(event fsnotify.Event) {
	path := event.Name
	metrics.WatcherNotificationsTotal.WithLabelValues(opLabel(event.Op)).Inc()

	if s.policy.IsExcludedPath(path) {
		metrics.WatcherDroppedTotal.WithLabelValues("policy").Inc()
		return
	}

	// New directories need their own subscription before files inside
	// them are reported.
	if event.Has(fsnotify.Create) && s.fsw != nil {
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			s.addTree(path)
			logging.Debug("Added new directory to watcher: %s", path)
			return
		}
	}

	if !IsMarkdownPath(path) {
		metrics.WatcherDroppedTotal.WithLabelValues("policy").Inc()
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if entry, ok := Materialize(path); ok {
			s.emit(Added{Entry: entry})
			return
		}
		metrics.WatcherDroppedTotal.WithLabelValues("vanished").Inc()
	case event.Has(fsnotify.Write):
		if entry, ok := Materialize(path); ok {
			s.emit(Changed{Entry: entry})
			return
		}
		metrics.WatcherDroppedTotal.WithLabelValues("vanished").Inc()
	case event.Has(fsnotify.Remove):
		s.emit(Removed{Path: path})
	default:
		metrics.WatcherDroppedTotal.WithLabelValues("ignored_op").Inc()
	}
}

func (s *Session) emit(ev ChangeEvent) {
	metrics.WatcherEventsTotal.WithLabelValues(ev.Signal()).Inc()
	if err := s.sink.Emit(ev); err != nil {
		metrics.WatcherSinkFailures.Inc()
		logging.Debug("Failed to deliver %s for %s: %v", ev.Signal(), ev.EventPath(), err)
	}
}

func opLabel(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Chmod):
		return "chmod"
	default:
		return "unknown"
	}
}
