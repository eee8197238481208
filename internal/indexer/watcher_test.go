package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

const eventTimeout = 5 * time.Second

type recordingSink struct {
	events []ChangeEvent
	err    error
}

func (r *recordingSink) Emit(ev ChangeEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestHandle_CreateExistingEmitsAdded(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "new.md", "hello", 1234)

	sink := &recordingSink{}
	s := newSession(NewPolicy(nil), sink)
	s.handle(fsnotify.Event{Name: path, Op: fsnotify.Create})

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	added, ok := sink.events[0].(Added)
	if !ok {
		t.Fatalf("expected Added, got %T", sink.events[0])
	}
	if added.Entry.Path != path || added.Entry.Size != 5 || added.Entry.Modified != 1234 {
		t.Errorf("unexpected entry %+v", added.Entry)
	}
	if added.Signal() != SignalFileAdded {
		t.Errorf("expected signal '%s', got '%s'", SignalFileAdded, added.Signal())
	}
}

func TestHandle_CreateVanishedEmitsNothing(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "new.md", "hello", 1234)
	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}

	sink := &recordingSink{}
	s := newSession(NewPolicy(nil), sink)
	s.handle(fsnotify.Event{Name: path, Op: fsnotify.Create})
	s.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})

	if len(sink.events) != 0 {
		t.Errorf("expected no events, got %v", sink.events)
	}
}

func TestHandle_WriteEmitsChanged(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "doc.mdx", "v2", 99)

	sink := &recordingSink{}
	s := newSession(NewPolicy(nil), sink)
	s.handle(fsnotify.Event{Name: path, Op: fsnotify.Write})

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	changed, ok := sink.events[0].(Changed)
	if !ok {
		t.Fatalf("expected Changed, got %T", sink.events[0])
	}
	if changed.Entry.Modified != 99 {
		t.Errorf("expected modified 99, got %d", changed.Entry.Modified)
	}
}

func TestHandle_RemoveAlwaysEmitsRemoved(t *testing.T) {
	sink := &recordingSink{}
	s := newSession(NewPolicy(nil), sink)

	// The path never existed; no materialization is attempted.
	path := filepath.FromSlash("/root/old.md")
	s.handle(fsnotify.Event{Name: path, Op: fsnotify.Remove})

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	removed, ok := sink.events[0].(Removed)
	if !ok {
		t.Fatalf("expected Removed, got %T", sink.events[0])
	}
	if removed.Path != path {
		t.Errorf("expected path '%s', got '%s'", path, removed.Path)
	}
	if Payload(removed) != path {
		t.Errorf("expected bare path payload, got %v", Payload(removed))
	}
}

func TestHandle_ExcludedPathsEmitNothing(t *testing.T) {
	sink := &recordingSink{}
	s := newSession(NewPolicy(nil), sink)

	ops := []fsnotify.Op{fsnotify.Create, fsnotify.Write, fsnotify.Remove, fsnotify.Rename, fsnotify.Chmod}
	paths := []string{
		"/root/.git/HEAD",
		"/root/.git/notes.md",
		"/root/node_modules/pkg/README.md",
		"/root/notes.txt",
	}
	for _, p := range paths {
		for _, op := range ops {
			s.handle(fsnotify.Event{Name: filepath.FromSlash(p), Op: op})
		}
	}

	if len(sink.events) != 0 {
		t.Errorf("expected no events, got %v", sink.events)
	}
}

func TestHandle_IgnoredOps(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "doc.md", "x", 1)

	sink := &recordingSink{}
	s := newSession(NewPolicy(nil), sink)
	s.handle(fsnotify.Event{Name: path, Op: fsnotify.Rename})
	s.handle(fsnotify.Event{Name: path, Op: fsnotify.Chmod})

	if len(sink.events) != 0 {
		t.Errorf("expected rename and chmod to be ignored, got %v", sink.events)
	}
}

func TestHandle_SinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink gone")}
	s := newSession(NewPolicy(nil), sink)

	s.handle(fsnotify.Event{Name: "/root/a.md", Op: fsnotify.Remove})
	s.handle(fsnotify.Event{Name: "/root/b.md", Op: fsnotify.Remove})

	if len(sink.events) != 2 {
		t.Errorf("expected delivery attempts to continue after failure, got %d", len(sink.events))
	}
}

func TestChanSink_ClosedAndFull(t *testing.T) {
	full := make(ChanSink)
	if err := full.Emit(Removed{Path: "/x.md"}); err == nil {
		t.Error("expected error for full channel")
	}

	closed := make(ChanSink, 1)
	close(closed)
	if err := closed.Emit(Removed{Path: "/x.md"}); err == nil {
		t.Error("expected error for closed channel")
	}
}

// waitFor reads from ch until match returns true or the timeout expires.
func waitFor(t *testing.T, ch <-chan ChangeEvent, match func(ChangeEvent) bool) ChangeEvent {
	t.Helper()

	timeout := time.After(eventTimeout)
	for {
		select {
		case ev := <-ch:
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

func addedFor(path string) func(ChangeEvent) bool {
	return func(ev ChangeEvent) bool {
		a, ok := ev.(Added)
		return ok && a.Entry.Path == path
	}
}

func TestWatcher_EmitsForNewFile(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(nil)

	events := make(ChanSink, 64)
	session, err := w.Start(context.Background(), []string{root}, events)
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer session.Stop()

	path := filepath.Join(root, "new.md")
	if err := os.WriteFile(path, []byte("# New\n"), 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	waitFor(t, events, addedFor(path))

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	waitFor(t, events, func(ev ChangeEvent) bool {
		r, ok := ev.(Removed)
		return ok && r.Path == path
	})
}

func TestWatcher_SubscribesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(nil)

	events := make(ChanSink, 64)
	session, err := w.Start(context.Background(), []string{root}, events)
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer session.Stop()

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("failed to mkdir: %v", err)
	}

	deadline := time.Now().Add(eventTimeout)
	for session.Watched() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for new directory subscription")
		}
		time.Sleep(10 * time.Millisecond)
	}

	path := filepath.Join(sub, "inner.md")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	waitFor(t, events, addedFor(path))
}

func TestWatcher_OverlappingSessionsBothEmit(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(nil)

	first := make(ChanSink, 64)
	second := make(ChanSink, 64)
	s1, err := w.Start(context.Background(), []string{root}, first)
	if err != nil {
		t.Fatalf("failed to start first session: %v", err)
	}
	defer s1.Stop()
	s2, err := w.Start(context.Background(), []string{root}, second)
	if err != nil {
		t.Fatalf("failed to start second session: %v", err)
	}
	defer s2.Stop()

	if len(w.Sessions()) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(w.Sessions()))
	}

	path := filepath.Join(root, "shared.md")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	waitFor(t, first, addedFor(path))
	waitFor(t, second, addedFor(path))
}

func TestWatcher_StopAndReplace(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(nil)

	old, err := w.Start(context.Background(), []string{root}, make(ChanSink, 1))
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	events := make(ChanSink, 64)
	current, err := w.Replace(context.Background(), []string{root}, events)
	if err != nil {
		t.Fatalf("failed to replace: %v", err)
	}
	defer current.Stop()

	select {
	case <-old.Done():
	default:
		t.Error("expected replaced session to be stopped")
	}

	sessions := w.Sessions()
	if len(sessions) != 1 || sessions[0].ID != current.ID() {
		t.Errorf("expected only the new session, got %+v", sessions)
	}

	if w.Stop(old.ID()) {
		t.Error("expected stopping an ended session to report false")
	}
	if !w.Stop(current.ID()) {
		t.Error("expected stopping the running session to report true")
	}
	if len(w.Sessions()) != 0 {
		t.Errorf("expected no sessions, got %d", len(w.Sessions()))
	}
}

func TestWatcher_ContextCancelEndsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(nil)

	session, err := w.Start(ctx, []string{t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	cancel()

	select {
	case <-session.Done():
	case <-time.After(eventTimeout):
		t.Fatal("session did not exit after cancel")
	}
}

func TestWatcher_MissingRootIsRecorded(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "nope")
	w := NewWatcher(nil)

	session, err := w.Start(context.Background(), []string{missing, root}, nil)
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer session.Stop()

	skipped := session.Skipped()
	if len(skipped) != 1 || skipped[0].Reason != SkipMissingRoot {
		t.Errorf("expected one missing root skip, got %v", skipped)
	}
	if session.Watched() != 1 {
		t.Errorf("expected 1 watched directory, got %d", session.Watched())
	}
}

func TestWatcher_SymlinkedRootIsSubscribed(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "synced")
	if err := os.MkdirAll(filepath.Join(target, "sub"), 0755); err != nil {
		t.Fatalf("failed to mkdir: %v", err)
	}
	link := filepath.Join(base, "Notes")
	symlinkDir(t, target, link)

	w := NewWatcher(nil)
	events := make(ChanSink, 64)
	session, err := w.Start(context.Background(), []string{link}, events)
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer session.Stop()

	if session.Watched() != 2 {
		t.Errorf("expected root and sub to be watched, got %d (skipped %v)", session.Watched(), session.Skipped())
	}

	path := filepath.Join(link, "sub", "new.md")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	waitFor(t, events, addedFor(path))
}
