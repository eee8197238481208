package indexer

import "errors"

// Signal names carried on the event stream.
const (
	SignalFileAdded   = "file-added"
	SignalFileChanged = "file-changed"
	SignalFileRemoved = "file-removed"
)

// ErrNoSubscribers is returned by sinks that had nobody to deliver to.
var ErrNoSubscribers = errors.New("no event subscribers")

// ChangeEvent is one of Added, Changed or Removed. The set is closed:
// consumers switch on the concrete type.
type ChangeEvent interface {
	// Signal returns the stream name for the event.
	Signal() string
	// EventPath returns the affected document path.
	EventPath() string
	isChangeEvent()
}

// Added reports a new document.
type Added struct {
	Entry DocumentEntry
}

// Changed reports a modified document.
type Changed struct {
	Entry DocumentEntry
}

// Removed reports a deleted document. The file is gone, so only the path is known.
type Removed struct {
	Path string
}

func (Added) Signal() string   { return SignalFileAdded }
func (Changed) Signal() string { return SignalFileChanged }
func (Removed) Signal() string { return SignalFileRemoved }

func (e Added) EventPath() string   { return e.Entry.Path }
func (e Changed) EventPath() string { return e.Entry.Path }
func (e Removed) EventPath() string { return e.Path }

func (Added) isChangeEvent()   {}
func (Changed) isChangeEvent() {}
func (Removed) isChangeEvent() {}

// Payload returns the value sent on the stream for ev: the entry for
// additions and changes, the bare path for removals.
func Payload(ev ChangeEvent) any {
	switch e := ev.(type) {
	case Added:
		return e.Entry
	case Changed:
		return e.Entry
	case Removed:
		return e.Path
	}
	return nil
}

// Sink receives change events from a watch session. Emit is called from the
// session goroutine only; a returned error is logged and otherwise ignored.
type Sink interface {
	Emit(ev ChangeEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev ChangeEvent) error

func (f SinkFunc) Emit(ev ChangeEvent) error {
	return f(ev)
}

// ChanSink delivers events to a channel without blocking. A full channel
// counts as a delivery failure.
type ChanSink chan ChangeEvent

var (
	errSinkFull   = errors.New("event channel full")
	errSinkClosed = errors.New("event channel closed")
)

func (c ChanSink) Emit(ev ChangeEvent) (err error) {
	defer func() {
		if recover() != nil {
			err = errSinkClosed
		}
	}()
	select {
	case c <- ev:
		return nil
	default:
		return errSinkFull
	}
}
