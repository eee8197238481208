package server

import (
	"sync"

	"github.com/mgomes/mdindex/internal/indexer"
	"github.com/mgomes/mdindex/internal/metrics"
)

// Hub is an indexer.Sink that fans events out to stream subscribers. A slow
// subscriber misses events rather than blocking the watch session.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan indexer.ChangeEvent]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[chan indexer.ChangeEvent]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned function unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan indexer.ChangeEvent, func()) {
	ch := make(chan indexer.ChangeEvent, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	metrics.EventSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
			metrics.EventSubscribers.Dec()
		})
	}
}

// Emit implements indexer.Sink.
func (h *Hub) Emit(ev indexer.ChangeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs) == 0 {
		return indexer.ErrNoSubscribers
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
