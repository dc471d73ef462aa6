package changefeed

import (
	"sync"
	"sync/atomic"
)

// Hub is an in-process broadcaster. A subscriber whose buffer is full is
// evicted and its channel closed, so it learns it missed events instead of
// silently falling behind.
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	evicted atomic.Int64
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[chan Event]struct{}{}}
}

// Subscribe registers a buffered channel.
func (h *Hub) Subscribe(buffer int) chan Event {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. Safe to call more than once.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	_, exists := h.subs[ch]
	if exists {
		delete(h.subs, ch)
	}
	h.mu.Unlock()
	if exists {
		close(ch)
	}
}

// Publish delivers evt to every subscriber and evicts those with no buffer room.
func (h *Hub) Publish(evt Event) {
	var lagging []chan Event
	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			lagging = append(lagging, ch)
		}
	}
	h.mu.RUnlock()

	for _, ch := range lagging {
		h.evict(ch)
	}
}

func (h *Hub) evict(ch chan Event) {
	h.mu.Lock()
	_, exists := h.subs[ch]
	delete(h.subs, ch)
	h.mu.Unlock()
	if exists {
		h.evicted.Add(1)
		close(ch)
	}
}

// Evicted reports how many subscribers were dropped for lagging.
func (h *Hub) Evicted() int64 { return h.evicted.Load() }

// Len reports the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
