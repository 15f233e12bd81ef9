package handler

import (
	"sync"

	"github.com/msomdec/spacebook/internal/domain"
)

// Hub is the process Navigator. Each navigation is fanned out to every
// connected session stream, which turns it into a client-side redirect.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan domain.Route
	nextSub int
}

var _ domain.Navigator = (*Hub)(nil)

// NewHub creates a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan domain.Route)}
}

// Navigate delivers route to every subscriber. A subscriber that has not
// drained its previous route misses this one.
func (h *Hub) Navigate(route domain.Route) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- route:
		default:
		}
	}
}

// Subscribe registers a listener. The returned func unregisters it.
func (h *Hub) Subscribe() (<-chan domain.Route, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	ch := make(chan domain.Route, 4)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
}
