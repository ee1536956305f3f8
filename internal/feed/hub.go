package feed

import "sync"

// Hub broadcasts refresh-requested events to any number of listeners. It
// replaces the upstream client's shared boolean refresh flag with an
// explicit event, so independent screens can react without polling.
type Hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: map[chan struct{}]struct{}{}}
}

// Subscribe registers a listener. The returned channel receives one signal
// per trigger; signals coalesce while the listener is busy. The cancel
// function removes the subscription.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// TriggerRefresh notifies every listener. Sends never block: a listener
// that has not drained its pending signal keeps a single coalesced one.
func (h *Hub) TriggerRefresh() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
