package events

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer is the number of events a subscriber may lag behind
// before it is disconnected.
const subscriberBuffer = 32

// Hub fans events out to in-process subscribers of a household.
// Publish never blocks: a subscriber whose buffer is full is unregistered
// and its channel closed, so it never silently misses an event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

type subscription struct {
	ch chan Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscription]struct{})}
}

// Subscribe registers for events of one household. The returned channel is
// closed when cancel is called, when the subscriber falls too far behind, or
// when the hub is closed.
func (h *Hub) Subscribe(householdID string) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if h.subs[householdID] == nil {
		h.subs[householdID] = make(map[*subscription]struct{})
	}
	h.subs[householdID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[householdID][sub]; !ok {
				return
			}
			delete(h.subs[householdID], sub)
			if len(h.subs[householdID]) == 0 {
				delete(h.subs, householdID)
			}
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers e to every subscriber of e.HouseholdID.
func (h *Hub) Publish(ctx context.Context, e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[e.HouseholdID]
	for sub := range subs {
		select {
		case sub.ch <- e:
		default:
			slog.WarnContext(ctx, "Disconnecting slow subscriber",
				"kind", e.Kind,
				"household_id", e.HouseholdID)
			delete(subs, sub)
			close(sub.ch)
		}
	}
	if len(subs) == 0 {
		delete(h.subs, e.HouseholdID)
	}
	return nil
}

// Subscribers returns the number of live subscriptions for a household.
func (h *Hub) Subscribers(householdID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[householdID])
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.subs {
		for sub := range subs {
			close(sub.ch)
		}
	}
	h.subs = make(map[string]map[*subscription]struct{})
}
