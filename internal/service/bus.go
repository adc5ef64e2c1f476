// Package service contains the in-process plumbing shared by the engine and
// the HTTP surface.
package service

import "sync"

// Event kinds.
const (
	ModelInstalled  = "model.installed"
	RenderCompleted = "render.completed"
	SnapshotSaved   = "snapshot.saved"
)

// Event reports a change to the active risk surface.
type Event struct {
	Kind       string `json:"kind"`
	Generation uint64 `json:"generation"`
	Samples    int    `json:"samples,omitempty"`
	ID         string `json:"id,omitempty"`
}

// EventBus is a simple fan-out pub/sub for surface events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
