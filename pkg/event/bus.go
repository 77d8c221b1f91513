// Package event provides the in-process publish/subscribe bus the sync
// engine uses to announce changes to the rest of the app.
package event

import (
	"sync"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/debug"
)

// Event names published by the engine and the config watcher.
const (
	PipelineStatusChanged = "pipeline_status_changed"
	TreeChanged           = "tree_changed"
	ConfigReloaded        = "config_reloaded"
)

// StatusChange is the payload of PipelineStatusChanged.
type StatusChange struct {
	ProjectID   string
	ProjectName string
	OldStatus   string
	NewStatus   string
}

// Handler receives an event payload. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Handler func(payload any)

// Subscription identifies one registered handler so it can be removed later.
// Go functions are not comparable, so Subscribe hands back a token instead of
// matching on the handler itself.
type Subscription struct {
	event string
	id    uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Bus is a minimal synchronous event bus.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]entry
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]entry)}
}

// Subscribe registers fn for the named event.
func (b *Bus) Subscribe(event string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[event] = append(b.subs[event], entry{id: b.nextID, fn: fn})
	return Subscription{event: event, id: b.nextID}
}

// Unsubscribe removes a previously registered handler. Unknown subscriptions
// are ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.event]
	for i, e := range list {
		if e.id == s.id {
			b.subs[s.event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish invokes every handler subscribed to the named event, in
// subscription order. A panicking handler is isolated so the remaining
// handlers still run.
func (b *Bus) Publish(event string, payload any) {
	b.mu.Lock()
	list := make([]entry, len(b.subs[event]))
	copy(list, b.subs[event])
	b.mu.Unlock()

	for _, e := range list {
		func() {
			defer func() {
				if r := recover(); r != nil {
					debug.Log("event: handler for %q panicked: %v", event, r)
				}
			}()
			e.fn(payload)
		}()
	}
}
