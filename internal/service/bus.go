package service

import "sync"

// Resources published on the bus.
const (
	ResourceDraft   = "draft"
	ResourceJobs    = "jobs"
	ResourceImports = "imports"
)

// Event represents a change to a draft, job or import.
type Event struct {
	Resource string // ResourceDraft, ResourceJobs, ...
	Action   string // action type for drafts; "created", "updated", "deleted" otherwise
	ID       string // session id, job uid or file name
}

// Subscription receives the events of the resources it was created for.
type Subscription struct {
	C         chan Event
	resources map[string]bool
}

func (s *Subscription) wants(e Event) bool {
	return len(s.resources) == 0 || s.resources[e.Resource]
}

// EventBus is a fan-out pub/sub for change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Publish sends an event to all interested subscribers without blocking.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !sub.wants(e) {
			continue
		}
		select {
		case sub.C <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered subscription. With no resources it receives
// everything.
func (b *EventBus) Subscribe(resources ...string) *Subscription {
	sub := &Subscription{C: make(chan Event, 16), resources: make(map[string]bool)}
	for _, r := range resources {
		sub.resources[r] = true
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.C)
}
