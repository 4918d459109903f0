package manager

import (
	"slices"
	"sync"
)

// Event represents a lifecycle event of the server container.
// Minimal and stable: name + container name and optional fields via key/values.
type Event struct {
	Name     string
	Instance string
	Fields   map[string]any
}

// Event names.
const (
	EventPreclean      = "preclean"
	EventConfigWritten = "config_written"
	EventLaunchAttempt = "launch_attempt"
	EventFallback      = "fallback"
	EventLaunched      = "launched"
	EventLaunchFailed  = "launch_failed"
	EventStopped       = "stopped"
	EventStopAbsent    = "stop_absent"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher records events in publish order. Safe for concurrent use.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// Events returns a copy of the recorded events.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// Names returns the recorded event names in order.
func (p *MemoryPublisher) Names() []string {
	var names []string
	for _, e := range p.Events() {
		names = append(names, e.Name)
	}
	return names
}
