package status

import (
	"sync"

	"localcode/pkg/types"
)

// Tracker keeps the latest phase and collected metadata for reporting.
type Tracker struct {
	mu    sync.RWMutex
	last  *types.PhaseEvent
	meta  map[string]string
	ready bool
	subs  map[chan types.PhaseEvent]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{meta: map[string]string{}, subs: map[chan types.PhaseEvent]struct{}{}}
}

// Observe records ev and fans it out to subscribers without blocking.
func (t *Tracker) Observe(ev types.PhaseEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := ev
	t.last = &e
	if ev.Kind == types.PhaseMetaStat {
		t.meta[ev.Key] = ev.Value
	}
	if ev.Kind == types.PhaseReady {
		t.ready = true
	}
	for ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Last returns the most recent event, if any.
func (t *Tracker) Last() *types.PhaseEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return nil
	}
	e := *t.last
	return &e
}

// Meta returns a copy of the collected metadata.
func (t *Tracker) Meta() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.meta))
	for k, v := range t.meta {
		out[k] = v
	}
	return out
}

// Ready reports whether a Ready event was observed.
func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Subscribe returns a buffered channel receiving future events and a cancel func.
func (t *Tracker) Subscribe(buf int) (<-chan types.PhaseEvent, func()) {
	ch := make(chan types.PhaseEvent, buf)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()
	return ch, func() {
		t.mu.Lock()
		if _, ok := t.subs[ch]; ok {
			delete(t.subs, ch)
			close(ch)
		}
		t.mu.Unlock()
	}
}
