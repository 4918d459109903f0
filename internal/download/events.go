package download

import "sync"

// State is a per-model download state.
type State string

const (
	StateQueued      State = "queued"
	StateDownloading State = "downloading"
	StateComplete    State = "complete"
	StateSkipped     State = "skipped"
	StateFailed      State = "failed"
)

// Progress is one update for a model. Done/Total are bytes; Total is -1 when unknown.
type Progress struct {
	Model  string
	RepoID string
	File   string
	State  State
	Done   int64
	Total  int64
	Cached bool
	Err    string
}

// ProgressPublisher receives download progress. Publish must not block.
type ProgressPublisher interface {
	Publish(Progress)
}

// PublisherFunc adapts a function to ProgressPublisher.
type PublisherFunc func(Progress)

func (f PublisherFunc) Publish(p Progress) { f(p) }

type noopPublisher struct{}

func (noopPublisher) Publish(Progress) {}

// MemoryPublisher stores progress in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Progress
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Progress) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Progress, len(p.events))
	copy(out, p.events)
	return out
}

// States returns the state sequence recorded for model, dropping repeated
// downloading updates.
func (p *MemoryPublisher) States(model string) []State {
	var out []State
	for _, e := range p.Events() {
		if e.Model != model {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == e.State {
			continue
		}
		out = append(out, e.State)
	}
	return out
}
