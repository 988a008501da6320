package job

import (
	"sync"
	"time"
)

// Strategy selects how content is fetched for a job.
type Strategy string

const (
	StrategySingle    Strategy = "single"
	StrategyBatch     Strategy = "batch"
	StrategyRecursive Strategy = "recursive"
	StrategySitemap   Strategy = "sitemap"
	StrategyMarkdown  Strategy = "markdown"
)

// Known reports whether s is a strategy the pipeline understands. The empty
// strategy is valid and means auto-detect.
func (s Strategy) Known() bool {
	switch s {
	case "", StrategySingle, StrategyBatch, StrategyRecursive, StrategySitemap, StrategyMarkdown:
		return true
	}
	return false
}

// State is the lifecycle state of one job.
type State string

const (
	StatePending      State = "pending"
	StateInitializing State = "initializing"
	StateFetching     State = "fetching"
	StateProcessing   State = "processing"
	StateExtracting   State = "extracting"
	StateFinalizing   State = "finalizing"
	StateCompleted    State = "completed"
	StateCancelled    State = "cancelled"
	StateFailed       State = "failed"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Handle is the registry entry for one running job. It is created when a
// start request is accepted and removed exactly once on any terminal state.
type Handle struct {
	ID       string
	SourceID string
	URL      string
	Strategy Strategy
	Token    *CancelToken

	mu        sync.Mutex
	state     State
	startedAt time.Time
}

func NewHandle(id, sourceID, url string, strategy Strategy) *Handle {
	return &Handle{
		ID:        id,
		SourceID:  sourceID,
		URL:       url,
		Strategy:  strategy,
		Token:     NewCancelToken(),
		state:     StatePending,
		startedAt: time.Now(),
	}
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetState advances the lifecycle. A terminal state is sticky: once reached,
// later transitions are ignored so racing paths cannot resurrect a job.
func (h *Handle) SetState(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return
	}
	h.state = s
}

func (h *Handle) StartedAt() time.Time { return h.startedAt }
