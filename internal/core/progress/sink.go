package progress

import (
	"context"
	"time"
)

// Payload carries free-form extra fields alongside a progress event.
type Payload map[string]interface{}

// Sink is the observable surface a client polls to learn job status. The
// orchestrator and the callback adapter are its only writers.
type Sink interface {
	Start(ctx context.Context, initial Payload) error
	Update(ctx context.Context, stage string, percent float64, message string, extra Payload) error
	Complete(ctx context.Context, result Payload) error
	Error(ctx context.Context, message string) error

	// LastUpdate is when the sink last recorded any event; the heartbeat
	// loop uses it to decide whether the job looks stalled to a poller.
	LastUpdate() time.Time
}

// Callback is handed to fetchers and processors so stage-local progress
// events flow into the overall percentage without those layers knowing the
// mapping scheme.
type Callback func(ctx context.Context, stage string, stagePercent float64, message string, extra Payload) error

// NewCallback binds a sink and a mapper into one callable. A nil sink yields
// a no-op callback: direct low-level operations run with no observer and
// must never fail because of that.
func NewCallback(sink Sink, mapper *Mapper) Callback {
	if sink == nil || mapper == nil {
		return func(context.Context, string, float64, string, Payload) error { return nil }
	}
	return func(ctx context.Context, stage string, stagePercent float64, message string, extra Payload) error {
		overall := mapper.Map(stage, stagePercent)
		return sink.Update(ctx, stage, overall, message, extra)
	}
}
