package job

import (
	"context"
	"sync/atomic"
)

// CancelToken is an explicit cooperative cancellation token passed down the
// call chain. Setting it does not interrupt in-flight work; stages observe it
// at their boundaries and at checkpoints inside long-running loops. The
// derived context lets collaborator I/O unwind early.
type CancelToken struct {
	cancelled atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewCancelToken() *CancelToken {
	ctx, cancel := context.WithCancel(context.Background())
	return &CancelToken{ctx: ctx, cancel: cancel}
}

// Cancel marks the token. Safe to call multiple times from any goroutine.
func (t *CancelToken) Cancel() {
	if t.cancelled.CompareAndSwap(false, true) {
		t.cancel()
	}
}

func (t *CancelToken) Cancelled() bool { return t.cancelled.Load() }

// Context is cancelled together with the token.
func (t *CancelToken) Context() context.Context { return t.ctx }
