package job

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	first := NewHandle("j1", "docs.example.com", "https://docs.example.com", StrategyBatch)
	second := NewHandle("j1", "docs.example.com", "https://docs.example.com", StrategyBatch)

	require.True(t, r.Register("j1", first))
	assert.False(t, r.Register("j1", second))

	got, ok := r.Lookup("j1")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Register("j1", NewHandle("j1", "s", "u", StrategySingle)))

	r.Unregister("j1")
	r.Unregister("j1") // second call must be a silent no-op

	_, ok := r.Lookup("j1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Active())
}

func TestConcurrentRegisterSingleWinner(t *testing.T) {
	r := NewRegistry()
	const attempts = 50
	wins := make(chan bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- r.Register("same", NewHandle("same", "s", "u", StrategyBatch))
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	assert.Equal(t, 1, won)
}

func TestIndependentJobsDoNotInterfere(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job-%d", i)
			require.True(t, r.Register(id, NewHandle(id, "s", "u", StrategySingle)))
			r.Unregister(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, r.Active())
}

func TestHandleTerminalStateIsSticky(t *testing.T) {
	h := NewHandle("j1", "s", "u", StrategySingle)
	assert.Equal(t, StatePending, h.State())

	h.SetState(StateFetching)
	h.SetState(StateCancelled)
	h.SetState(StateCompleted) // ignored, already terminal
	assert.Equal(t, StateCancelled, h.State())
}

func TestCancelToken(t *testing.T) {
	tok := NewCancelToken()
	assert.False(t, tok.Cancelled())
	require.NoError(t, tok.Context().Err())

	tok.Cancel()
	tok.Cancel() // repeat is safe
	assert.True(t, tok.Cancelled())
	assert.Error(t, tok.Context().Err())
}
