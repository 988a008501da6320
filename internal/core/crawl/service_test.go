package crawl

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"ingester/internal/config"
	"ingester/internal/core/job"
	"ingester/internal/core/progress"
	"ingester/internal/logger"
	"ingester/internal/platform/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func newTestService(t *testing.T, enq *fakeEnqueuer) (*CrawlService, *memSink) {
	t.Helper()
	sink := &memSink{}
	cfg := config.Config{
		StageBounds:    config.DefaultStageBounds(),
		TaskMaxRetries: 1,
	}
	s := &CrawlService{
		registry:  job.NewRegistry(),
		tasks:     enq,
		repo:      &fakeRepo{},
		fetcher:   &stubFetcher{docs: threeDocs()},
		processor: &stubProcessor{chunks: 7},
		extractor: &stubExtractor{count: 2},
		log:       logger.New("test"),
		cfg:       cfg,
	}
	s.newSink = func(string) progress.Sink { return sink }
	return s, sink
}

func TestStartRejectsBadInput(t *testing.T) {
	s, _ := newTestService(t, &fakeEnqueuer{})

	_, _, err := s.Start(context.Background(), StartRequest{Url: "not a url"})
	assert.Error(t, err)

	_, _, err = s.Start(context.Background(), StartRequest{Url: "https://example.com", Strategy: "teleport"})
	assert.Error(t, err)
}

func TestStartEnqueuesOnce(t *testing.T) {
	enq := &fakeEnqueuer{}
	s, _ := newTestService(t, enq)

	id1, running, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "batch"})
	require.NoError(t, err)
	assert.False(t, running)
	require.Len(t, enq.tasks, 1)

	var p CrawlTaskPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &p))
	assert.Equal(t, id1, p.JobID)
	assert.Equal(t, "https://docs.example.com", p.Request.Url)

	// The same logical request while in flight returns the original id.
	id2, running, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "batch"})
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, id1, id2)
	assert.Len(t, enq.tasks, 1, "duplicate submission must not enqueue")

	// A different strategy is a different job.
	id3, running, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "recursive"})
	require.NoError(t, err)
	assert.False(t, running)
	assert.NotEqual(t, id1, id3)
}

func TestStartRollsBackOnEnqueueFailure(t *testing.T) {
	enq := &fakeEnqueuer{err: assert.AnError}
	s, _ := newTestService(t, enq)

	_, _, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "single"})
	require.Error(t, err)

	// The slot is released, so a retry can claim it.
	enq.err = nil
	_, running, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "single"})
	require.NoError(t, err)
	assert.False(t, running)
}

func TestHandleCrawlTaskRunsAndUnregisters(t *testing.T) {
	enq := &fakeEnqueuer{}
	s, sink := newTestService(t, enq)

	id, _, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "batch"})
	require.NoError(t, err)
	require.Len(t, enq.tasks, 1)

	require.NoError(t, s.HandleCrawlTask(context.Background(), enq.tasks[0]))

	require.NotNil(t, sink.completed)
	assert.Equal(t, 7, sink.completed["chunks"])
	assert.Equal(t, 2, sink.completed["code_examples"])

	_, found := s.registry.Lookup(id)
	assert.False(t, found, "job must be unregistered after the task finishes")

	// Finished means resubmittable.
	_, running, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "batch"})
	require.NoError(t, err)
	assert.False(t, running)
}

func TestHandleCrawlTaskRebuildsMissingHandle(t *testing.T) {
	s, sink := newTestService(t, &fakeEnqueuer{})

	payload, _ := json.Marshal(CrawlTaskPayload{
		JobID:   "orphaned-job",
		Request: StartRequest{Url: "https://docs.example.com", Strategy: "single"},
	})
	require.NoError(t, s.HandleCrawlTask(context.Background(), asynq.NewTask(tasks.TaskTypeCrawl, payload)))

	require.NotNil(t, sink.completed)
	_, found := s.registry.Lookup("orphaned-job")
	assert.False(t, found)
}

func TestHandleCrawlTaskSwallowsBadPayload(t *testing.T) {
	s, sink := newTestService(t, &fakeEnqueuer{})

	err := s.HandleCrawlTask(context.Background(), asynq.NewTask(tasks.TaskTypeCrawl, []byte("{broken")))
	assert.NoError(t, err, "malformed payloads must not trigger queue retries")
	assert.Nil(t, sink.completed)
}

func TestCancelFlipsTokenOnce(t *testing.T) {
	s, _ := newTestService(t, &fakeEnqueuer{})

	assert.False(t, s.Cancel("missing"))
	assert.False(t, s.IsCancelled("missing"))

	id, _, err := s.Start(context.Background(), StartRequest{Url: "https://docs.example.com", Strategy: "recursive"})
	require.NoError(t, err)
	assert.False(t, s.IsCancelled(id))

	assert.True(t, s.Cancel(id))
	assert.True(t, s.IsCancelled(id))
	assert.True(t, s.Cancel(id), "cancel is idempotent on a known job")
}

func TestDeriveIDsAreStable(t *testing.T) {
	a := deriveJobID("https://docs.example.com", job.StrategyBatch)
	b := deriveJobID("https://docs.example.com", job.StrategyBatch)
	c := deriveJobID("https://docs.example.com", job.StrategySingle)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	assert.Equal(t, "docs.example.com", deriveSourceID("https://docs.example.com/guide?x=1"))
	assert.NotEmpty(t, deriveSourceID("::not-a-url::"))
}
