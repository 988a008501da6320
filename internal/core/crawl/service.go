package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"ingester/internal/config"
	"ingester/internal/core/fetch"
	"ingester/internal/core/job"
	"ingester/internal/core/progress"
	"ingester/internal/core/store"
	"ingester/internal/logger"
	rds "ingester/internal/platform/redis"
	tasks "ingester/internal/platform/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// taskEnqueuer is what the facade needs from the task queue client.
type taskEnqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

// CrawlService is the externally-facing entry point: it starts jobs through
// the registry and the task queue, exposes cancellation, and delegates
// lightweight fetch operations that bypass full orchestration.
type CrawlService struct {
	registry  *job.Registry
	tasks     taskEnqueuer
	redis     *rds.Service
	repo      store.Repository
	fetcher   Fetcher
	processor DocumentProcessor
	extractor CodeExtractor
	log       *logger.Logger
	cfg       config.Config

	// newSink builds the progress sink for a job; tests substitute an
	// in-memory implementation.
	newSink func(jobID string) progress.Sink
}

func NewCrawlService(registry *job.Registry, taskClient *tasks.Client, redis *rds.Service,
	repo store.Repository, fetcher Fetcher, processor DocumentProcessor, extractor CodeExtractor,
	cfg config.Config) *CrawlService {
	s := &CrawlService{
		registry:  registry,
		tasks:     taskClient,
		redis:     redis,
		repo:      repo,
		fetcher:   fetcher,
		processor: processor,
		extractor: extractor,
		log:       logger.New("CrawlService"),
		cfg:       cfg,
	}
	s.newSink = func(jobID string) progress.Sink { return progress.NewRedisSink(redis, jobID) }
	return s
}

// Start validates the request, reserves the job id, and schedules the
// orchestrator as an independent task. Submitting the same logical request
// while it is still running returns the existing job id with alreadyRunning
// set instead of erroring.
func (s *CrawlService) Start(ctx context.Context, req StartRequest) (string, bool, error) {
	target := strings.TrimSpace(req.Url)
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false, fmt.Errorf("invalid url: %q", req.Url)
	}
	strategy := job.Strategy(req.Strategy)
	if !strategy.Known() {
		return "", false, fmt.Errorf("unknown strategy: %q", req.Strategy)
	}

	jobID := deriveJobID(target, strategy)
	h := job.NewHandle(jobID, deriveSourceID(target), target, strategy)
	if !s.registry.Register(jobID, h) {
		s.log.LogInfof("job %s already running for %s", jobID, target)
		return jobID, true, nil
	}

	sink := s.newSink(jobID)
	_ = sink.Start(ctx, progress.Payload{
		"url":       target,
		"strategy":  string(strategy),
		"source_id": h.SourceID,
	})

	payload, _ := json.Marshal(CrawlTaskPayload{JobID: jobID, Request: req})
	task := asynq.NewTask(tasks.TaskTypeCrawl, payload)
	if err := s.tasks.Enqueue(task, "default", s.cfg.TaskMaxRetries); err != nil {
		s.registry.Unregister(jobID)
		return "", false, fmt.Errorf("enqueue crawl job: %w", err)
	}
	s.log.LogInfof("enqueued crawl job %s for %s (strategy=%s)", jobID, target, strategy)
	return jobID, false, nil
}

// HandleCrawlTask is the asynq worker entry. It always returns nil: the
// orchestrator converts every failure into sink state, and a queue retry of
// a failed job would race the registry.
func (s *CrawlService) HandleCrawlTask(ctx context.Context, task *asynq.Task) error {
	var p CrawlTaskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		s.log.LogErrorf("decode crawl payload: %v", err)
		return nil
	}

	h, ok := s.registry.Lookup(p.JobID)
	if !ok {
		// The process restarted between enqueue and execution; rebuild the
		// handle so cancellation and duplicate starts keep working.
		h = job.NewHandle(p.JobID, deriveSourceID(p.Request.Url), p.Request.Url, job.Strategy(p.Request.Strategy))
		if !s.registry.Register(p.JobID, h) {
			s.log.LogWarnf("job %s already running, dropping duplicate task", p.JobID)
			return nil
		}
	}
	defer s.registry.Unregister(p.JobID)

	// Worker shutdown cancels the task context; propagate it to the token
	// so stages unwind cooperatively.
	stop := context.AfterFunc(ctx, h.Token.Cancel)
	defer stop()

	s.log.LogInfof("processing crawl job %s for %s", p.JobID, p.Request.Url)
	newOrchestrator(orchestration{
		handle:    h,
		request:   p.Request,
		repo:      s.repo,
		fetcher:   s.fetcher,
		processor: s.processor,
		extractor: s.extractor,
		sink:      s.newSink(p.JobID),
		mapper:    progress.NewMapper(s.cfg.StageBounds),
		heartbeat: s.cfg.HeartbeatInterval,
		log:       s.log,
	}).Run()
	return nil
}

// Cancel sets the job's cooperative cancellation flag. It does not wait for
// the running task to observe it. Returns false for an unknown job id.
func (s *CrawlService) Cancel(jobID string) bool {
	h, ok := s.registry.Lookup(jobID)
	if !ok {
		return false
	}
	h.Token.Cancel()
	s.log.LogInfof("cancellation requested for job %s", jobID)
	return true
}

func (s *CrawlService) IsCancelled(jobID string) bool {
	h, ok := s.registry.Lookup(jobID)
	return ok && h.Token.Cancelled()
}

// JobStatus returns the progress state pollers read.
func (s *CrawlService) JobStatus(ctx context.Context, jobID string) (*progress.State, error) {
	return progress.LoadState(ctx, s.redis, jobID)
}

// SourceStatus returns the stored source record.
func (s *CrawlService) SourceStatus(ctx context.Context, sourceID string) (*store.Source, error) {
	return s.repo.GetSource(ctx, sourceID)
}

// Direct delegation operations: cancellation-aware, no orchestration, no
// persistence, no observer.

func (s *CrawlService) FetchSingle(ctx context.Context, pageURL string) (*fetch.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, fetch.Request{URL: pageURL, Strategy: job.StrategySingle}, nil)
}

func (s *CrawlService) FetchMarkdownFile(ctx context.Context, fileURL string) (*fetch.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, fetch.Request{URL: fileURL, Strategy: job.StrategyMarkdown}, nil)
}

func (s *CrawlService) ParseSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fetcher.ParseSitemap(ctx, sitemapURL)
}

func (s *CrawlService) FetchBatch(ctx context.Context, urls []string) (*fetch.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, fetch.Request{URLs: urls, Strategy: job.StrategyBatch}, nil)
}

func (s *CrawlService) FetchRecursive(ctx context.Context, startURL string, maxDepth, maxPages int) (*fetch.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, fetch.Request{
		URL:      startURL,
		Strategy: job.StrategyRecursive,
		MaxDepth: maxDepth,
		MaxPages: maxPages,
	}, nil)
}

// deriveJobID is deterministic over the job-defining parameters so duplicate
// submissions of the same logical request share one id.
func deriveJobID(target string, strategy job.Strategy) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(string(strategy)+"|"+target)).String()
}

// deriveSourceID is stable across retries of the same source. The hostname
// groups every page of a site under one source.
func deriveSourceID(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(target)).String()
	}
	return u.Hostname()
}
