package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ingester/internal/core/fetch"
	"ingester/internal/core/job"
	"ingester/internal/core/progress"
	"ingester/internal/core/store"
	"ingester/internal/logger"
)

// orchestration is the immutable config bundle captured at job start. It is
// owned by the orchestrator running that job and never mutated afterwards.
type orchestration struct {
	handle    *job.Handle
	request   StartRequest
	repo      store.Repository
	fetcher   Fetcher
	processor DocumentProcessor
	extractor CodeExtractor
	sink      progress.Sink
	mapper    *progress.Mapper
	heartbeat time.Duration
	log       *logger.Logger
}

// orchestrator drives one job through the fixed stage sequence
// Initialize → Fetch → Process → ExtractCode → Finalize. Every failure is
// converted into a sink notification and a terminal state; nothing
// propagates to the caller, which only unregisters the job after Run
// returns.
type orchestrator struct {
	o  orchestration
	cb progress.Callback
}

func newOrchestrator(o orchestration) *orchestrator {
	return &orchestrator{o: o, cb: progress.NewCallback(o.sink, o.mapper)}
}

func (r *orchestrator) Run() {
	h := r.o.handle
	ctx := h.Token.Context()

	stopHeartbeat := r.startHeartbeat()
	defer stopHeartbeat()

	// Initialize
	if r.cancelled(StageInitialize) {
		return
	}
	h.SetState(job.StateInitializing)
	src := store.Source{ID: h.SourceID, URL: h.URL, Status: store.SourceProcessing}
	if err := r.o.repo.UpsertSource(ctx, src); err != nil {
		r.failOrCancel(StageInitialize, err)
		return
	}
	_ = r.cb(ctx, StageInitialize, 100, "source "+h.SourceID+" registered", progress.Payload{
		"source_id": h.SourceID,
	})

	// Fetch
	if r.cancelled(StageFetch) {
		return
	}
	h.SetState(job.StateFetching)
	res, err := r.o.fetcher.Fetch(ctx, fetch.Request{
		URL:               h.URL,
		URLs:              r.o.request.Urls,
		Strategy:          h.Strategy,
		MaxDepth:          r.o.request.MaxDepth,
		MaxPages:          r.o.request.MaxPages,
		IncludeSubdomains: r.o.request.IncludeSubdomains,
	}, r.cb)
	if err != nil {
		r.failOrCancel(StageFetch, err)
		return
	}
	total := len(res.Documents)
	_ = r.cb(ctx, StageFetch, 100, fmt.Sprintf("fetched %d documents", total), progress.Payload{
		"detected_type": res.DetectedType,
		"documents":     total,
	})

	// Process
	if r.cancelled(StageProcess) {
		return
	}
	h.SetState(job.StateProcessing)
	chunks, processed, err := r.o.processor.ProcessDocuments(ctx, h.SourceID, res.Documents, r.cb)
	if err != nil {
		r.failOrCancel(StageProcess, err)
		return
	}
	_ = r.cb(ctx, StageProcess, 100, fmt.Sprintf("stored %d chunks", chunks), progress.Payload{
		"source_id": h.SourceID,
		"chunks":    chunks,
	})

	// ExtractCode
	if r.cancelled(StageExtract) {
		return
	}
	h.SetState(job.StateExtracting)
	codeCount, err := r.o.extractor.ExtractCodeExamples(ctx, h.SourceID, res.Documents, r.cb)
	if err != nil {
		r.failOrCancel(StageExtract, err)
		return
	}
	_ = r.cb(ctx, StageExtract, 100, fmt.Sprintf("extracted %d code examples", codeCount), nil)

	// Finalize
	if r.cancelled(StageFinalize) {
		return
	}
	h.SetState(job.StateFinalizing)
	_ = r.cb(ctx, StageFinalize, 50, "marking source completed", nil)
	if err := r.o.repo.UpdateSourceStatus(ctx, h.SourceID, store.SourceCompleted); err != nil {
		r.failOrCancel(StageFinalize, err)
		return
	}
	_ = r.o.sink.Complete(ctx, progress.Payload{
		"source_id":     h.SourceID,
		"chunks":        chunks,
		"code_examples": codeCount,
		"processed":     processed,
		"total":         total,
	})
	h.SetState(job.StateCompleted)
	r.o.log.LogInfof("job %s completed: %d chunks, %d code examples from %d/%d documents",
		h.ID, chunks, codeCount, processed, total)
}

// cancelled checks the cooperative token at a stage boundary and, when set,
// runs the cancellation path.
func (r *orchestrator) cancelled(stage string) bool {
	if !r.o.handle.Token.Cancelled() {
		return false
	}
	r.cancelPath(stage)
	return true
}

// failOrCancel routes an error to the cancellation path when the token was
// the cause, otherwise to the failure path.
func (r *orchestrator) failOrCancel(stage string, err error) {
	if r.o.handle.Token.Cancelled() || errors.Is(err, context.Canceled) {
		r.cancelPath(stage)
		return
	}
	r.fail(stage, err)
}

// cancelPath: the source keeps its pre-completion status; it must never be
// marked completed once cancellation is observed.
func (r *orchestrator) cancelPath(stage string) {
	h := r.o.handle
	h.SetState(job.StateCancelled)

	// The token context is already dead; terminal notifications get a
	// fresh one so the last write still reaches the sink.
	ctx, cancel := terminalContext()
	defer cancel()
	_ = r.o.sink.Update(ctx, stage, r.o.mapper.CurrentProgress(), "job cancelled", progress.Payload{
		"status": progress.StatusCancelled,
	})
	r.o.log.Warn().
		Str("job_id", h.ID).
		Str("stage", stage).
		Str("source_id", h.SourceID).
		Msg("job cancelled")
}

func (r *orchestrator) fail(stage string, err error) {
	h := r.o.handle
	h.SetState(job.StateFailed)

	ctx, cancel := terminalContext()
	defer cancel()
	if uerr := r.o.repo.UpdateSourceStatus(ctx, h.SourceID, store.SourceFailed); uerr != nil {
		r.o.log.LogWarnf("job %s: marking source %s failed: %v", h.ID, h.SourceID, uerr)
	}
	_ = r.o.sink.Error(ctx, fmt.Sprintf("%s stage failed: %v", stage, err))
	r.o.log.Error().
		Err(err).
		Str("job_id", h.ID).
		Str("stage", stage).
		Str("source_id", h.SourceID).
		Msg("job failed")
}

// startHeartbeat emits a liveness-only update whenever no real progress has
// been recorded within the configured interval, so a long-poll client never
// mistakes a slow stage for a stalled job.
func (r *orchestrator) startHeartbeat() func() {
	if r.o.heartbeat <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(r.o.heartbeat)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if time.Since(r.o.sink.LastUpdate()) < r.o.heartbeat {
					continue
				}
				_ = r.o.sink.Update(ctx, r.o.mapper.CurrentStage(), r.o.mapper.CurrentProgress(),
					"still working", progress.Payload{"heartbeat": true})
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func terminalContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
