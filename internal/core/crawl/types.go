package crawl

import (
	"context"

	"ingester/internal/core/fetch"
	"ingester/internal/core/progress"
	"ingester/internal/core/store"
)

// Stage names, also the keys of the progress band table.
const (
	StageInitialize = "initialize"
	StageFetch      = "fetch"
	StageProcess    = "process"
	StageExtract    = "extract"
	StageFinalize   = "finalize"
)

// Fetcher is the content-fetching collaborator. One implementation per
// deployment; tests swap in stubs.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request, cb progress.Callback) (*fetch.Result, error)
	ParseSitemap(ctx context.Context, url string) ([]string, error)
}

// DocumentProcessor chunks fetched documents and persists the result.
type DocumentProcessor interface {
	ProcessDocuments(ctx context.Context, sourceID string, docs []store.Document, cb progress.Callback) (chunks int, processed int, err error)
}

// CodeExtractor lifts code examples out of fetched documents. A zero count
// is a valid result.
type CodeExtractor interface {
	ExtractCodeExamples(ctx context.Context, sourceID string, docs []store.Document, cb progress.Callback) (int, error)
}

// StartRequest is the public shape of a crawl submission.
type StartRequest struct {
	Url               string   `json:"url"`
	Strategy          string   `json:"strategy,omitempty"`
	Urls              []string `json:"urls,omitempty"`
	MaxDepth          int      `json:"max_depth,omitempty"`
	MaxPages          int      `json:"max_pages,omitempty"`
	IncludeSubdomains bool     `json:"include_subdomains,omitempty"`
}

// StartResponse reports the job id; AlreadyRunning is set when an identical
// request was submitted while the first is still in flight.
type StartResponse struct {
	Success        bool   `json:"success"`
	JobID          string `json:"job_id"`
	AlreadyRunning bool   `json:"already_running"`
}

// CrawlTaskPayload is the queued task body.
type CrawlTaskPayload struct {
	JobID   string       `json:"job_id"`
	Request StartRequest `json:"request"`
}

type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
