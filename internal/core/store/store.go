package store

import (
	"context"
	"time"
)

// SourceStatus tracks a source through its ingestion lifecycle. A source is
// only marked completed by the finalize stage; error and cancellation paths
// must never set it.
type SourceStatus string

const (
	SourcePending    SourceStatus = "pending"
	SourceProcessing SourceStatus = "processing"
	SourceCompleted  SourceStatus = "completed"
	SourceFailed     SourceStatus = "failed"
)

// Source is one logical origin of documents, stable across retries of the
// same URL.
type Source struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Status    SourceStatus `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Document is raw fetched content attributed to a source.
type Document struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// Chunk is one stored slice of a document.
type Chunk struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Index    int    `json:"index"`
	Content  string `json:"content"`
}

// CodeExample is a fenced code block lifted out of a document.
type CodeExample struct {
	SourceID string `json:"source_id"`
	URL      string `json:"url"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

// Repository persists ingestion output. Implementations must be safe for
// concurrent use by multiple jobs.
type Repository interface {
	UpsertSource(ctx context.Context, src Source) error
	SaveDocuments(ctx context.Context, sourceID string, docs []Document) error
	SaveChunks(ctx context.Context, sourceID string, chunks []Chunk) error
	SaveCodeExamples(ctx context.Context, sourceID string, examples []CodeExample) error
	UpdateSourceStatus(ctx context.Context, sourceID string, status SourceStatus) error
	GetSource(ctx context.Context, sourceID string) (*Source, error)
}
