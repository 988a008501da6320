package process

import (
	"context"
	"fmt"
	"strings"

	"ingester/internal/config"
	"ingester/internal/core/progress"
	"ingester/internal/core/store"
	"ingester/internal/logger"
)

// Service turns raw fetched documents into persisted chunks and code
// examples. It reports per-document progress through the callback and checks
// the context between documents so cancellation takes effect mid-batch.
type Service struct {
	repo      store.Repository
	log       *logger.Logger
	chunkSize int
	minCode   int
}

func NewService(repo store.Repository, cfg config.Config) *Service {
	return &Service{
		repo:      repo,
		log:       logger.New("ProcessService"),
		chunkSize: cfg.ChunkSize,
		minCode:   cfg.MinCodeBlockLength,
	}
}

// ProcessDocuments chunks every document and persists the results. Returns
// the number of chunks stored and the number of documents processed.
func (s *Service) ProcessDocuments(ctx context.Context, sourceID string, docs []store.Document, cb progress.Callback) (int, int, error) {
	if err := s.repo.SaveDocuments(ctx, sourceID, docs); err != nil {
		return 0, 0, err
	}

	var chunks []store.Chunk
	processed := 0
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return 0, processed, err
		}
		for _, piece := range splitMarkdown(doc.Markdown, s.chunkSize) {
			chunks = append(chunks, store.Chunk{
				SourceID: sourceID,
				URL:      doc.URL,
				Index:    len(chunks),
				Content:  piece,
			})
		}
		processed++
		pct := float64(i+1) / float64(len(docs)) * 100
		_ = cb(ctx, "process", pct, fmt.Sprintf("chunked %d/%d documents", i+1, len(docs)), progress.Payload{
			"chunks": len(chunks),
		})
	}

	if err := s.repo.SaveChunks(ctx, sourceID, chunks); err != nil {
		return 0, processed, err
	}
	s.log.LogInfof("stored %d chunks from %d documents for source %s", len(chunks), processed, sourceID)
	return len(chunks), processed, nil
}

// splitMarkdown slices text into size-bounded pieces, preferring heading
// boundaries, then paragraph breaks, so chunks keep coherent context.
func splitMarkdown(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 4000
	}
	if len(text) <= size {
		return []string{text}
	}

	var out []string
	for len(text) > size {
		cut := size

		// Prefer the last heading inside the window, as long as it does not
		// leave a trivially small remainder at the front.
		if idx := strings.LastIndex(text[:cut], "\n#"); idx > size/4 {
			cut = idx
		} else if idx := strings.LastIndex(text[:cut], "\n\n"); idx > size/4 {
			cut = idx
		}

		piece := strings.TrimSpace(text[:cut])
		if piece != "" {
			out = append(out, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
