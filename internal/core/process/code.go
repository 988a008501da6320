package process

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ingester/internal/core/progress"
	"ingester/internal/core/store"
)

var fencedBlockRe = regexp.MustCompile("(?s)```([a-zA-Z0-9+#-]*)\n(.*?)```")

// ExtractCodeExamples pulls fenced code blocks out of the documents and
// persists them. Zero examples is a valid outcome, not an error.
func (s *Service) ExtractCodeExamples(ctx context.Context, sourceID string, docs []store.Document, cb progress.Callback) (int, error) {
	var examples []store.CodeExample
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for _, m := range fencedBlockRe.FindAllStringSubmatch(doc.Markdown, -1) {
			code := strings.TrimSpace(m[2])
			if len(code) < s.minCode {
				continue
			}
			examples = append(examples, store.CodeExample{
				SourceID: sourceID,
				URL:      doc.URL,
				Language: m[1],
				Content:  code,
			})
		}
		pct := float64(i+1) / float64(len(docs)) * 100
		_ = cb(ctx, "extract", pct, fmt.Sprintf("scanned %d/%d documents for code", i+1, len(docs)), progress.Payload{
			"code_examples": len(examples),
		})
	}

	if len(examples) > 0 {
		if err := s.repo.SaveCodeExamples(ctx, sourceID, examples); err != nil {
			return 0, err
		}
	}
	s.log.LogInfof("extracted %d code examples for source %s", len(examples), sourceID)
	return len(examples), nil
}
