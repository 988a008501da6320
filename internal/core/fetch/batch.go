package fetch

import (
	"context"
	"fmt"
	"sync"

	"ingester/internal/core/progress"
	"ingester/internal/core/store"
)

// fetchBatch fetches a known list of URLs with a bounded worker pool.
// Cancellation is observed between items: a cancelled context stops new work
// but lets in-flight pages finish.
func (s *Service) fetchBatch(ctx context.Context, req Request, cb progress.Callback) (*Result, error) {
	urls := req.URLs
	if len(urls) == 0 && req.URL != "" {
		urls = []string{req.URL}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("batch fetch: no urls given")
	}

	workers := s.cfg.FetchConcurrency
	if workers <= 0 {
		workers = 10
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	var (
		mu   sync.Mutex
		docs []store.Document
		done int
	)
	total := len(urls)
	urlCh := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range urlCh {
				if ctx.Err() != nil {
					return
				}
				res, err := s.fetchSingle(ctx, u, progress.NewCallback(nil, nil))

				mu.Lock()
				done++
				completed := done
				if err != nil {
					s.log.LogWarnf("batch item %s failed: %v", u, err)
				} else {
					docs = append(docs, res.Documents...)
				}
				mu.Unlock()

				pct := float64(completed) / float64(total) * 100
				_ = cb(ctx, "fetch", pct, fmt.Sprintf("fetched %d/%d pages", completed, total), progress.Payload{
					"completed": completed,
					"total":     total,
				})
			}
		}()
	}

feed:
	for _, u := range urls {
		select {
		case <-ctx.Done():
			break feed
		case urlCh <- u:
		}
	}
	close(urlCh)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("batch fetch: all %d pages failed", total)
	}
	return &Result{Documents: docs, DetectedType: TypeBatch}, nil
}
