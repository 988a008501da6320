package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ingester/internal/core/progress"
	"ingester/internal/core/store"
	"ingester/internal/utils/markdown"
	"ingester/internal/utils/urlutil"

	"github.com/gocolly/colly"
)

// fetchRecursive crawls same-site links breadth-first up to the configured
// depth and page limit. Cancellation aborts pending requests between pages.
func (s *Service) fetchRecursive(ctx context.Context, req Request, cb progress.Callback) (*Result, error) {
	depth := req.MaxDepth
	if depth <= 0 {
		depth = s.cfg.CrawlMaxDepth
	}
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = s.cfg.CrawlMaxPages
	}

	start := urlutil.EnsureScheme(req.URL)
	dom := urlutil.ExtractDomain(start)

	var (
		mu      sync.Mutex
		visited = make(map[string]struct{})
		docs    []store.Document
	)

	c := colly.NewCollector(colly.MaxDepth(depth), colly.Async(true), colly.UserAgent(userAgent))
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 10, RandomDelay: 500 * time.Millisecond})

	c.OnRequest(func(r *colly.Request) {
		select {
		case <-ctx.Done():
			r.Abort()
			return
		default:
		}
		mu.Lock()
		full := len(docs) >= maxPages
		mu.Unlock()
		if full {
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		ct := r.Headers.Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			return
		}
		page := r.Request.URL.String()
		md := markdown.ConvertDocument(string(r.Body))
		if md == "" {
			return
		}

		mu.Lock()
		if len(docs) >= maxPages {
			mu.Unlock()
			return
		}
		docs = append(docs, store.Document{
			URL:      page,
			Title:    markdown.ExtractTitle(string(r.Body)),
			Markdown: md,
		})
		count := len(docs)
		mu.Unlock()

		// Page limit stands in for total work: the frontier size is unknown
		// while the crawl is still discovering links.
		pct := float64(count) / float64(maxPages) * 100
		if pct > 99 {
			pct = 99
		}
		_ = cb(ctx, "fetch", pct, fmt.Sprintf("crawled %d pages", count), progress.Payload{"pages": count})
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		link := urlutil.Normalize(e.Request.AbsoluteURL(e.Attr("href")))
		if link == "" || urlutil.IsSelfLink(link, e.Request.URL.String()) {
			return
		}
		if !urlutil.DomainsMatch(urlutil.ExtractDomain(link), dom, req.IncludeSubdomains) {
			return
		}
		mu.Lock()
		_, seen := visited[link]
		if !seen {
			visited[link] = struct{}{}
		}
		full := len(docs) >= maxPages
		mu.Unlock()
		if !seen && !full {
			_ = e.Request.Visit(link)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		s.log.LogWarnf("crawl error %s %d: %v", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(start); err != nil {
		return nil, fmt.Errorf("visit %s: %w", start, err)
	}
	c.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("recursive crawl of %s found no content", req.URL)
	}
	_ = cb(ctx, "fetch", 100, fmt.Sprintf("crawl finished with %d pages", len(docs)), nil)

	detected := TypeWebpage
	if s.detector.IsDocumentationSite(start) {
		detected = TypeDocsSite
	}
	return &Result{Documents: docs, DetectedType: detected}, nil
}
