package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ingester/internal/config"
	"ingester/internal/core/job"
	"ingester/internal/core/progress"
	"ingester/internal/core/store"
	"ingester/internal/logger"
)

// Detected crawl types reported back to the progress sink.
const (
	TypeWebpage  = "webpage"
	TypeDocsSite = "docs_site"
	TypeSitemap  = "sitemap"
	TypeMarkdown = "markdown_file"
	TypeBatch    = "batch"
)

// Request describes one fetch operation.
type Request struct {
	URL               string
	URLs              []string // batch strategy only
	Strategy          job.Strategy
	MaxDepth          int
	MaxPages          int
	IncludeSubdomains bool
}

// Result is the raw output of a fetch plus the crawl type that was detected.
type Result struct {
	Documents    []store.Document
	DetectedType string
}

// Service fetches content for every strategy. Stage-local progress is
// reported through the supplied callback; the service knows nothing about
// how those percentages map into a job's overall progress.
type Service struct {
	log      *logger.Logger
	client   *http.Client
	detector Detector
	cfg      config.Config
}

func NewService(cfg config.Config, detector Detector) *Service {
	return &Service{
		log:      logger.New("FetchService"),
		client:   &http.Client{Timeout: 30 * time.Second},
		detector: detector,
		cfg:      cfg,
	}
}

// Fetch dispatches by strategy. The empty strategy auto-detects: sitemap for
// .xml URLs, markdown for .md/.txt, recursive for documentation-style sites,
// single page otherwise.
func (s *Service) Fetch(ctx context.Context, req Request, cb progress.Callback) (*Result, error) {
	if cb == nil {
		cb = progress.NewCallback(nil, nil)
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = s.detectStrategy(req.URL)
		s.log.LogDebugf("auto-detected strategy %s for %s", strategy, req.URL)
	}
	switch strategy {
	case job.StrategySingle:
		return s.fetchSingle(ctx, req.URL, cb)
	case job.StrategyMarkdown:
		return s.fetchMarkdownFile(ctx, req.URL, cb)
	case job.StrategySitemap:
		return s.fetchSitemap(ctx, req, cb)
	case job.StrategyBatch:
		return s.fetchBatch(ctx, req, cb)
	case job.StrategyRecursive:
		return s.fetchRecursive(ctx, req, cb)
	default:
		return nil, fmt.Errorf("unknown fetch strategy: %s", strategy)
	}
}

func (s *Service) detectStrategy(url string) job.Strategy {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".xml") || strings.Contains(lower, "sitemap"):
		return job.StrategySitemap
	case strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".txt"):
		return job.StrategyMarkdown
	case s.detector.IsDocumentationSite(url):
		return job.StrategyRecursive
	default:
		return job.StrategySingle
	}
}

func (s *Service) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return resp, nil
}

const userAgent = "IngesterBot/1.0"
