package fetch

import (
	"strings"

	"ingester/internal/utils/urlutil"
)

// Detector classifies whether a URL belongs to a documentation-style site,
// which influences fetcher defaults (recursive crawl, deeper link limits).
type Detector interface {
	IsDocumentationSite(url string) bool
}

// HeuristicDetector matches well-known documentation hosts and path markers.
type HeuristicDetector struct{}

func NewHeuristicDetector() *HeuristicDetector { return &HeuristicDetector{} }

var docHostMarkers = []string{
	"docs.", "doc.", "developer.", "developers.", "devdocs.",
	"readthedocs", "gitbook", "docusaurus",
}

var docPathMarkers = []string{
	"/docs", "/documentation", "/api-reference", "/reference", "/guides", "/manual",
}

func (d *HeuristicDetector) IsDocumentationSite(url string) bool {
	host := strings.ToLower(urlutil.ExtractDomain(url))
	for _, m := range docHostMarkers {
		if strings.HasPrefix(host, m) || strings.Contains(host, m) {
			return true
		}
	}
	lower := strings.ToLower(url)
	for _, m := range docPathMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
