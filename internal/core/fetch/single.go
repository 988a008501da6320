package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"ingester/internal/core/progress"
	"ingester/internal/core/store"
	"ingester/internal/utils/markdown"
	"ingester/internal/utils/urlutil"

	"github.com/PuerkitoBio/goquery"
)

// fetchSingle retrieves one page and converts it into a markdown document.
func (s *Service) fetchSingle(ctx context.Context, url string, cb progress.Callback) (*Result, error) {
	_ = cb(ctx, "fetch", 10, "fetching "+url, nil)

	resp, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("single fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	html := string(body)

	_ = cb(ctx, "fetch", 60, "converting content", nil)

	doc := store.Document{
		URL:      url,
		Title:    markdown.ExtractTitle(html),
		Markdown: markdown.ConvertDocument(html),
	}
	if doc.Markdown == "" {
		return nil, fmt.Errorf("no usable content at %s", url)
	}

	_ = cb(ctx, "fetch", 100, "fetched 1 page", nil)
	detected := TypeWebpage
	if s.detector.IsDocumentationSite(url) {
		detected = TypeDocsSite
	}
	return &Result{Documents: []store.Document{doc}, DetectedType: detected}, nil
}

// fetchMarkdownFile retrieves a raw markdown or text file without HTML
// conversion.
func (s *Service) fetchMarkdownFile(ctx context.Context, url string, cb progress.Callback) (*Result, error) {
	_ = cb(ctx, "fetch", 10, "fetching "+url, nil)

	resp, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("markdown fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	content := markdown.Clean(string(body))
	if content == "" {
		return nil, fmt.Errorf("empty markdown file at %s", url)
	}

	title := url
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		title = url[i+1:]
	}

	_ = cb(ctx, "fetch", 100, "fetched markdown file", nil)
	return &Result{
		Documents:    []store.Document{{URL: url, Title: title, Markdown: content}},
		DetectedType: TypeMarkdown,
	}, nil
}

// PageLinks fetches a page and returns its outbound same-page-filtered
// links. Self links are dropped so a crawl never re-queues the page it came
// from.
func (s *Service) PageLinks(ctx context.Context, pageURL string) ([]string, error) {
	resp, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs := resolveRef(pageURL, href)
		if abs == "" {
			return
		}
		abs = urlutil.Normalize(abs)
		if urlutil.IsSelfLink(abs, pageURL) {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links, nil
}

// resolveRef makes href absolute against base, dropping anchors and
// non-http(s) schemes.
func resolveRef(base, href string) string {
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(h)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

const maxBodyBytes = 10 << 20
