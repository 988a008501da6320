package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"ingester/internal/core/progress"
)

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// nested sitemap indexes are followed at most this deep
const maxSitemapDepth = 3

// ParseSitemap resolves a sitemap URL into the page URLs it lists,
// recursing into sitemap indexes.
func (s *Service) ParseSitemap(ctx context.Context, url string) ([]string, error) {
	return s.parseSitemap(ctx, url, 0)
}

func (s *Service) parseSitemap(ctx context.Context, url string, depth int) ([]string, error) {
	if depth > maxSitemapDepth {
		return nil, fmt.Errorf("sitemap nesting exceeds %d levels at %s", maxSitemapDepth, url)
	}

	resp, err := s.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("sitemap fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read sitemap %s: %w", url, err)
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		out := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			if u.Loc != "" {
				out = append(out, u.Loc)
			}
		}
		return out, nil
	}

	var idx sitemapIndex
	if err := xml.Unmarshal(body, &idx); err == nil && len(idx.Sitemaps) > 0 {
		var out []string
		for _, sm := range idx.Sitemaps {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			nested, err := s.parseSitemap(ctx, sm.Loc, depth+1)
			if err != nil {
				s.log.LogWarnf("nested sitemap %s skipped: %v", sm.Loc, err)
				continue
			}
			out = append(out, nested...)
		}
		return out, nil
	}

	return nil, fmt.Errorf("no urls found in sitemap %s", url)
}

// fetchSitemap expands the sitemap and batch-fetches every listed page.
func (s *Service) fetchSitemap(ctx context.Context, req Request, cb progress.Callback) (*Result, error) {
	_ = cb(ctx, "fetch", 2, "parsing sitemap", nil)

	urls, err := s.ParseSitemap(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if req.MaxPages > 0 && len(urls) > req.MaxPages {
		urls = urls[:req.MaxPages]
	}
	s.log.LogInfof("sitemap %s lists %d pages", req.URL, len(urls))

	batchReq := req
	batchReq.URLs = urls
	res, err := s.fetchBatch(ctx, batchReq, cb)
	if err != nil {
		return nil, err
	}
	res.DetectedType = TypeSitemap
	return res, nil
}
