package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ingester/internal/config"
	"ingester/internal/core/job"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *Service {
	return NewService(config.Config{FetchConcurrency: 4}, NewHeuristicDetector())
}

func TestDetectStrategy(t *testing.T) {
	s := testService()

	cases := []struct {
		url  string
		want job.Strategy
	}{
		{"https://example.com/sitemap.xml", job.StrategySitemap},
		{"https://example.com/SITEMAP_INDEX.XML", job.StrategySitemap},
		{"https://example.com/readme.md", job.StrategyMarkdown},
		{"https://example.com/llms.txt", job.StrategyMarkdown},
		{"https://docs.example.com/", job.StrategyRecursive},
		{"https://example.com/documentation/intro", job.StrategyRecursive},
		{"https://example.com/blog/post", job.StrategySingle},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.detectStrategy(tc.url), tc.url)
	}
}

func TestHeuristicDetector(t *testing.T) {
	d := NewHeuristicDetector()

	assert.True(t, d.IsDocumentationSite("https://docs.python.org/3/"))
	assert.True(t, d.IsDocumentationSite("https://developer.mozilla.org/en-US/"))
	assert.True(t, d.IsDocumentationSite("https://requests.readthedocs.io/"))
	assert.True(t, d.IsDocumentationSite("https://example.com/api-reference/auth"))
	assert.False(t, d.IsDocumentationSite("https://news.ycombinator.com/"))
	assert.False(t, d.IsDocumentationSite("https://example.com/pricing"))
}

func TestResolveRef(t *testing.T) {
	base := "https://example.com/guide/intro"

	assert.Equal(t, "https://example.com/guide/setup", resolveRef(base, "setup"))
	assert.Equal(t, "https://example.com/other", resolveRef(base, "/other"))
	assert.Equal(t, "https://cdn.example.com/x", resolveRef(base, "https://cdn.example.com/x"))
	assert.Empty(t, resolveRef(base, "#section"))
	assert.Empty(t, resolveRef(base, "mailto:team@example.com"))
	assert.Empty(t, resolveRef(base, "javascript:void(0)"))
	assert.Empty(t, resolveRef(base, "ftp://example.com/file"))
}

func TestFetchSingleConvertsPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Install Guide</title></head>
			<body><nav>skip me</nav><main><h1>Install</h1><p>Run the installer.</p></main></body></html>`)
	}))
	defer srv.Close()

	res, err := testService().Fetch(context.Background(), Request{URL: srv.URL, Strategy: job.StrategySingle}, nil)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)

	doc := res.Documents[0]
	assert.Equal(t, "Install Guide", doc.Title)
	assert.Contains(t, doc.Markdown, "Install")
	assert.Contains(t, doc.Markdown, "Run the installer.")
	assert.NotContains(t, doc.Markdown, "skip me")
	assert.Equal(t, TypeWebpage, res.DetectedType)
}

func TestFetchSingleErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testService().Fetch(context.Background(), Request{URL: srv.URL, Strategy: job.StrategySingle}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchMarkdownFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "# Title\n\nSome text.\n")
	}))
	defer srv.Close()

	res, err := testService().Fetch(context.Background(), Request{URL: srv.URL + "/readme.md", Strategy: job.StrategyMarkdown}, nil)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "readme.md", res.Documents[0].Title)
	assert.Contains(t, res.Documents[0].Markdown, "# Title")
	assert.Equal(t, TypeMarkdown, res.DetectedType)
}

func TestParseSitemapURLSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
			<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
				<url><loc>https://example.com/a</loc></url>
				<url><loc>https://example.com/b</loc></url>
				<url><loc></loc></url>
			</urlset>`)
	}))
	defer srv.Close()

	urls, err := testService().ParseSitemap(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestParseSitemapFollowsIndex(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<sitemapindex>
			<sitemap><loc>%s/pages.xml</loc></sitemap>
			<sitemap><loc>%s/missing.xml</loc></sitemap>
		</sitemapindex>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/pages.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://example.com/page</loc></url></urlset>`)
	})
	mux.HandleFunc("/missing.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// A broken nested sitemap is skipped, not fatal.
	urls, err := testService().ParseSitemap(context.Background(), srv.URL+"/sitemap_index.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/page"}, urls)
}

func TestParseSitemapRejectsDeepNesting(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Every level points at itself, so the depth cap must stop it.
	mux.HandleFunc("/loop.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<sitemapindex><sitemap><loc>%s/loop.xml</loc></sitemap></sitemapindex>`, srv.URL)
	})

	urls, err := testService().ParseSitemap(context.Background(), srv.URL+"/loop.xml")
	require.NoError(t, err)
	assert.Empty(t, urls, "a self-referencing index must not yield urls forever")
}

func TestFetchBatchSkipsFailures(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page := func(title string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "<html><head><title>%s</title></head><body><main><p>%s body</p></main></body></html>", title, title)
		}
	}
	mux.HandleFunc("/a", page("A"))
	mux.HandleFunc("/b", page("B"))
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	res, err := testService().Fetch(context.Background(), Request{
		URLs:     []string{srv.URL + "/a", srv.URL + "/broken", srv.URL + "/b"},
		Strategy: job.StrategyBatch,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 2)
	assert.Equal(t, TypeBatch, res.DetectedType)
}

func TestFetchBatchAllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testService().Fetch(context.Background(), Request{
		URLs:     []string{srv.URL + "/a", srv.URL + "/b"},
		Strategy: job.StrategyBatch,
	}, nil)
	assert.Error(t, err)
}

func TestFetchBatchHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testService().Fetch(ctx, Request{
		URLs:     []string{"https://example.com/a"},
		Strategy: job.StrategyBatch,
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageLinksFiltersSelfAndDuplicates(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/guide", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a href="%s/guide">self</a>
			<a href="%s/guide#install">self with anchor</a>
			<a href="/other">other</a>
			<a href="/other">other again</a>
			<a href="mailto:x@example.com">mail</a>
		</body></html>`, srv.URL, srv.URL)
	})

	links, err := testService().PageLinks(context.Background(), srv.URL+"/guide")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/other"}, links)
}
