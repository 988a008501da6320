package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertDocumentPrefersMainContent(t *testing.T) {
	html := `<html><body>
		<nav><a href="/">Home</a></nav>
		<main><h1>Welcome</h1><p>Body text.</p></main>
		<footer>Copyright</footer>
	</body></html>`

	out := ConvertDocument(html)
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "Body text.")
	assert.NotContains(t, out, "Home")
	assert.NotContains(t, out, "Copyright")
}

func TestConvertDocumentStripsBoilerplateByClass(t *testing.T) {
	html := `<html><body>
		<div class="cookie-consent">Accept cookies</div>
		<div class="sidebar">Related links</div>
		<p>Real content.</p>
	</body></html>`

	out := ConvertDocument(html)
	assert.Contains(t, out, "Real content.")
	assert.NotContains(t, out, "Accept cookies")
	assert.NotContains(t, out, "Related links")
}

func TestConvertDocumentKeepsFencedCode(t *testing.T) {
	html := `<html><body><main>
		<p>Run this:</p>
		<pre><code>go run main.go</code></pre>
	</main></body></html>`

	out := ConvertDocument(html)
	assert.Contains(t, out, "go run main.go")
}

func TestClean(t *testing.T) {
	in := "Hello\n\n\n\n![logo](logo.png)\nWorld\x00!\n"
	out := Clean(in)
	assert.Equal(t, "Hello\n\nWorld!", out)
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "OG Title", ExtractTitle(
		`<head><meta property="og:title" content="OG Title"><title>Doc Title</title></head>`))
	assert.Equal(t, "Doc Title", ExtractTitle(`<head><title> Doc Title </title></head>`))
	assert.Empty(t, ExtractTitle(`<head></head>`))
}
