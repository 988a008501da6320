package markdown

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var (
	imgLineRe      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// boilerplate class/id fragments stripped before conversion
var noiseKeywords = []string{
	"cookie", "consent", "banner", "navbar", "nav-", "menu-",
	"pagination", "share", "signup", "signin", "login",
	"ad-", "advert", "promo", "modal", "popup", "dialog",
	"breadcrumb", "sidebar",
}

// ConvertDocument converts an HTML page into cleaned markdown. The main
// content region is preferred when one can be identified; navigation and
// other boilerplate is stripped first. Fenced code blocks survive the
// conversion so code extraction can run on the result.
func ConvertDocument(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var content *goquery.Selection
	for _, sel := range []string{"main", "article", "[role=\"main\"]", "#content", "#main"} {
		if doc.Find(sel).Length() > 0 {
			content = doc.Find(sel).First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	content.Find("script, style, noscript, nav, header, footer, aside, form, iframe, svg, button, input").
		Each(func(_ int, s *goquery.Selection) { s.Remove() })
	content.Find("[role=\"navigation\"], [role=\"banner\"], [role=\"contentinfo\"], [aria-modal]").
		Each(func(_ int, s *goquery.Selection) { s.Remove() })
	content.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		classVal, _ := sel.Attr("class")
		idVal, _ := sel.Attr("id")
		lower := strings.ToLower(classVal + " " + idVal)
		for _, kw := range noiseKeywords {
			if strings.Contains(lower, kw) {
				sel.Remove()
				break
			}
		}
	})

	body, err := content.Html()
	if err != nil {
		return ""
	}

	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(body)
	if err != nil {
		return ""
	}
	return Clean(out)
}

// Clean drops pure image lines, strips control characters, and collapses
// blank-line runs.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		line := strings.TrimRight(l, " \t")
		stripped := strings.TrimSpace(line)
		if stripped != "" && imgLineRe.MatchString(stripped) &&
			strings.TrimSpace(imgLineRe.ReplaceAllString(stripped, "")) == "" {
			continue
		}
		out = append(out, controlCharsRe.ReplaceAllString(line, ""))
	}
	cleaned := strings.Join(out, "\n")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// ExtractTitle pulls the page title, og:title winning over <title>.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
