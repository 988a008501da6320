package urlutil

import (
	"net/url"
	"strings"
)

// IsSelfLink reports whether candidate points back at base. Both URLs are
// normalized first (case-insensitive scheme/host, default ports stripped,
// single trailing slash stripped, fragment ignored, query kept). If either
// URL fails to parse we fall back to raw string equality so link filtering
// can never abort a crawl.
func IsSelfLink(candidate, base string) bool {
	cn, err1 := normalizeForCompare(candidate)
	bn, err2 := normalizeForCompare(base)
	if err1 != nil || err2 != nil {
		return candidate == base
	}
	return cn == bn
}

func normalizeForCompare(raw string) (string, error) {
	p, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(p.Scheme)
	host := strings.ToLower(p.Host)
	switch scheme {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	path := p.EscapedPath()
	if strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	out := scheme + "://" + host + path
	if p.RawQuery != "" {
		out += "?" + p.RawQuery
	}
	return out, nil
}

// Normalize strips the fragment and collapses a bare "/" path, matching how
// discovered links are deduplicated before visiting.
func Normalize(raw string) string {
	p, err := url.Parse(raw)
	if err != nil || p == nil {
		return raw
	}
	p.Fragment = ""
	if p.Path == "/" {
		p.Path = ""
	}
	return p.String()
}

// ExtractDomain returns the hostname of a URL, or "" when it cannot be parsed.
func ExtractDomain(raw string) string {
	p, _ := url.Parse(raw)
	if p != nil {
		return p.Hostname()
	}
	return ""
}

// EnsureScheme prefixes https:// when the URL carries no scheme.
func EnsureScheme(raw string) string {
	if !strings.HasPrefix(raw, "http") {
		return "https://" + raw
	}
	return raw
}

// DomainsMatch compares two hostnames, optionally treating subdomains of the
// same site as a match. A www. prefix is ignored on both sides.
func DomainsMatch(a, b string, includeSubdomains bool) bool {
	if a == b {
		return true
	}
	a = strings.TrimPrefix(a, "www.")
	b = strings.TrimPrefix(b, "www.")
	if a == b {
		return true
	}
	if includeSubdomains && (strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a)) {
		return true
	}
	return false
}
