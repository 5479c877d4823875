// Package urlutil canonicalizes raw link strings into comparable absolute
// URLs and answers domain-scope questions for the crawler.
package urlutil

import (
	"net/url"
	"strings"
)

// DefaultDenylist rejects links that can never hold location data: binary
// and media assets, social networks, non-HTTP schemes, and low-value
// content categories.
func DefaultDenylist() []string {
	return []string{
		"/blog", "/news", "/press", "/career", "/job", "/apply",
		"/login", "/signin", "/register", "/cart", "/checkout",
		"/privacy", "/terms", "/legal", "/cookie",
		".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp",
		".mp4", ".mp3", ".avi", ".mov",
		".zip", ".rar", ".exe", ".dmg",
		"facebook.com", "twitter.com", "linkedin.com", "instagram.com",
		"youtube.com", "mailto:", "tel:", "javascript:",
	}
}

// Normalizer rewrites raw href values into canonical absolute URLs.
type Normalizer struct {
	denylist []string
}

// NewNormalizer builds a Normalizer from denylist substrings. Entries are
// matched case-insensitively against the raw input.
func NewNormalizer(denylist []string) *Normalizer {
	lowered := make([]string, 0, len(denylist))
	for _, entry := range denylist {
		entry = strings.TrimSpace(strings.ToLower(entry))
		if entry != "" {
			lowered = append(lowered, entry)
		}
	}
	return &Normalizer{denylist: lowered}
}

// Normalize resolves raw against base and returns the canonical form:
// http/https only, fragment stripped, host lowercased, query preserved,
// trailing slash removed except on the root path. The second return is
// false when the input is empty, denylisted, or unparseable.
//
// Two raw strings that normalize to the same value are the same frontier
// entry.
func (n *Normalizer) Normalize(raw, base string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	lower := strings.ToLower(raw)
	for _, blocked := range n.denylist {
		if strings.Contains(lower, blocked) {
			return "", false
		}
	}

	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	} else if !strings.HasPrefix(raw, "http") {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		raw = baseURL.ResolveReference(ref).String()
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}

	normalized := parsed.Scheme + "://" + strings.ToLower(parsed.Host) + parsed.EscapedPath()
	if parsed.RawQuery != "" {
		normalized += "?" + parsed.RawQuery
	}
	if strings.HasSuffix(normalized, "/") && parsed.Path != "/" {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized, true
}

// SameDomain reports whether rawURL is in scope for domain: equal hosts or
// a subdomain of it, with a leading "www." ignored on either side.
func SameDomain(rawURL, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := stripWWW(strings.ToLower(parsed.Host))
	domain = stripWWW(strings.ToLower(domain))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// ExtractDomain returns the lowercased host of rawURL without a leading
// "www." prefix.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return stripWWW(strings.ToLower(parsed.Host))
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
