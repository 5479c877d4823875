package urlutil

import "testing"

func TestNormalize(t *testing.T) {
	n := NewNormalizer(DefaultDenylist())
	base := "https://www.example.com/about"

	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"absolute", "https://Example.com/Locations", "https://example.com/Locations", true},
		{"fragment stripped", "https://example.com/locations#map", "https://example.com/locations", true},
		{"trailing slash stripped", "https://example.com/locations/", "https://example.com/locations", true},
		{"root slash kept", "https://example.com/", "https://example.com/", true},
		{"query preserved", "https://example.com/find?zip=30301", "https://example.com/find?zip=30301", true},
		{"protocol relative", "//example.com/terminals", "https://example.com/terminals", true},
		{"path relative", "/terminals", "https://www.example.com/terminals", true},
		{"relative to page", "terminals", "https://www.example.com/terminals", true},
		{"empty", "   ", "", false},
		{"mailto", "mailto:dispatch@example.com", "", false},
		{"javascript", "javascript:void(0)", "", false},
		{"media asset", "https://example.com/hero.png", "", false},
		{"social", "https://www.facebook.com/example", "", false},
		{"blog category", "https://example.com/blog/where-we-drive", "", false},
		{"ftp scheme", "ftp://example.com/file", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := n.Normalize(tc.raw, base)
			if ok != tc.ok {
				t.Fatalf("Normalize(%q) ok=%v, want %v", tc.raw, ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeVariantsConverge(t *testing.T) {
	n := NewNormalizer(nil)
	base := "https://example.com/"
	variants := []string{
		"https://EXAMPLE.com/locations",
		"https://example.com/locations/",
		"https://example.com/locations#office-list",
	}
	first, ok := n.Normalize(variants[0], base)
	if !ok {
		t.Fatalf("expected first variant to normalize")
	}
	for _, v := range variants[1:] {
		got, ok := n.Normalize(v, base)
		if !ok || got != first {
			t.Fatalf("variant %q normalized to %q, want %q", v, got, first)
		}
	}
}

func TestSameDomain(t *testing.T) {
	tests := []struct {
		url    string
		domain string
		want   bool
	}{
		{"https://foo.com/a", "foo.com", true},
		{"https://www.foo.com/a", "foo.com", true},
		{"https://foo.com/a", "www.foo.com", true},
		{"https://x.foo.com/a", "foo.com", true},
		{"https://tools.x.foo.com/a", "foo.com", true},
		{"https://bar.com/a", "foo.com", false},
		{"https://notfoo.com/a", "foo.com", false},
		{"://bad", "foo.com", false},
	}
	for _, tc := range tests {
		if got := SameDomain(tc.url, tc.domain); got != tc.want {
			t.Fatalf("SameDomain(%q, %q) = %v, want %v", tc.url, tc.domain, got, tc.want)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	if got := ExtractDomain("https://www.Example.com/locations"); got != "example.com" {
		t.Fatalf("ExtractDomain = %q", got)
	}
	if got := ExtractDomain("https://tools.example.com/"); got != "tools.example.com" {
		t.Fatalf("ExtractDomain subdomain = %q", got)
	}
}
