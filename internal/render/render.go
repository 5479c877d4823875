// Package render drives a headless browser to fetch fully rendered pages.
// Many carrier sites build their location pages with JavaScript, so a plain
// HTTP GET would miss the content the classifier needs.
package render

import "context"

// Page is a rendered page snapshot taken after JavaScript execution.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Title      string
	HTML       string
	Links      []string
}

// Options control how a single fetch behaves.
type Options struct {
	// Settle waits out client-side rendering and scrolls the page to
	// trigger lazy-loaded content. Reserved for homepages and pages that
	// look like location indexes; ordinary pages skip it for speed.
	Settle bool
}

// Session is one isolated browsing context. Cookies and storage are scoped
// to the session, so sites crawled in parallel never share state.
type Session interface {
	Fetch(ctx context.Context, rawURL string, opts Options) (Page, error)
	Close()
}

// Browser creates sessions. The crawler takes this interface so tests can
// substitute a scripted implementation for Chrome.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
	Close()
}
