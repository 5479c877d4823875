// Package crawler walks a single carrier site with a rendering browser,
// saving page snapshots for later classification. It favors breadth with a
// hard page budget, and pulls likely location pages to the front of the
// queue so the budget is spent where the signal is.
package crawler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleetops/locationscout/internal/metrics"
	"github.com/fleetops/locationscout/internal/render"
	"github.com/fleetops/locationscout/internal/urlutil"
)

// Config carries the per-site crawl knobs.
type Config struct {
	MaxPagesPerSite int
	SeedCap         int
	RequestDelay    time.Duration
}

// Crawler fetches pages for one site at a time. It is safe for concurrent
// use: each CrawlSite call gets its own browser session and frontier.
type Crawler struct {
	cfg     Config
	browser render.Browser
	norm    *urlutil.Normalizer
	sink    Sink
	met     *metrics.Metrics
	logger  *zap.Logger
}

// New builds a Crawler.
func New(cfg Config, browser render.Browser, norm *urlutil.Normalizer, sink Sink, met *metrics.Metrics, logger *zap.Logger) *Crawler {
	return &Crawler{
		cfg:     cfg,
		browser: browser,
		norm:    norm,
		sink:    sink,
		met:     met,
		logger:  logger,
	}
}

// CrawlSite crawls one site starting at siteURL. seeds come from sitemap
// discovery; prioritySeeds marks the subset whose URLs matched location
// keywords. The returned Summary lists every fetch attempt. An error is
// returned only when the crawl could not start at all; individual page
// failures are recorded in the summary and do not abort the site.
func (c *Crawler) CrawlSite(ctx context.Context, siteURL string, seeds []string, prioritySeeds map[string]bool) (Summary, error) {
	root, ok := c.norm.Normalize(siteURL, "")
	if !ok {
		return Summary{}, fmt.Errorf("crawl site: invalid root url %q", siteURL)
	}
	domain := urlutil.ExtractDomain(root)
	if domain == "" {
		return Summary{}, fmt.Errorf("crawl site: no domain in %q", root)
	}

	session, err := c.browser.NewSession(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("crawl site %s: %w", domain, err)
	}
	defer session.Close()

	frontier := c.seedFrontier(root, domain, seeds, prioritySeeds)

	var limiter *rate.Limiter
	if c.cfg.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(c.cfg.RequestDelay), 1)
	}

	summary := Summary{
		Site:      siteURL,
		Domain:    domain,
		StartedAt: time.Now().UTC(),
		Budget:    c.cfg.MaxPagesPerSite,
	}
	logger := c.logger.With(zap.String("domain", domain))

	attempts := 0
	for attempts < c.cfg.MaxPagesPerSite {
		if err := ctx.Err(); err != nil {
			logger.Warn("crawl interrupted", zap.Int("attempts", attempts), zap.Error(err))
			break
		}
		url, prio, ok := frontier.Pop()
		if !ok {
			break
		}
		attempts++

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		rec := c.fetchPage(ctx, session, url, prio, domain, url == root)
		summary.Pages = append(summary.Pages, rec)
		if rec.Error != "" || rec.StatusCode >= 400 {
			summary.PagesFailed++
			continue
		}
		summary.PagesSaved++

		// Only successful pages contribute links.
		c.enqueueLinks(frontier, rec, domain)
	}

	summary.FinishedAt = time.Now().UTC()
	if err := c.sink.WriteSummary(domain, summary); err != nil {
		logger.Warn("write crawl summary failed", zap.Error(err))
	}
	logger.Info("site crawl finished",
		zap.Int("saved", summary.PagesSaved),
		zap.Int("failed", summary.PagesFailed),
		zap.Int("queued_remaining", frontier.Len()),
	)
	return summary, nil
}

// seedFrontier queues the root first, then discovery seeds. Seeds that
// look like index pages or map PDFs go into the index tier; tool-subdomain
// seeds into the tool tier; the rest fill the ordinary tier up to SeedCap.
func (c *Crawler) seedFrontier(root, domain string, seeds []string, prioritySeeds map[string]bool) *Frontier {
	frontier := NewFrontier()

	var index, tool, ordinary []string
	for _, raw := range seeds {
		seed, ok := c.norm.Normalize(raw, root)
		if !ok || seed == root || !urlutil.SameDomain(seed, domain) {
			continue
		}
		switch {
		case urlutil.IsIndexURL(seed) || urlutil.IsPDFMapURL(seed) || prioritySeeds[raw]:
			index = append(index, seed)
		case urlutil.IsToolHost(seed):
			tool = append(tool, seed)
		default:
			ordinary = append(ordinary, seed)
		}
	}

	// The index tier pops newest-first, so push in reverse and finish with
	// the root to keep discovery order with the root on top.
	for i := len(index) - 1; i >= 0; i-- {
		frontier.Push(index[i], PriorityIndex)
	}
	frontier.Push(root, PriorityIndex)
	for _, u := range tool {
		frontier.Push(u, PriorityTool)
	}
	capped := ordinary
	if c.cfg.SeedCap > 0 && len(capped) > c.cfg.SeedCap {
		capped = capped[:c.cfg.SeedCap]
	}
	for _, u := range capped {
		frontier.Push(u, PriorityOrdinary)
	}
	return frontier
}

func (c *Crawler) fetchPage(ctx context.Context, session render.Session, url string, prio Priority, domain string, isRoot bool) PageRecord {
	rec := PageRecord{
		URL:       url,
		Priority:  prio.String(),
		FetchedAt: time.Now().UTC(),
	}

	// Homepages and index pages get the settle delay so client-rendered
	// location lists finish loading before the snapshot.
	settle := isRoot || prio == PriorityIndex
	page, err := session.Fetch(ctx, url, render.Options{Settle: settle})
	if err != nil {
		rec.Error = err.Error()
		c.met.ObservePageError()
		c.logger.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		return rec
	}

	rec.FinalURL = page.FinalURL
	rec.StatusCode = page.StatusCode
	rec.Title = page.Title
	c.met.ObservePage(page.StatusCode)
	if page.StatusCode >= 400 {
		return rec
	}

	name, err := c.sink.SavePage(domain, url, page.HTML)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	rec.SavedAs = name
	rec.links = page.Links
	return rec
}

func (c *Crawler) enqueueLinks(frontier *Frontier, rec PageRecord, domain string) {
	for _, raw := range rec.links {
		link, ok := c.norm.Normalize(raw, rec.URL)
		if !ok || !urlutil.SameDomain(link, domain) {
			continue
		}
		switch {
		case urlutil.IsIndexURL(link) || urlutil.IsPDFMapURL(link):
			frontier.Push(link, PriorityIndex)
		case urlutil.IsToolHost(link):
			frontier.Push(link, PriorityTool)
		default:
			frontier.Push(link, PriorityOrdinary)
		}
	}
}
