// Package discovery finds candidate URLs for a site from its sitemaps and
// robots.txt before the crawler starts following links.
package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/fleetops/locationscout/internal/urlutil"
)

// Config carries the discovery knobs.
type Config struct {
	Timeout          time.Duration
	MaxChildSitemaps int
	LocationKeywords []string
	UserAgent        string
}

// Result is the outcome of discovery for one site. Priority is the
// advisory subset of URLs whose path matched a location keyword; the
// crawler uses it to order the frontier, never to filter it.
type Result struct {
	URLs     []string
	Priority map[string]bool
}

// Discoverer probes conventional sitemap locations and robots.txt
// Sitemap directives. Discovery is best effort: a site with no sitemap
// degrades to a root-only result and link-following takes over.
type Discoverer struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Discoverer.
func New(cfg Config, logger *zap.Logger) *Discoverer {
	if cfg.MaxChildSitemaps <= 0 {
		cfg.MaxChildSitemaps = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Discoverer{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// Discover returns the candidate URL set for siteRoot. The root itself is
// always included.
func (d *Discoverer) Discover(ctx context.Context, siteRoot string) Result {
	siteRoot = strings.TrimSuffix(siteRoot, "/")
	domain := urlutil.ExtractDomain(siteRoot)

	seen := make(map[string]struct{})
	priority := make(map[string]bool)
	var urls []string

	add := func(u string) {
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
		if d.isPriority(u) {
			priority[u] = true
		}
	}

	fetched := d.fromSitemapProbes(ctx, siteRoot, domain)
	for _, u := range fetched {
		add(u)
	}
	for _, u := range d.fromRobots(ctx, siteRoot, domain) {
		add(u)
	}

	// The homepage is always a seed, with or without a sitemap.
	if _, dup := seen[siteRoot]; !dup {
		urls = append(urls, siteRoot)
	}

	return Result{URLs: urls, Priority: priority}
}

func (d *Discoverer) fromSitemapProbes(ctx context.Context, siteRoot, domain string) []string {
	probes := []string{
		siteRoot + "/sitemap.xml",
		siteRoot + "/sitemap_index.xml",
		siteRoot + "/sitemap/sitemap.xml",
	}
	for _, probe := range probes {
		urls, err := d.fetchSitemap(ctx, probe, domain, 0)
		if err != nil {
			d.logger.Debug("sitemap probe failed", zap.String("url", probe), zap.Error(err))
			continue
		}
		if len(urls) > 0 {
			return urls
		}
	}
	return nil
}

func (d *Discoverer) fromRobots(ctx context.Context, siteRoot, domain string) []string {
	body, status, err := d.get(ctx, siteRoot+"/robots.txt")
	if err != nil {
		d.logger.Debug("robots fetch failed", zap.String("site", siteRoot), zap.Error(err))
		return nil
	}
	if status != http.StatusOK {
		return nil
	}
	robots, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		d.logger.Debug("robots parse failed", zap.String("site", siteRoot), zap.Error(err))
		return nil
	}

	var urls []string
	for _, sitemapURL := range robots.Sitemaps {
		fetched, err := d.fetchSitemap(ctx, strings.TrimSpace(sitemapURL), domain, 0)
		if err != nil {
			continue
		}
		urls = append(urls, fetched...)
	}
	return urls
}

// fetchSitemap fetches one sitemap document. Sitemap indexes recurse one
// level into at most MaxChildSitemaps children.
func (d *Discoverer) fetchSitemap(ctx context.Context, sitemapURL, domain string, depth int) ([]string, error) {
	body, status, err := d.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("sitemap %s: status %d", sitemapURL, status)
	}
	if !looksLikeSitemapXML(body) {
		return nil, fmt.Errorf("sitemap %s: not XML", sitemapURL)
	}

	if children := parseSitemapIndex(body); len(children) > 0 {
		if depth >= 1 {
			return nil, nil
		}
		var urls []string
		limit := min(len(children), d.cfg.MaxChildSitemaps)
		for _, child := range children[:limit] {
			childURLs, err := d.fetchSitemap(ctx, strings.TrimSpace(child), domain, depth+1)
			if err != nil {
				// Malformed or unreachable children are skipped; whatever
				// was already gathered still counts.
				continue
			}
			urls = append(urls, childURLs...)
		}
		return urls, nil
	}

	var urls []string
	for _, loc := range parseURLSet(body) {
		loc = strings.TrimSpace(loc)
		if loc != "" && urlutil.SameDomain(loc, domain) {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

func (d *Discoverer) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.logger.Debug("close response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, resp.StatusCode, nil
}

func (d *Discoverer) isPriority(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, kw := range d.cfg.LocationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func looksLikeSitemapXML(body []byte) bool {
	head := strings.TrimSpace(string(body[:min(len(body), 512)]))
	return strings.HasPrefix(head, "<?xml") ||
		strings.Contains(head, "<urlset") ||
		strings.Contains(head, "<sitemapindex")
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

func parseSitemapIndex(body []byte) []string {
	var idx sitemapIndex
	if err := xml.Unmarshal(body, &idx); err != nil {
		return nil
	}
	locs := make([]string, 0, len(idx.Sitemaps))
	for _, sm := range idx.Sitemaps {
		locs = append(locs, sm.Loc)
	}
	return locs
}

func parseURLSet(body []byte) []string {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil
	}
	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		locs = append(locs, u.Loc)
	}
	return locs
}
