package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ClassifySite scores every saved page under pagesDir and aggregates the
// accepted ones into a report. Unreadable files are skipped; a site with
// zero accepted pages still gets a report so the caller can flag it for
// manual review.
func (c *Classifier) ClassifySite(carrierName, pagesDir string) (SiteReport, error) {
	entries, err := os.ReadDir(pagesDir)
	if err != nil {
		return SiteReport{}, fmt.Errorf("read pages dir: %w", err)
	}

	report := SiteReport{
		Carrier:        carrierName,
		Domain:         filepath.Base(pagesDir),
		ModalityCounts: make(map[string]int),
	}

	var accepted []PageClassification
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		report.TotalPages++

		path := filepath.Join(pagesDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warn("skipping unreadable page", zap.String("file", path), zap.Error(err))
			continue
		}
		html := string(data)
		stem := strings.TrimSuffix(entry.Name(), ".html")

		page := c.ClassifyPage(html, RecoverPageURL(html), stem)
		if !page.Accepted {
			continue
		}
		report.LocationPages++
		accepted = append(accepted, page)
		for _, sig := range page.Signals {
			if sig.Points > 0 {
				report.ModalityCounts[string(sig.Kind)]++
			}
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})
	if len(accepted) > c.cfg.TopPages {
		accepted = accepted[:c.cfg.TopPages]
	}
	report.TopPages = accepted
	report.Recommendation = Recommend(report.ModalityCounts)
	return report, nil
}

// RecoverPageURL digs a page's origin URL out of its saved HTML. The
// crawler-injected marker is checked first; canonical and social metadata
// serve as fallbacks for pages saved by other tools.
func RecoverPageURL(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if v, ok := doc.Find(`meta[name="crawler-original-url"]`).First().Attr("content"); ok && v != "" {
		return v
	}
	if v, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && v != "" {
		return v
	}
	if v, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok && v != "" {
		return v
	}
	if v, ok := doc.Find(`meta[name="twitter:url"]`).First().Attr("content"); ok && v != "" {
		return v
	}
	return ""
}

// Recommend translates a site's modality counts into the extraction
// approaches a downstream pipeline should take, in a stable order.
func Recommend(modalityCounts map[string]int) string {
	if len(modalityCounts) == 0 {
		return "No location data detected - manual review needed"
	}

	has := func(kinds ...SignalKind) bool {
		for _, k := range kinds {
			if modalityCounts[string(k)] > 0 {
				return true
			}
		}
		return false
	}

	var recs []string
	if has(SignalAddressList, SignalAddressPair) {
		recs = append(recs, "Parse addresses from HTML")
	}
	if has(SignalMapsEmbed, SignalMapsAPI) {
		recs = append(recs, "Extract from Google Maps embed")
	}
	if has(SignalMapsLink) {
		recs = append(recs, "Parse Google Maps URLs")
	}
	for kind := range modalityCounts {
		if strings.HasPrefix(kind, "MAP_") {
			recs = append(recs, "Query map API/data source")
			break
		}
	}
	if has(SignalPDFServiceMap, SignalPDFLocations) {
		recs = append(recs, "Parse PDF documents")
	}
	if has(SignalLocationSearch, SignalLocationFinder) {
		recs = append(recs, "Automate location search form")
	}
	if has(SignalJSONLD) {
		recs = append(recs, "Parse JSON-LD structured data")
	}

	if len(recs) == 0 {
		return "Manual review needed"
	}
	return strings.Join(recs, "; ")
}
