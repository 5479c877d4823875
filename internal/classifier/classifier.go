// Package classifier scores saved HTML pages for physical location data.
// A page earns points from independent evidence signals (address lists,
// map embeds, coordinate data, locator forms) and is accepted once it
// clears a threshold. The scoring is deliberately conservative: a footer
// address or a lone HQ map pin is not a location page.
package classifier

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Config carries the classifier knobs.
type Config struct {
	// MinHTMLBytes rejects pages smaller than this as error shells.
	MinHTMLBytes int
	// ScoreThreshold is the minimum total score for acceptance.
	ScoreThreshold int
	// TopPages caps how many accepted pages a site report keeps.
	TopPages int
	// NonUSURLPatterns and USURLPatterns steer the non-US path penalty.
	NonUSURLPatterns []string
	USURLPatterns    []string
}

// Classifier scores pages. Safe for concurrent use once built.
type Classifier struct {
	cfg           Config
	nonUSPatterns []*regexp.Regexp
	usPatterns    []*regexp.Regexp
	logger        *zap.Logger
}

// New compiles the configured URL patterns and returns a Classifier.
func New(cfg Config, logger *zap.Logger) (*Classifier, error) {
	if cfg.MinHTMLBytes <= 0 {
		cfg.MinHTMLBytes = 2000
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 3
	}
	if cfg.TopPages <= 0 {
		cfg.TopPages = 20
	}
	nonUS, err := compilePatterns(cfg.NonUSURLPatterns)
	if err != nil {
		return nil, err
	}
	us, err := compilePatterns(cfg.USURLPatterns)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:           cfg,
		nonUSPatterns: nonUS,
		usPatterns:    us,
		logger:        logger,
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		res = append(res, re)
	}
	return res, nil
}

// ClassifyPage scores one page. url may be empty when the page's origin is
// unknown; the filename stands in for it in that case.
func (c *Classifier) ClassifyPage(html, url, filename string) PageClassification {
	pageURL := url
	if pageURL == "" {
		pageURL = filename
	}
	result := PageClassification{URL: pageURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		result.Signals = []Signal{{
			Kind:       SignalDisqualified,
			Confidence: ConfidenceHigh,
			Detail:     "unparseable HTML",
		}}
		return result
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	result.Title = title
	urlLower := strings.ToLower(pageURL)

	// Stage 1: hard disqualifiers.
	if reason := c.disqualify(html, doc, title, urlLower); reason != "" {
		result.Signals = []Signal{{
			Kind:       SignalDisqualified,
			Confidence: ConfidenceHigh,
			Detail:     reason,
			Evidence:   truncate(title, 50),
		}}
		return result
	}

	// Stage 2: primary signals. A page must show at least one strong form
	// of evidence before secondary signals can add up.
	var signals []Signal
	hasPrimary := false

	isIndex := matchesIndexPattern(urlLower)
	if isIndex {
		hasPrimary = true
		signals = append(signals, Signal{
			Kind:       SignalIndexPage,
			Confidence: ConfidenceHigh,
			Points:     15,
			Detail:     "URL is a location index page",
			Evidence:   truncate(pageURL, 80),
		})
	}

	addressCount, addressSignal := detectAddresses(doc)
	if addressSignal != nil {
		if addressCount >= 5 {
			hasPrimary = true
		}
		signals = append(signals, *addressSignal)
	}

	coordCount, coordSignal := detectCoordinates(html)
	if coordSignal != nil {
		if coordCount >= 3 {
			hasPrimary = true
		}
		signals = append(signals, *coordSignal)
	}

	if mapsSignal := detectGoogleMaps(html, doc); mapsSignal != nil {
		if mapsSignal.Points >= 5 {
			hasPrimary = true
		}
		signals = append(signals, *mapsSignal)
	}

	if finderSignal := detectFinderForm(doc); finderSignal != nil {
		hasPrimary = true
		signals = append(signals, *finderSignal)
	}

	// Stage 3: without a primary signal a location-flavored URL still gets
	// a chance at the threshold; anything else is rejected outright.
	if !hasPrimary {
		if hasLocationURL(urlLower) {
			signals = append(signals, Signal{
				Kind:       SignalURLContext,
				Confidence: ConfidenceMedium,
				Points:     3,
				Detail:     "URL suggests location content",
				Evidence:   truncate(pageURL, 60),
			})
			hasPrimary = true
		}
	}
	if !hasPrimary {
		if len(signals) == 0 {
			signals = []Signal{{
				Kind:       SignalNoContent,
				Confidence: ConfidenceHigh,
				Detail:     "no primary location signals found",
			}}
		}
		result.Signals = signals
		return result
	}

	// Stage 4: secondary detectors and penalties. Each detector is
	// independent; the score is a fold over whatever they emit.
	for _, detect := range secondaryDetectors {
		signals = append(signals, detect(html, doc)...)
	}
	signals = append(signals, c.penalties(urlLower, strings.ToLower(title))...)

	total := 0
	for _, s := range signals {
		total += s.Points
	}
	result.Signals = signals
	result.Accepted = total >= c.cfg.ScoreThreshold
	result.Score = max(0, total)
	return result
}

// disqualify returns a non-empty reason when the page can never be a
// location page: error shells, non-English content, and page types like
// quote forms or careers that mention cities without listing facilities.
func (c *Classifier) disqualify(html string, doc *goquery.Document, title, urlLower string) string {
	if isErrorPage(html, title, c.cfg.MinHTMLBytes) {
		return "error/404 page"
	}
	if isNonEnglish(doc) && !hasLocationURL(urlLower) {
		return "non-English page"
	}
	if isExcludedPageType(urlLower, strings.ToLower(title)) {
		return "quote/career/excluded page type"
	}
	return ""
}

// penalties knocks points off pages whose URL or title belongs to a page
// class that rarely lists facilities, and off non-US regional pages.
func (c *Classifier) penalties(urlLower, titleLower string) []Signal {
	var signals []Signal
	if isLowValuePage(urlLower, titleLower) {
		signals = append(signals, Signal{
			Kind:       SignalLowValuePage,
			Confidence: ConfidenceHigh,
			Points:     -5,
			Detail:     "URL/title matches a non-location page class",
		})
	}
	if anyPatternMatch(c.nonUSPatterns, urlLower) && !anyPatternMatch(c.usPatterns, urlLower) {
		signals = append(signals, Signal{
			Kind:       SignalNonUSPath,
			Confidence: ConfidenceMedium,
			Points:     -3,
			Detail:     "URL targets a non-US region",
		})
	}
	return signals
}

func anyPatternMatch(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n runes. Titles and URLs on carrier
// sites are not always ASCII, so cutting on bytes could split a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
