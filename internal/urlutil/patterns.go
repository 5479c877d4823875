package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

// indexPatterns match URLs that are almost certainly a location index
// page. These were collected from real carrier sites and cover the common
// CMS conventions for "where are we" pages.
var indexPatterns = compileAll([]string{
	`/locations/?$`,
	`/locations\.html`,
	`/our-locations/?$`,
	`/all-locations/?$`,
	`centersResult`,
	`/coverage`,
	`/terminals/?$`,
	`/service-centers/?$`,
	`service-center-locator`,
	`/service-locations`,
	`/facilities/?$`,
	`/branches/?$`,
	`/find-us/?$`,
	`/terminal-locations/?$`,
	`/branch-locator`,
	`/map\.html`,
	`servicemap\.pdf`,
	`/locator/?$`,
	`/find-location`,
	`/store-locator`,
	`/dealer-locator`,
})

var highPriorityPatterns = compileAll([]string{
	`location`,
	`terminal`,
	`service.?center`,
	`facilit`,
	`branch`,
	`office`,
	`find.?us`,
	`locator`,
	`finder`,
	`yard`,
	`depot`,
	`where.?we`,
	`map\.html`,
	`servicemap`,
})

var lowPriorityPatterns = compileAll([]string{
	`investor`,
	`career`,
	`job`,
	`blog`,
	`news`,
	`press`,
	`SEC`,
	`earning`,
	`stock`,
	`annual.?report`,
	`quarter`,
	`privacy`,
	`terms`,
	`legal`,
	`cookie`,
	`login`,
	`sign.?in`,
	`cart`,
	`checkout`,
	`account`,
})

// toolHostMarkers flag subdomains that typically host interactive tools
// (terminal locators, customer portals) rather than brochure pages.
var toolHostMarkers = []string{
	"ext-web.",
	"tools.",
	"apps.",
	"app.",
	"my.",
	"portal.",
	"locator.",
	"finder.",
	"search.",
}

// pdfMapKeywords mark PDF files worth fetching: service maps and terminal
// directories published as documents.
var pdfMapKeywords = []string{
	"map",
	"service",
	"terminal",
	"location",
	"network",
	"coverage",
	"facility",
	"directory",
}

func compileAll(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(`(?i)`+p))
	}
	return res
}

// IsIndexURL reports whether the URL path looks like a location index page.
func IsIndexURL(rawURL string) bool {
	return anyMatch(indexPatterns, rawURL)
}

// IsHighPriorityURL reports whether the URL hints at location content
// without necessarily being an index page.
func IsHighPriorityURL(rawURL string) bool {
	return anyMatch(highPriorityPatterns, rawURL)
}

// IsLowPriorityURL reports whether the URL belongs to a page class that
// never carries location data (careers, investor relations, legal, carts).
func IsLowPriorityURL(rawURL string) bool {
	return anyMatch(lowPriorityPatterns, rawURL)
}

// IsToolHost reports whether the URL lives on a tool subdomain such as
// tools.example.com or locator.example.com.
func IsToolHost(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, marker := range toolHostMarkers {
		if strings.HasPrefix(host, marker) {
			return true
		}
	}
	return false
}

// IsPDFMapURL reports whether the URL is a PDF that looks like a service
// map or facility directory.
func IsPDFMapURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if !strings.Contains(lower, ".pdf") {
		return false
	}
	for _, kw := range pdfMapKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
