package classifier

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/fleetops/locationscout/internal/urlutil"
)

var (
	// Full US street address and bare "City, ST 12345" forms.
	addressFullRe = regexp.MustCompile(`(?i)\d{1,5}\s+[\w\s]+(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Boulevard|Blvd|Way|Lane|Ln|Highway|Hwy|Parkway|Pkwy)\.?[,\s]+[\w\s]+,?\s*[A-Z]{2}\s*\d{5}`)
	addressCityRe = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*,\s*[A-Z]{2}\s+\d{5}`)

	latAttrRe    = regexp.MustCompile(`(?i)(?:lat|latitude)["']?\s*[:=]\s*(-?\d{1,3}\.\d{3,})`)
	latLngRe     = regexp.MustCompile(`LatLng\s*\(\s*(-?\d{1,3}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)\s*\)`)
	latLngCallRe = regexp.MustCompile(`latlng\s*\(`)

	mapsHrefRe = regexp.MustCompile(`(?i)google\.com/maps|maps\.google\.com`)

	// Boilerplate containers stripped before counting addresses. A footer
	// HQ address repeated on every page is not location evidence.
	boilerplateClassRe = regexp.MustCompile(`(?i)footer|header|nav-|navbar|menu|copyright`)
)

var errorTitles = []string{
	"404", "not found", "page not found", "error", "oops",
	"page does not exist", "page doesn't exist",
}

// locationURLKeywords let a page through the URL-context fallback. Broad
// terms like "coverage" and "office" are deliberately absent: they match
// too many corporate pages.
var locationURLKeywords = []string{
	"location", "terminal", "service-center", "service-location",
	"facility", "branch", "find-us", "depot", "yard",
	"loadboard", "load-board", "/map", "locator", "finder",
	"servicemap", "branch-locator", "store-locator",
}

var excludedPageTypes = []string{
	"quote", "get-a-quote", "instant-quote", "request-quote",
	"career", "job", "apply", "hiring",
	"login", "signin", "register", "signup",
	"blog", "news", "press-release", "article",
	"investor", "annual-report", "earnings",
	"privacy", "terms", "cookie", "legal",
	"cart", "checkout", "order",
}

var realMapEmbedPatterns = []string{
	"google.com/maps/embed",
	"/maps/d/embed",
	"maps.google.com/maps?",
	"google.com/maps?q=",
	"google.com/maps/place",
}

// googleServicePatterns are Google resources that contain "google" but are
// not maps: tag manager, fonts, recaptcha.
var googleServicePatterns = []string{
	"googletagmanager", "recaptcha", "analytics", "gtag",
	"fonts.googleapis", "ajax.googleapis",
}

var mapLibrarySignatures = []struct {
	kind       SignalKind
	name       string
	signatures []string
}{
	{SignalMapMapbox, "Mapbox", []string{"mapbox.com", "mapboxgl", "mapbox-gl"}},
	{SignalMapLeaflet, "Leaflet", []string{"leafletjs.com", "l.map", "leaflet.js"}},
	{SignalMapArcGIS, "ArcGIS", []string{"arcgis.com", "esri.com", "featureserver", "mapserver"}},
}

var finderKeywords = []string{
	"find location", "find terminal", "find facility",
	"locate", "search location", "find near", "nearby",
	"service center locator", "terminal locator",
}

var radiusKeywords = []string{"radius", "distance", "miles", "within"}

var quoteFormKeywords = []string{"quote", "lead", "contact", "order", "ship"}

var iframeLocationKeywords = []string{
	"map", "location", "store", "dealer", "terminal",
	"branch", "office", "locator",
}

var highValuePDFKeywords = []string{
	"servicemap", "service-map", "terminal-map", "location-map",
	"coverage-map", "network-map", "facility-map", "directory",
}

var regularPDFKeywords = []string{"location", "terminal", "service", "facility", "map"}

// secondaryDetectors run only after a page clears the primary gate. They
// are independent of one another, so adding a detector means appending
// here and nothing else.
var secondaryDetectors = []func(htmlText string, doc *goquery.Document) []Signal{
	func(_ string, doc *goquery.Document) []Signal {
		if s := detectJSONLD(doc); s != nil {
			return []Signal{*s}
		}
		return nil
	},
	func(htmlText string, _ *goquery.Document) []Signal { return detectInteractiveMaps(htmlText) },
	func(_ string, doc *goquery.Document) []Signal { return detectLocationIframes(doc) },
	func(_ string, doc *goquery.Document) []Signal { return detectPDFLinks(doc) },
}

func matchesIndexPattern(urlLower string) bool {
	return urlutil.IsIndexURL(urlLower)
}

func hasLocationURL(urlLower string) bool {
	for _, kw := range locationURLKeywords {
		if strings.Contains(urlLower, kw) {
			return true
		}
	}
	return false
}

func isErrorPage(htmlText, title string, minBytes int) bool {
	titleLower := strings.ToLower(title)
	for _, err := range errorTitles {
		if strings.Contains(titleLower, err) {
			return true
		}
	}
	htmlLower := strings.ToLower(htmlText)
	if strings.Contains(htmlLower, "<h1>404") || strings.Contains(htmlLower, "<h1>page not found") {
		return true
	}
	return len(htmlText) < minBytes
}

func isNonEnglish(doc *goquery.Document) bool {
	lang := strings.ToLower(doc.Find("html").First().AttrOr("lang", ""))
	return lang != "" && !strings.HasPrefix(lang, "en")
}

func isExcludedPageType(urlLower, titleLower string) bool {
	for _, ex := range excludedPageTypes {
		if strings.Contains(urlLower, ex) || strings.Contains(titleLower, ex) {
			return true
		}
	}
	return false
}

func isLowValuePage(urlLower, titleLower string) bool {
	return urlutil.IsLowPriorityURL(urlLower) || urlutil.IsLowPriorityURL(titleLower)
}

// detectAddresses counts distinct US addresses in the page's main content
// and returns the count with its signal, if any. Two to four addresses is
// weak evidence; five or more reads as a location listing.
func detectAddresses(doc *goquery.Document) (int, *Signal) {
	text := mainContentText(doc)

	found := make(map[string]struct{})
	for _, re := range []*regexp.Regexp{addressFullRe, addressCityRe} {
		for _, m := range re.FindAllString(text, -1) {
			clean := strings.TrimSpace(m)
			if len(clean) > 15 {
				found[clean] = struct{}{}
			}
		}
	}
	count := len(found)

	switch {
	case count >= 5:
		return count, &Signal{
			Kind:       SignalAddressList,
			Confidence: ConfidenceHigh,
			Points:     10,
			Detail:     fmt.Sprintf("%d addresses found - location listing page", count),
			Evidence:   sampleKeys(found, 3),
		}
	case count >= 2:
		return count, &Signal{
			Kind:       SignalAddressPair,
			Confidence: ConfidenceMedium,
			Points:     3,
			Detail:     fmt.Sprintf("%d addresses found", count),
			Evidence:   sampleKeys(found, 2),
		}
	}
	return count, nil
}

// mainContentText strips structural and class-marked boilerplate, then
// flattens the remaining text with space separators so address regexes
// do not run across element boundaries.
func mainContentText(doc *goquery.Document) string {
	clone := goquery.CloneDocument(doc)
	clone.Find("header, footer, nav").Remove()
	clone.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		if boilerplateClassRe.MatchString(sel.AttrOr("class", "")) {
			sel.Remove()
		}
	})

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, node := range clone.Selection.Nodes {
		walk(node)
	}
	return sb.String()
}

// detectCoordinates counts distinct latitude values and LatLng pairs.
func detectCoordinates(htmlText string) (int, *Signal) {
	lats := make(map[string]struct{})
	for _, m := range latAttrRe.FindAllStringSubmatch(htmlText, -1) {
		lats[m[1]] = struct{}{}
	}
	pairs := make(map[string]struct{})
	for _, m := range latLngRe.FindAllStringSubmatch(htmlText, -1) {
		pairs[m[1]+","+m[2]] = struct{}{}
	}
	count := len(lats) + len(pairs)

	switch {
	case count >= 3:
		return count, &Signal{
			Kind:       SignalCoordinateData,
			Confidence: ConfidenceHigh,
			Points:     8,
			Detail:     fmt.Sprintf("%d coordinate markers found", count),
		}
	case count >= 1:
		return count, &Signal{
			Kind:       SignalCoordinateData,
			Confidence: ConfidenceMedium,
			Points:     2,
			Detail:     fmt.Sprintf("%d coordinate(s) found", count),
		}
	}
	return count, nil
}

// detectGoogleMaps recognizes genuine map embeds, map links, and uses of
// the Maps JavaScript API. A single pin is worth little: one map showing
// the corporate HQ says nothing about the facility network.
func detectGoogleMaps(htmlText string, doc *goquery.Document) *Signal {
	htmlLower := strings.ToLower(htmlText)

	hasRealMap := false
	for _, p := range realMapEmbedPatterns {
		if strings.Contains(htmlLower, p) {
			hasRealMap = true
			break
		}
	}

	mapsLinkCount := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if mapsHrefRe.MatchString(sel.AttrOr("href", "")) {
			mapsLinkCount++
		}
	})

	if hasRealMap {
		var embed *Signal
		doc.Find("iframe").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			src := strings.ToLower(sel.AttrOr("src", ""))
			matched := false
			for _, p := range realMapEmbedPatterns {
				if strings.Contains(src, p) {
					matched = true
					break
				}
			}
			if !matched {
				return true
			}
			for _, e := range googleServicePatterns {
				if strings.Contains(src, e) {
					return true
				}
			}
			points, conf := 3, ConfidenceMedium
			if mapsLinkCount >= 3 {
				points, conf = 5, ConfidenceHigh
			}
			embed = &Signal{
				Kind:       SignalMapsEmbed,
				Confidence: conf,
				Points:     points,
				Detail:     fmt.Sprintf("Google Maps embed iframe (links=%d)", mapsLinkCount),
				Evidence:   truncate(src, 80),
			}
			return false
		})
		if embed != nil {
			return embed
		}

		if mapsLinkCount >= 3 {
			return &Signal{
				Kind:       SignalMapsLink,
				Confidence: ConfidenceHigh,
				Points:     5,
				Detail:     fmt.Sprintf("%d Google Maps links", mapsLinkCount),
			}
		}
		if mapsLinkCount == 1 {
			return &Signal{
				Kind:       SignalMapsLink,
				Confidence: ConfidenceLow,
				Points:     1,
				Detail:     "single Google Maps link (likely HQ only)",
			}
		}
	}

	if strings.Contains(htmlLower, "maps.googleapis.com/maps/api/js") {
		initPatterns := []string{
			"new google.maps.map", "google.maps.marker",
			"google.maps.infowindow", "initmap", "mapinit", "loadmap",
		}
		initialized := false
		for _, p := range initPatterns {
			if strings.Contains(htmlLower, p) {
				initialized = true
				break
			}
		}
		if initialized {
			markerCount := strings.Count(htmlLower, "google.maps.marker") +
				strings.Count(htmlLower, "addmarker") +
				strings.Count(htmlLower, "new marker")
			latLngCount := len(latLngCallRe.FindAllString(htmlLower, -1))

			if markerCount >= 3 || latLngCount >= 3 {
				return &Signal{
					Kind:       SignalMapsAPI,
					Confidence: ConfidenceHigh,
					Points:     5,
					Detail:     fmt.Sprintf("Google Maps API with multiple markers (~%d)", max(markerCount, latLngCount)),
				}
			}
			return &Signal{
				Kind:       SignalMapsAPI,
				Confidence: ConfidenceLow,
				Points:     2,
				Detail:     "Google Maps API (possibly single marker)",
			}
		}
	}
	return nil
}

// detectFinderForm recognizes location finder forms without tripping on
// quote forms, which also ask for a ZIP code.
func detectFinderForm(doc *goquery.Document) *Signal {
	var found *Signal
	doc.Find("form").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		formHTML, err := goquery.OuterHtml(sel)
		if err != nil {
			return true
		}
		formHTML = strings.ToLower(formHTML)
		formText := strings.ToLower(sel.Text())
		formAction := strings.ToLower(sel.AttrOr("action", ""))

		hasFinderLanguage := false
		for _, kw := range finderKeywords {
			if strings.Contains(formHTML, kw) || strings.Contains(formText, kw) {
				hasFinderLanguage = true
				break
			}
		}
		hasRadius := false
		for _, kw := range radiusKeywords {
			if strings.Contains(formHTML, kw) {
				hasRadius = true
				break
			}
		}
		isQuoteForm := false
		for _, kw := range quoteFormKeywords {
			if strings.Contains(formHTML, kw) || strings.Contains(formAction, kw) {
				isQuoteForm = true
				break
			}
		}

		switch {
		case hasFinderLanguage && !isQuoteForm:
			found = &Signal{
				Kind:       SignalLocationFinder,
				Confidence: ConfidenceHigh,
				Points:     8,
				Detail:     "location finder/locator form",
			}
			return false
		case hasRadius && !isQuoteForm:
			found = &Signal{
				Kind:       SignalLocationSearch,
				Confidence: ConfidenceMedium,
				Points:     4,
				Detail:     "search form with radius/distance",
			}
			return false
		}
		return true
	})
	return found
}

// detectJSONLD looks for structured data carrying several postal
// addresses. One streetAddress plus one postalCode is just the company HQ.
func detectJSONLD(doc *goquery.Document) *Signal {
	locationCount := 0
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return
		}
		lower := strings.ToLower(string(raw))
		locationCount += strings.Count(lower, `"streetaddress"`)
		locationCount += strings.Count(lower, `"postalcode"`)
	})

	if locationCount >= 4 {
		return &Signal{
			Kind:       SignalJSONLD,
			Confidence: ConfidenceHigh,
			Points:     5,
			Detail:     fmt.Sprintf("JSON-LD with %d+ locations", locationCount/2),
		}
	}
	return nil
}

func detectInteractiveMaps(htmlText string) []Signal {
	htmlLower := strings.ToLower(htmlText)
	var signals []Signal
	for _, lib := range mapLibrarySignatures {
		for _, sig := range lib.signatures {
			if strings.Contains(htmlLower, sig) {
				signals = append(signals, Signal{
					Kind:       lib.kind,
					Confidence: ConfidenceHigh,
					Points:     3,
					Detail:     lib.name + " map detected",
					Evidence:   sig,
				})
				break
			}
		}
	}
	return signals
}

func detectLocationIframes(doc *goquery.Document) []Signal {
	count := 0
	var first string
	doc.Find("iframe").Each(func(_ int, sel *goquery.Selection) {
		src := strings.ToLower(sel.AttrOr("src", ""))
		if strings.Contains(src, "google.com/maps") || strings.Contains(src, "maps.google") {
			return
		}
		title := strings.ToLower(sel.AttrOr("title", ""))
		name := strings.ToLower(sel.AttrOr("name", ""))
		for _, kw := range iframeLocationKeywords {
			if strings.Contains(src, kw) || strings.Contains(title, kw) || strings.Contains(name, kw) {
				if first == "" {
					first = src
				}
				count++
				return
			}
		}
	})
	if count == 0 {
		return nil
	}
	return []Signal{{
		Kind:       SignalLocationIframe,
		Confidence: ConfidenceMedium,
		Points:     3,
		Detail:     fmt.Sprintf("%d location-related iframe(s)", count),
		Evidence:   truncate(first, 60),
	}}
}

func detectPDFLinks(doc *goquery.Document) []Signal {
	var highValue, regular []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.ToLower(sel.AttrOr("href", ""))
		if !strings.Contains(href, ".pdf") {
			return
		}
		for _, kw := range highValuePDFKeywords {
			if strings.Contains(href, kw) {
				highValue = append(highValue, href)
				return
			}
		}
		text := strings.ToLower(sel.Text())
		for _, kw := range regularPDFKeywords {
			if strings.Contains(href, kw) || strings.Contains(text, kw) {
				regular = append(regular, href)
				return
			}
		}
	})

	if len(highValue) > 0 {
		return []Signal{{
			Kind:       SignalPDFServiceMap,
			Confidence: ConfidenceHigh,
			Points:     8,
			Detail:     "service/location map PDF",
			Evidence:   truncate(highValue[0], 50),
		}}
	}
	if len(regular) > 0 {
		return []Signal{{
			Kind:       SignalPDFLocations,
			Confidence: ConfidenceMedium,
			Points:     2,
			Detail:     fmt.Sprintf("%d location-related PDF(s)", len(regular)),
			Evidence:   truncate(regular[0], 50),
		}}
	}
	return nil
}

func sampleKeys(set map[string]struct{}, n int) string {
	out := make([]string, 0, n)
	for k := range set {
		out = append(out, k)
		if len(out) == n {
			break
		}
	}
	return strings.Join(out, "; ")
}
