package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(Config{
		MinHTMLBytes:   100,
		ScoreThreshold: 3,
		TopPages:       20,
		NonUSURLPatterns: []string{
			`/eu/`, `/europe/`, `/fr/`, `/de/`, `\.co\.uk/`, `europe\.`,
		},
		USURLPatterns: []string{
			`/us/`, `/en-us/`, `/united-states/`, `/en/`, `\.com/`, `\.com$`,
		},
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func wrapHTML(title, body string) string {
	return fmt.Sprintf(`<html lang="en"><head><title>%s</title></head><body>
<p>Welcome to our freight services. We move full truckload and LTL shipments
across the country with a modern fleet and experienced drivers.</p>
%s
</body></html>`, title, body)
}

func signalKinds(page PageClassification) []SignalKind {
	kinds := make([]SignalKind, 0, len(page.Signals))
	for _, s := range page.Signals {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

func TestErrorTitleDisqualifies(t *testing.T) {
	c := newTestClassifier(t)
	page := c.ClassifyPage(wrapHTML("404 - Page Not Found", ""), "https://x.com/locations", "")

	assert.False(t, page.Accepted)
	assert.Zero(t, page.Score)
	require.Len(t, page.Signals, 1)
	assert.Equal(t, SignalDisqualified, page.Signals[0].Kind)
}

func TestShortHTMLDisqualifies(t *testing.T) {
	c, err := New(Config{}, zap.NewNop()) // defaults: 2000-byte floor
	require.NoError(t, err)

	page := c.ClassifyPage("<html><body>tiny</body></html>", "https://x.com/locations", "")
	assert.False(t, page.Accepted)
	assert.Equal(t, SignalDisqualified, page.Signals[0].Kind)
}

func TestNonEnglishDisqualifiesUnlessLocationURL(t *testing.T) {
	c := newTestClassifier(t)
	html := strings.Replace(wrapHTML("Startseite", ""), `lang="en"`, `lang="de"`, 1)

	page := c.ClassifyPage(html, "https://x.com/ueber-uns", "")
	assert.Equal(t, SignalDisqualified, page.Signals[0].Kind)

	// A location-flavored URL overrides the language check.
	page = c.ClassifyPage(html, "https://x.com/terminal-chicago", "")
	assert.NotEqual(t, SignalDisqualified, page.Signals[0].Kind)
}

func TestExcludedPageTypeDisqualifies(t *testing.T) {
	c := newTestClassifier(t)

	page := c.ClassifyPage(wrapHTML("Get a Freight Rate", ""), "https://x.com/instant-quote", "")
	assert.Equal(t, SignalDisqualified, page.Signals[0].Kind)

	page = c.ClassifyPage(wrapHTML("Careers at Example", ""), "https://x.com/about", "")
	assert.Equal(t, SignalDisqualified, page.Signals[0].Kind)
}

func TestAddressListAccepted(t *testing.T) {
	c := newTestClassifier(t)
	body := `<main><ul>
<li>Dallas, TX 75201</li>
<li>Austin, TX 73301</li>
<li>Chicago, IL 60601</li>
<li>Memphis, TN 38101</li>
<li>Phoenix, AZ 85001</li>
</ul></main>`
	page := c.ClassifyPage(wrapHTML("Our Network", body), "https://x.com/network", "")

	assert.True(t, page.Accepted)
	assert.GreaterOrEqual(t, page.Score, 10)
	assert.Contains(t, signalKinds(page), SignalAddressList)
}

func TestFooterAddressesIgnored(t *testing.T) {
	c := newTestClassifier(t)
	body := `<footer>
<p>Dallas, TX 75201</p><p>Austin, TX 73301</p><p>Chicago, IL 60601</p>
<p>Memphis, TN 38101</p><p>Phoenix, AZ 85001</p>
</footer>
<div class="footer-secondary"><p>Omaha, NE 68102</p></div>`
	page := c.ClassifyPage(wrapHTML("Home", body), "https://x.com/home", "")

	assert.False(t, page.Accepted)
	assert.NotContains(t, signalKinds(page), SignalAddressList)
	assert.NotContains(t, signalKinds(page), SignalAddressPair)
}

func TestAddressPairIsNotPrimary(t *testing.T) {
	c := newTestClassifier(t)
	body := `<main><p>Dallas, TX 75201</p><p>Austin, TX 73301</p></main>`
	page := c.ClassifyPage(wrapHTML("Home", body), "https://x.com/home", "")

	// Two addresses alone do not unlock scoring on a neutral URL.
	assert.False(t, page.Accepted)
	assert.Zero(t, page.Score)
}

func TestIndexURLIsPrimary(t *testing.T) {
	c := newTestClassifier(t)
	page := c.ClassifyPage(wrapHTML("Service Centers", ""), "https://x.com/service-centers", "")

	assert.True(t, page.Accepted)
	assert.Equal(t, 15, page.Score)
	assert.Contains(t, signalKinds(page), SignalIndexPage)
}

func TestCoordinateDataIsPrimary(t *testing.T) {
	c := newTestClassifier(t)
	body := `<script>
var sites = [{lat: 32.7767, lng: -96.7970},
             {lat: 30.2672, lng: -97.7431},
             {lat: 41.8781, lng: -87.6298}];
</script>`
	page := c.ClassifyPage(wrapHTML("Interactive Map", body), "https://x.com/our-map-page", "")

	assert.True(t, page.Accepted)
	assert.Contains(t, signalKinds(page), SignalCoordinateData)
	assert.GreaterOrEqual(t, page.Score, 8)
}

func TestSingleCoordinateIsWeak(t *testing.T) {
	c := newTestClassifier(t)
	body := `<script>var hq = {lat: 32.7767, lng: -96.7970};</script>`
	page := c.ClassifyPage(wrapHTML("Home", body), "https://x.com/home", "")

	assert.False(t, page.Accepted)
}

func TestSingleMapsEmbedIsNotPrimary(t *testing.T) {
	c := newTestClassifier(t)
	body := `<iframe src="https://www.google.com/maps/embed?pb=!1m18!HQ"></iframe>`
	page := c.ClassifyPage(wrapHTML("About Us", body), "https://x.com/company", "")

	assert.False(t, page.Accepted, "one embed is probably just the HQ pin")
	assert.Contains(t, signalKinds(page), SignalMapsEmbed)
	assert.Zero(t, page.Score)
}

func TestMapsEmbedWithManyLinksIsPrimary(t *testing.T) {
	c := newTestClassifier(t)
	body := `<iframe src="https://www.google.com/maps/embed?pb=!1m18"></iframe>
<a href="https://www.google.com/maps/place/Dallas">Dallas</a>
<a href="https://www.google.com/maps/place/Austin">Austin</a>
<a href="https://maps.google.com/maps?q=Chicago">Chicago</a>`
	page := c.ClassifyPage(wrapHTML("Our Facilities Map", body), "https://x.com/company", "")

	assert.True(t, page.Accepted)
	assert.Equal(t, 5, page.Score)
}

func TestTagManagerIsNotAMap(t *testing.T) {
	c := newTestClassifier(t)
	body := `<script src="https://www.googletagmanager.com/gtag/js?id=G-1"></script>`
	page := c.ClassifyPage(wrapHTML("Home", body), "https://x.com/home", "")

	assert.NotContains(t, signalKinds(page), SignalMapsEmbed)
	assert.NotContains(t, signalKinds(page), SignalMapsAPI)
}

func TestMapsAPIWithMultipleMarkersIsPrimary(t *testing.T) {
	c := newTestClassifier(t)
	body := `<script src="https://maps.googleapis.com/maps/api/js?key=k"></script>
<script>
function initMap() {
  new google.maps.Marker({position: new google.maps.LatLng(32.7, -96.7)});
  new google.maps.Marker({position: new google.maps.LatLng(30.2, -97.7)});
  new google.maps.Marker({position: new google.maps.LatLng(41.8, -87.6)});
}
</script>`
	page := c.ClassifyPage(wrapHTML("Find a Yard", body), "https://x.com/company", "")

	assert.True(t, page.Accepted)
	assert.Contains(t, signalKinds(page), SignalMapsAPI)
}

func TestFinderFormIsPrimary(t *testing.T) {
	c := newTestClassifier(t)
	body := `<form action="/locator-results">
<label>Find Location Near You</label>
<input type="text" name="zip" placeholder="ZIP code">
<button>Search</button>
</form>`
	page := c.ClassifyPage(wrapHTML("Terminal Locator", body), "https://x.com/company", "")

	assert.True(t, page.Accepted)
	assert.Contains(t, signalKinds(page), SignalLocationFinder)
	assert.GreaterOrEqual(t, page.Score, 8)
}

func TestQuoteFormIsNotAFinder(t *testing.T) {
	c := newTestClassifier(t)
	body := `<form action="/request-a-rate">
<label>Find Location Near You</label>
<input name="zip"><input name="shipment-weight">
<button>Get My Shipping Rate</button>
</form>`
	// "ship" in the form body marks it as a quote funnel.
	page := c.ClassifyPage(wrapHTML("Rates", body), "https://x.com/company", "")

	assert.NotContains(t, signalKinds(page), SignalLocationFinder)
}

func TestRadiusFormScoresAsSearch(t *testing.T) {
	c := newTestClassifier(t)
	body := `<form action="/search">
<input name="zip" placeholder="Enter ZIP">
<select name="radius"><option>25</option><option>50</option></select>
</form>`
	page := c.ClassifyPage(wrapHTML("Search", body), "https://x.com/company", "")

	assert.True(t, page.Accepted)
	assert.Contains(t, signalKinds(page), SignalLocationSearch)
	assert.Equal(t, 4, page.Score)
}

func TestURLContextFallback(t *testing.T) {
	c := newTestClassifier(t)
	page := c.ClassifyPage(wrapHTML("Our Terminals", ""), "https://x.com/our-terminals", "")

	assert.True(t, page.Accepted)
	assert.Equal(t, 3, page.Score)
	assert.Equal(t, []SignalKind{SignalURLContext}, signalKinds(page))
}

func TestNeutralPageRejected(t *testing.T) {
	c := newTestClassifier(t)
	page := c.ClassifyPage(wrapHTML("Our Services", ""), "https://x.com/services-overview", "")

	assert.False(t, page.Accepted)
	assert.Equal(t, []SignalKind{SignalNoContent}, signalKinds(page))
}

func TestJSONLDLocationsAddPoints(t *testing.T) {
	c := newTestClassifier(t)
	body := `<script type="application/ld+json">
{"@graph":[
 {"@type":"LocalBusiness","address":{"streetAddress":"100 Main St","postalCode":"75201"}},
 {"@type":"LocalBusiness","address":{"streetAddress":"200 Oak Ave","postalCode":"60601"}}
]}
</script>`
	page := c.ClassifyPage(wrapHTML("Locations", body), "https://x.com/locations", "")

	assert.True(t, page.Accepted)
	assert.Contains(t, signalKinds(page), SignalJSONLD)
	assert.Equal(t, 20, page.Score) // index 15 + JSON-LD 5
}

func TestInteractiveMapLibraries(t *testing.T) {
	c := newTestClassifier(t)
	body := `<script src="https://unpkg.com/leaflet/dist/leaflet.js"></script>`
	page := c.ClassifyPage(wrapHTML("Locations", body), "https://x.com/locations", "")

	assert.Contains(t, signalKinds(page), SignalMapLeaflet)
	assert.Equal(t, 18, page.Score)
}

func TestServiceMapPDFBeatsRegularPDF(t *testing.T) {
	c := newTestClassifier(t)
	body := `<a href="/docs/servicemap.pdf">Download Service Map</a>
<a href="/docs/terminal-list.pdf">Terminal List</a>`
	page := c.ClassifyPage(wrapHTML("Coverage", body), "https://x.com/coverage", "")

	kinds := signalKinds(page)
	assert.Contains(t, kinds, SignalPDFServiceMap)
	assert.NotContains(t, kinds, SignalPDFLocations)
}

func TestRegularLocationPDF(t *testing.T) {
	c := newTestClassifier(t)
	body := `<a href="/docs/terminal-list.pdf">Terminal List</a>`
	page := c.ClassifyPage(wrapHTML("Coverage", body), "https://x.com/coverage", "")

	assert.Contains(t, signalKinds(page), SignalPDFLocations)
}

func TestLocationIframe(t *testing.T) {
	c := newTestClassifier(t)
	body := `<iframe src="https://widgets.example.net/store-locator-embed"></iframe>`
	page := c.ClassifyPage(wrapHTML("Locations", body), "https://x.com/locations", "")

	assert.Contains(t, signalKinds(page), SignalLocationIframe)
}

func TestLowValuePenaltyApplied(t *testing.T) {
	c := newTestClassifier(t)
	page := c.ClassifyPage(wrapHTML("Quarterly Results", ""), "https://x.com/locations", "")

	assert.Contains(t, signalKinds(page), SignalLowValuePage)
	assert.Equal(t, 10, page.Score) // index 15, penalty -5
}

func TestNonUSPenaltyApplied(t *testing.T) {
	c := newTestClassifier(t)
	page := c.ClassifyPage(wrapHTML("Locations", ""), "https://example.co.uk/locations", "")

	assert.Contains(t, signalKinds(page), SignalNonUSPath)
	assert.Equal(t, 12, page.Score)
}

func TestUSMarkerSuppressesNonUSPenalty(t *testing.T) {
	c := newTestClassifier(t)
	page := c.ClassifyPage(wrapHTML("Locations", ""), "https://example.com/fr/locations", "")

	// ".com/" counts as a US marker, so the regional path costs nothing.
	assert.NotContains(t, signalKinds(page), SignalNonUSPath)
}

func TestScoreNeverNegative(t *testing.T) {
	c := newTestClassifier(t)
	// URL-context page whose title draws the low-value penalty: 3 - 5.
	page := c.ClassifyPage(wrapHTML("Quarterly Results", ""), "https://x.com/depot-overview", "")

	assert.False(t, page.Accepted)
	assert.Zero(t, page.Score)
}

func TestRecoverPageURL(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "crawler marker wins",
			html: `<head><meta name="crawler-original-url" content="https://x.com/a">
<link rel="canonical" href="https://x.com/b"></head>`,
			want: "https://x.com/a",
		},
		{
			name: "canonical fallback",
			html: `<head><link rel="canonical" href="https://x.com/b">
<meta property="og:url" content="https://x.com/c"></head>`,
			want: "https://x.com/b",
		},
		{
			name: "og url fallback",
			html: `<head><meta property="og:url" content="https://x.com/c"></head>`,
			want: "https://x.com/c",
		},
		{
			name: "twitter fallback",
			html: `<head><meta name="twitter:url" content="https://x.com/d"></head>`,
			want: "https://x.com/d",
		},
		{
			name: "nothing",
			html: `<head></head>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecoverPageURL(tt.html))
		})
	}
}

func TestRecommend(t *testing.T) {
	assert.Equal(t, "No location data detected - manual review needed", Recommend(nil))

	got := Recommend(map[string]int{
		"ADDRESS_LIST":     3,
		"GOOGLE_MAPS_LINK": 1,
		"MAP_LEAFLET":      1,
	})
	assert.Contains(t, got, "Parse addresses from HTML")
	assert.Contains(t, got, "Parse Google Maps URLs")
	assert.Contains(t, got, "Query map API/data source")
}

func TestClassifySite(t *testing.T) {
	c := newTestClassifier(t)
	dir := filepath.Join(t.TempDir(), "example.com")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	write := func(name, html string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(html), 0o644))
	}

	withURL := func(url, title, body string) string {
		meta := fmt.Sprintf(`<meta name="crawler-original-url" content="%s">`, url)
		return strings.Replace(wrapHTML(title, body), "<head>", "<head>"+meta, 1)
	}

	addresses := `<main><p>Dallas, TX 75201</p><p>Austin, TX 73301</p>
<p>Chicago, IL 60601</p><p>Memphis, TN 38101</p><p>Phoenix, AZ 85001</p></main>`

	write("a.html", withURL("https://example.com/locations", "Locations", addresses))
	write("b.html", withURL("https://example.com/our-terminals", "Terminals", ""))
	write("c.html", withURL("https://example.com/services-overview", "Services", ""))
	write("d.html", withURL("https://example.com/broken", "404 Not Found", ""))
	write("notes.txt", "not html")

	report, err := c.ClassifySite("Example Freight", dir)
	require.NoError(t, err)

	assert.Equal(t, "Example Freight", report.Carrier)
	assert.Equal(t, "example.com", report.Domain)
	assert.Equal(t, 4, report.TotalPages)
	assert.Equal(t, 2, report.LocationPages)

	require.Len(t, report.TopPages, 2)
	assert.Equal(t, "https://example.com/locations", report.TopPages[0].URL)
	assert.Greater(t, report.TopPages[0].Score, report.TopPages[1].Score)

	assert.Equal(t, 1, report.ModalityCounts["INDEX_PAGE"])
	assert.Equal(t, 1, report.ModalityCounts["ADDRESS_LIST"])
	assert.Equal(t, 1, report.ModalityCounts["URL_CONTEXT"])
	assert.Contains(t, report.Recommendation, "Parse addresses from HTML")
}

func TestClassifySiteMissingDir(t *testing.T) {
	c := newTestClassifier(t)
	_, err := c.ClassifySite("X", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	title := strings.Repeat("Ubicación ", 12)

	got := truncate(title, 50)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 50, utf8.RuneCountInString(got))

	short := "Dépôt Montréal"
	assert.Equal(t, short, truncate(short, 50))
}
