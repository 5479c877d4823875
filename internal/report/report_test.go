package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/locationscout/internal/classifier"
)

func sampleReports() map[string]classifier.SiteReport {
	return map[string]classifier.SiteReport{
		"Acme Freight": {
			Carrier:       "Acme Freight",
			Domain:        "acmefreight.com",
			TotalPages:    42,
			LocationPages: 3,
			ModalityCounts: map[string]int{
				"ADDRESS_LIST":      2,
				"GOOGLE_MAPS_EMBED": 1,
			},
			Recommendation: "Parse addresses from HTML; Extract from Google Maps embed",
			TopPages: []classifier.PageClassification{
				{
					URL:      "https://acmefreight.com/locations",
					Title:    "Our Terminal Network",
					Score:    25,
					Accepted: true,
					Signals: []classifier.Signal{
						{Kind: classifier.SignalIndexPage, Confidence: classifier.ConfidenceHigh, Points: 15},
						{Kind: classifier.SignalAddressList, Confidence: classifier.ConfidenceHigh, Points: 10},
						{Kind: classifier.SignalNonUSPath, Confidence: classifier.ConfidenceMedium, Points: -3},
					},
				},
				{
					URL:      "https://acmefreight.com/contact",
					Title:    "Contact",
					Score:    5,
					Accepted: true,
					Signals: []classifier.Signal{
						{Kind: classifier.SignalMapsEmbed, Confidence: classifier.ConfidenceHigh, Points: 5},
					},
				},
			},
		},
		"Empty Lines": {
			Carrier:        "Empty Lines",
			Domain:         "emptylines.com",
			TotalPages:     10,
			LocationPages:  0,
			ModalityCounts: map[string]int{},
			Recommendation: "No location data detected - manual review needed",
		},
	}
}

func TestWriteTextReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modality_report.txt")
	require.NoError(t, Write(sampleReports(), 3, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "LOCATION DATA MODALITY REPORT")
	assert.Contains(t, text, "Score threshold: 3+ points")
	assert.Contains(t, text, "Total Carriers Analyzed: 2")
	assert.Contains(t, text, "Carriers with Location Pages: 1")
	assert.Contains(t, text, "ADDRESS_LIST: 1 carriers")
	assert.Contains(t, text, "### Acme Freight (acmefreight.com)")
	assert.Contains(t, text, "[25pts] Our Terminal Network")
	assert.Contains(t, text, "Signals: INDEX_PAGE(15), ADDRESS_LIST(10)")
	assert.Contains(t, text, "### Empty Lines (emptylines.com)")
	assert.Contains(t, text, "Modalities: None detected")

	// Carrier sections come out alphabetically.
	assert.Less(t, strings.Index(text, "### Acme Freight"), strings.Index(text, "### Empty Lines"))
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modality_report.txt")
	require.NoError(t, Write(sampleReports(), 3, path))

	raw, err := os.ReadFile(filepath.Join(dir, "modality_report.json"))
	require.NoError(t, err)

	var decoded map[string]carrierJSON
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)

	acme := decoded["Acme Freight"]
	assert.Equal(t, "Acme Freight", acme.CarrierName)
	assert.Equal(t, "acmefreight.com", acme.Domain)
	assert.Equal(t, 42, acme.TotalPages)
	assert.Equal(t, 3, acme.LocationPages)
	assert.Equal(t, map[string]int{"ADDRESS_LIST": 2, "GOOGLE_MAPS_EMBED": 1}, acme.Modalities)

	// Page order survives the round trip and penalty signals are dropped.
	require.Len(t, acme.TopPages, 2)
	assert.Equal(t, "https://acmefreight.com/locations", acme.TopPages[0].URL)
	assert.Equal(t, "https://acmefreight.com/contact", acme.TopPages[1].URL)
	require.Len(t, acme.TopPages[0].Signals, 2)
	for _, s := range acme.TopPages[0].Signals {
		assert.Positive(t, s.Points)
	}
}

func TestWriteCapsTopPagesAtTen(t *testing.T) {
	reports := sampleReports()
	r := reports["Acme Freight"]
	for i := 0; i < 15; i++ {
		r.TopPages = append(r.TopPages, classifier.PageClassification{
			URL:   "https://acmefreight.com/page",
			Score: 3,
		})
	}
	reports["Acme Freight"] = r

	dir := t.TempDir()
	require.NoError(t, Write(reports, 3, filepath.Join(dir, "report.txt")))

	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	var decoded map[string]carrierJSON
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded["Acme Freight"].TopPages, 10)
}

func TestRenderTextHandlesMultibyteTitles(t *testing.T) {
	reports := sampleReports()
	r := reports["Acme Freight"]
	r.TopPages[0].Title = strings.Repeat("Ubicación y Terminales ", 4)
	reports["Acme Freight"] = r

	text := renderText(reports, 3)
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, "Ubicación y Terminales")
	assert.Contains(t, text, "...")
}
