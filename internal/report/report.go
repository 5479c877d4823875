// Package report renders site classification results into the modality
// report consumed by the extraction team: a readable text summary plus a
// machine-readable JSON twin.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fleetops/locationscout/internal/classifier"
)

type pageJSON struct {
	URL     string              `json:"url"`
	Title   string              `json:"title"`
	Score   int                 `json:"score"`
	Signals []classifier.Signal `json:"signals"`
}

type carrierJSON struct {
	CarrierName   string         `json:"carrier_name"`
	Domain        string         `json:"domain"`
	TotalPages    int            `json:"total_pages"`
	LocationPages int            `json:"location_pages"`
	Modalities    map[string]int `json:"modalities_found"`
	Approach      string         `json:"recommended_approach"`
	TopPages      []pageJSON     `json:"top_pages"`
}

// Write renders reports to txtPath and its ".json" sibling. threshold is
// echoed into the header so a reader knows what "location page" meant for
// this run.
func Write(reports map[string]classifier.SiteReport, threshold int, txtPath string) error {
	if err := os.MkdirAll(filepath.Dir(txtPath), 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	if err := os.WriteFile(txtPath, []byte(renderText(reports, threshold)), 0o644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	jsonPath := strings.TrimSuffix(txtPath, filepath.Ext(txtPath)) + ".json"
	data, err := json.MarshalIndent(toJSON(reports), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}

func renderText(reports map[string]classifier.SiteReport, threshold int) string {
	rule := strings.Repeat("=", 80)
	var b strings.Builder

	carriersWithData := 0
	modalityCarriers := make(map[string]int)
	for _, r := range reports {
		if r.LocationPages > 0 {
			carriersWithData++
		}
		for modality := range r.ModalityCounts {
			modalityCarriers[modality]++
		}
	}

	fmt.Fprintf(&b, "%s\nLOCATION DATA MODALITY REPORT\nScore threshold: %d+ points\n%s\n\n", rule, threshold, rule)
	fmt.Fprintf(&b, "Total Carriers Analyzed: %d\n", len(reports))
	fmt.Fprintf(&b, "Carriers with Location Pages: %d\n\n", carriersWithData)

	b.WriteString("MODALITY SUMMARY (carriers using each type):\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, m := range sortedByCount(modalityCarriers) {
		fmt.Fprintf(&b, "  %s: %d carriers\n", m, modalityCarriers[m])
	}

	fmt.Fprintf(&b, "\n%s\nCARRIER DETAILS\n%s\n", rule, rule)

	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := reports[name]
		fmt.Fprintf(&b, "\n### %s (%s)\n", name, r.Domain)
		fmt.Fprintf(&b, "Total pages: %d\n", r.TotalPages)
		fmt.Fprintf(&b, "Location pages (score >= %d): %d\n", threshold, r.LocationPages)
		if len(r.ModalityCounts) > 0 {
			fmt.Fprintf(&b, "Modalities: %s\n", formatModalities(r.ModalityCounts))
		} else {
			b.WriteString("Modalities: None detected\n")
		}
		fmt.Fprintf(&b, "Approach: %s\n", r.Recommendation)

		if len(r.TopPages) > 0 {
			b.WriteString("Top location pages:\n")
			for _, page := range r.TopPages[:min(5, len(r.TopPages))] {
				label := page.Title
				if runes := []rune(label); len(runes) > 40 {
					label = string(runes[:40]) + "..."
				}
				if label == "" {
					label = truncate(page.URL, 40)
				}
				fmt.Fprintf(&b, "  - [%dpts] %s\n", page.Score, label)
				fmt.Fprintf(&b, "    Signals: %s\n", formatSignals(page.Signals))
			}
		}
	}
	return b.String()
}

func toJSON(reports map[string]classifier.SiteReport) map[string]carrierJSON {
	out := make(map[string]carrierJSON, len(reports))
	for name, r := range reports {
		top := make([]pageJSON, 0, min(10, len(r.TopPages)))
		for _, page := range r.TopPages[:min(10, len(r.TopPages))] {
			signals := make([]classifier.Signal, 0, len(page.Signals))
			for _, s := range page.Signals {
				if s.Points > 0 {
					signals = append(signals, s)
				}
			}
			top = append(top, pageJSON{
				URL:     page.URL,
				Title:   page.Title,
				Score:   page.Score,
				Signals: signals,
			})
		}
		out[name] = carrierJSON{
			CarrierName:   r.Carrier,
			Domain:        r.Domain,
			TotalPages:    r.TotalPages,
			LocationPages: r.LocationPages,
			Modalities:    r.ModalityCounts,
			Approach:      r.Recommendation,
			TopPages:      top,
		}
	}
	return out
}

// sortedByCount orders modalities most common first, name as tiebreaker.
func sortedByCount(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func formatModalities(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, k := range sortedByCount(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func formatSignals(signals []classifier.Signal) string {
	var parts []string
	for _, s := range signals {
		if s.Points > 0 {
			parts = append(parts, fmt.Sprintf("%s(%d)", s.Kind, s.Points))
		}
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s to at most n runes without splitting a multibyte
// character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
