// Package carriers loads the carrier roster from the source spreadsheet.
package carriers

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Carrier is one row of the roster: a company and its website.
type Carrier struct {
	Name    string
	Website string
}

// Config names the spreadsheet and its columns.
type Config struct {
	File       string
	Sheet      string // empty means the first sheet
	NameColumn string
	URLColumn  string
}

// Load reads the roster. Rows without a usable website are dropped;
// websites are normalized to a scheme-qualified URL without a trailing
// slash so they can seed the crawler directly.
func Load(cfg Config) ([]Carrier, error) {
	f, err := excelize.OpenFile(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("open carriers file: %w", err)
	}
	defer f.Close()

	sheet := cfg.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	nameCol, urlCol := -1, -1
	for i, header := range rows[0] {
		switch strings.TrimSpace(header) {
		case cfg.NameColumn:
			nameCol = i
		case cfg.URLColumn:
			urlCol = i
		}
	}
	if nameCol < 0 || urlCol < 0 {
		return nil, fmt.Errorf("sheet %q missing columns %q and/or %q", sheet, cfg.NameColumn, cfg.URLColumn)
	}

	var out []Carrier
	for _, row := range rows[1:] {
		name := cell(row, nameCol)
		website := cleanWebsite(cell(row, urlCol))
		if website == "" {
			continue
		}
		out = append(out, Carrier{Name: name, Website: website})
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// cleanWebsite normalizes a spreadsheet website cell. Cells sometimes hold
// several comma-separated URLs; the first one wins.
func cleanWebsite(raw string) string {
	if raw == "" || strings.EqualFold(raw, "nan") {
		return ""
	}
	if comma := strings.Index(raw, ","); comma >= 0 {
		raw = strings.TrimSpace(raw[:comma])
	}
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http") {
		raw = "https://" + raw
	}
	return strings.TrimRight(raw, "/")
}
