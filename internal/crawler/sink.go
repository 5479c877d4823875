package crawler

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sink persists crawl output. The classifier later reads these files back,
// so the sink embeds each page's URL into the saved HTML.
type Sink interface {
	SavePage(domain, url, html string) (string, error)
	WriteSummary(domain string, summary Summary) error
}

// FileSink writes pages under root/<domain>/. Filenames are derived from
// the URL hash so re-crawling a page overwrites its previous snapshot.
type FileSink struct {
	root string
}

// NewFileSink returns a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{root: dir}
}

// PageFileName returns the stable on-disk name for a URL.
func PageFileName(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:12] + ".html"
}

// SavePage writes the page HTML and returns the filename it was saved as.
func (s *FileSink) SavePage(domain, url, html string) (string, error) {
	dir := filepath.Join(s.root, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create site dir: %w", err)
	}
	name := PageFileName(url)
	body := injectOriginalURL(html, url)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write page %s: %w", name, err)
	}
	return name, nil
}

// WriteSummary writes the site's crawl_summary.json.
func (s *FileSink) WriteSummary(domain string, summary Summary) error {
	dir := filepath.Join(s.root, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create site dir: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(dir, "crawl_summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// injectOriginalURL embeds the source URL as a meta tag so the page's
// provenance survives the round trip through disk. Pages that already
// carry the tag are left alone.
func injectOriginalURL(html, url string) string {
	if strings.Contains(html, `name="crawler-original-url"`) {
		return html
	}
	meta := fmt.Sprintf(`<meta name="crawler-original-url" content="%s">`, url)

	lower := strings.ToLower(html)
	headAt := strings.Index(lower, "<head")
	if headAt >= 0 {
		if gt := strings.Index(html[headAt:], ">"); gt >= 0 {
			at := headAt + gt + 1
			return html[:at] + meta + html[at:]
		}
	}
	return meta + html
}
