package crawler

import "time"

// PageRecord describes one fetch attempt inside a site crawl.
type PageRecord struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"final_url,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Priority   string    `json:"priority"`
	Title      string    `json:"title,omitempty"`
	SavedAs    string    `json:"saved_as,omitempty"`
	Error      string    `json:"error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`

	// links carries the page's outbound anchors from fetch to enqueue;
	// they are not part of the persisted record.
	links []string
}

// Summary is the per-site crawl record written next to the saved pages.
type Summary struct {
	Site        string       `json:"site"`
	Domain      string       `json:"domain"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	PagesSaved  int          `json:"pages_saved"`
	PagesFailed int          `json:"pages_failed"`
	Budget      int          `json:"budget"`
	Pages       []PageRecord `json:"pages"`
}
