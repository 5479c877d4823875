package crawler

import "container/list"

// Priority orders frontier entries. Index pages jump the queue because
// one good index page usually makes the rest of the crawl unnecessary.
type Priority int

const (
	// PriorityOrdinary is the default tier for followed links.
	PriorityOrdinary Priority = iota
	// PriorityTool covers tool subdomains such as locator.example.com.
	PriorityTool
	// PriorityIndex covers location index pages and service-map PDFs.
	PriorityIndex
)

func (p Priority) String() string {
	switch p {
	case PriorityIndex:
		return "index"
	case PriorityTool:
		return "tool"
	default:
		return "ordinary"
	}
}

// Frontier is the per-site URL queue. It holds three tiers: index URLs are
// popped newest-first so a freshly discovered index page is fetched
// immediately, while tool and ordinary URLs keep discovery order. A URL is
// admitted at most once for the lifetime of the frontier.
type Frontier struct {
	index    *list.List
	tool     *list.List
	ordinary *list.List
	seen     map[string]struct{}
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		index:    list.New(),
		tool:     list.New(),
		ordinary: list.New(),
		seen:     make(map[string]struct{}),
	}
}

// Push adds a URL at the given priority. Duplicates are dropped, including
// URLs that were already popped.
func (f *Frontier) Push(url string, p Priority) bool {
	if _, dup := f.seen[url]; dup {
		return false
	}
	f.seen[url] = struct{}{}
	switch p {
	case PriorityIndex:
		f.index.PushFront(url)
	case PriorityTool:
		f.tool.PushBack(url)
	default:
		f.ordinary.PushBack(url)
	}
	return true
}

// Pop removes and returns the next URL, highest tier first.
func (f *Frontier) Pop() (string, Priority, bool) {
	for _, tier := range []struct {
		l *list.List
		p Priority
	}{
		{f.index, PriorityIndex},
		{f.tool, PriorityTool},
		{f.ordinary, PriorityOrdinary},
	} {
		if front := tier.l.Front(); front != nil {
			tier.l.Remove(front)
			return front.Value.(string), tier.p, true
		}
	}
	return "", PriorityOrdinary, false
}

// Len reports how many URLs are still queued.
func (f *Frontier) Len() int {
	return f.index.Len() + f.tool.Len() + f.ordinary.Len()
}

// Seen reports whether the URL was ever pushed.
func (f *Frontier) Seen(url string) bool {
	_, ok := f.seen[url]
	return ok
}
