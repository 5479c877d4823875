package render

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config carries the browser knobs.
type Config struct {
	Headless    bool
	NavTimeout  time.Duration
	SettleDelay time.Duration
	ScrollDelay time.Duration
	UserAgents  []string
}

// ChromeBrowser owns a single Chrome process shared by all sessions.
// Each session is an isolated incognito-style browser context on top of it.
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         Config
	logger      *zap.Logger
	uaIndex     atomic.Uint64
}

// DefaultUserAgents is the built-in rotation list: current Chrome, Safari,
// and Firefox on the two desktop platforms carrier sites actually serve.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}

// NewChromeBrowser starts the shared Chrome allocator.
func NewChromeBrowser(cfg Config, logger *zap.Logger) (*ChromeBrowser, error) {
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeBrowser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// NewSession opens a fresh browser context. The first session started from
// an allocator also launches the Chrome process.
func (b *ChromeBrowser) NewSession(ctx context.Context) (Session, error) {
	browserCtx, browserCancel := chromedp.NewContext(b.allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		return nil, fmt.Errorf("start browser context: %w", err)
	}

	ua := b.nextUserAgent()
	return &chromeSession{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		cfg:           b.cfg,
		userAgent:     ua,
		logger:        b.logger,
	}, nil
}

// Close shuts down Chrome. Sessions must be closed first.
func (b *ChromeBrowser) Close() {
	b.allocCancel()
}

// nextUserAgent rotates through the configured agents so consecutive
// sessions do not present an identical fingerprint.
func (b *ChromeBrowser) nextUserAgent() string {
	n := b.uaIndex.Add(1) - 1
	return b.cfg.UserAgents[n%uint64(len(b.cfg.UserAgents))]
}

type chromeSession struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	cfg           Config
	userAgent     string
	logger        *zap.Logger
	closeOnce     sync.Once
}

func (s *chromeSession) Close() {
	s.closeOnce.Do(s.browserCancel)
}

// Fetch navigates to rawURL in a fresh tab and returns the rendered DOM,
// the page title, and every anchor href present after JavaScript ran.
func (s *chromeSession) Fetch(ctx context.Context, rawURL string, opts Options) (Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	recordResponse(tabCtx, meta)

	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(s.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if opts.Settle {
		tasks = append(tasks,
			chromedp.Sleep(s.cfg.SettleDelay),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(s.cfg.ScrollDelay),
		)
	}

	var html, title string
	var links []string
	tasks = append(tasks,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Evaluate(`Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`, &links),
	)

	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return Page{}, fmt.Errorf("render %s: %w", rawURL, err)
	}

	status := meta.statusCode
	if status == 0 {
		// Some navigations (cache hits, interrupted listeners) never surface
		// a document response event. HTML in hand means the page loaded.
		status = http.StatusOK
	}

	return Page{
		URL:        rawURL,
		FinalURL:   meta.finalURL(rawURL),
		StatusCode: status,
		Title:      title,
		HTML:       html,
		Links:      links,
	}, nil
}

type responseMeta struct {
	once       sync.Once
	statusCode int
	headers    http.Header
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{headers: make(http.Header)}
}

func (m *responseMeta) finalURL(raw string) string {
	if m.url == "" {
		return raw
	}
	return m.url
}

func recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
			meta.url = resp.Response.URL
			for k, v := range resp.Response.Headers {
				meta.headers.Add(k, fmt.Sprint(v))
			}
		})
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
