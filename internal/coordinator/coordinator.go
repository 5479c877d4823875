// Package coordinator runs the crawl-and-classify pipeline across the
// whole carrier roster: bounded parallelism, per-site fault isolation,
// and batch checkpointing so long runs survive interruption.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/locationscout/internal/carriers"
	"github.com/fleetops/locationscout/internal/classifier"
	"github.com/fleetops/locationscout/internal/crawler"
	"github.com/fleetops/locationscout/internal/discovery"
	"github.com/fleetops/locationscout/internal/metrics"
	"github.com/fleetops/locationscout/internal/urlutil"
)

// Outcome is the terminal state of one carrier's pipeline run.
type Outcome string

const (
	// OutcomeSuccess means the classifier accepted at least one page.
	OutcomeSuccess Outcome = "success"
	// OutcomeNoLocations means the crawl worked but nothing scored.
	OutcomeNoLocations Outcome = "no_locations"
	// OutcomeError means the site failed before classification finished.
	OutcomeError Outcome = "error"
	// OutcomeSkipped means the carrier had no usable website URL.
	OutcomeSkipped Outcome = "skipped"
)

// SiteResult is the roster-level record for one carrier.
type SiteResult struct {
	Name          string   `json:"name"`
	URL           string   `json:"url,omitempty"`
	Domain        string   `json:"domain,omitempty"`
	Outcome       Outcome  `json:"outcome"`
	Error         string   `json:"error,omitempty"`
	PagesCrawled  int      `json:"pages_crawled,omitempty"`
	PagesFailed   int      `json:"pages_failed,omitempty"`
	LocationPages int      `json:"location_pages,omitempty"`
	TotalPages    int      `json:"total_pages,omitempty"`
	TopURL        string   `json:"top_url,omitempty"`
	TopScore      int      `json:"top_score,omitempty"`
	Modalities    []string `json:"modalities,omitempty"`
	Approach      string   `json:"extraction_approach,omitempty"`
	Seconds       float64  `json:"time_seconds"`
}

// Progress is a point-in-time snapshot of the run, served by the HTTP API.
type Progress struct {
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Running   int            `json:"running"`
	Outcomes  map[string]int `json:"outcomes"`
}

// Config carries the run-level knobs.
type Config struct {
	Concurrency int
	BatchSize   int
	// PagesDir is where the crawler saved pages, per domain.
	PagesDir string
}

// Coordinator drives the pipeline.
type Coordinator struct {
	cfg        Config
	discoverer *discovery.Discoverer
	crawler    *crawler.Crawler
	classifier *classifier.Classifier
	checkpoint *CheckpointStore
	met        *metrics.Metrics
	logger     *zap.Logger

	mu       sync.Mutex
	progress Progress
}

// New builds a Coordinator.
func New(cfg Config, d *discovery.Discoverer, c *crawler.Crawler, cl *classifier.Classifier, cp *CheckpointStore, met *metrics.Metrics, logger *zap.Logger) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	return &Coordinator{
		cfg:        cfg,
		discoverer: d,
		crawler:    c,
		classifier: cl,
		checkpoint: cp,
		met:        met,
		logger:     logger,
		progress:   Progress{Outcomes: make(map[string]int)},
	}
}

// Progress returns a snapshot of the current run.
func (co *Coordinator) Progress() Progress {
	co.mu.Lock()
	defer co.mu.Unlock()
	snap := co.progress
	snap.Outcomes = make(map[string]int, len(co.progress.Outcomes))
	for k, v := range co.progress.Outcomes {
		snap.Outcomes[k] = v
	}
	return snap
}

// Run processes the roster from startIndex. With resume set it continues
// from the checkpoint instead, keeping earlier results. Carriers run in
// parallel within checkpointed batches; one carrier's failure never stops
// the run. The returned results cover everything completed, including
// resumed ones.
func (co *Coordinator) Run(ctx context.Context, roster []carriers.Carrier, startIndex int, resume bool) ([]SiteResult, error) {
	var results []SiteResult
	origin := startIndex
	if resume {
		startIndex, results = co.checkpoint.Resume()
		origin = startIndex - len(results)
		co.logger.Info("resuming run", zap.Int("start_index", startIndex), zap.Int("previous_results", len(results)))
	}
	if startIndex < 0 || startIndex > len(roster) {
		return nil, fmt.Errorf("start index %d out of range (roster has %d carriers)", startIndex, len(roster))
	}

	co.mu.Lock()
	co.progress.Total = len(roster)
	co.progress.Completed = len(results)
	co.mu.Unlock()

	pending := roster[startIndex:]
	for batchStart := 0; batchStart < len(pending); batchStart += co.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		batchEnd := min(batchStart+co.cfg.BatchSize, len(pending))
		batch := pending[batchStart:batchEnd]

		batchResults := make([]SiteResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(co.cfg.Concurrency)
		for i, carrier := range batch {
			i, carrier := i, carrier
			g.Go(func() error {
				batchResults[i] = co.runOne(gctx, carrier)
				return nil
			})
		}
		// Workers never return errors, so this only waits.
		_ = g.Wait()

		results = append(results, batchResults...)
		// results are contiguous from origin, so the checkpoint's last
		// index stays correct across resumed runs.
		if err := co.checkpoint.Save(results, origin); err != nil {
			// Checkpointing is best effort; losing it costs a re-crawl,
			// not correctness.
			co.logger.Warn("checkpoint save failed", zap.Error(err))
		}
		co.logBatch(results)
	}
	return results, nil
}

func (co *Coordinator) logBatch(results []SiteResult) {
	counts := make(map[Outcome]int)
	for _, r := range results {
		counts[r.Outcome]++
	}
	co.logger.Info("batch complete",
		zap.Int("completed", len(results)),
		zap.Int("success", counts[OutcomeSuccess]),
		zap.Int("no_locations", counts[OutcomeNoLocations]),
		zap.Int("errors", counts[OutcomeError]),
		zap.Int("skipped", counts[OutcomeSkipped]),
	)
}

// runOne takes a single carrier through discovery, crawl, and
// classification. Panics from deep inside the rendering stack are
// contained here and surface as an error outcome.
func (co *Coordinator) runOne(ctx context.Context, carrier carriers.Carrier) (result SiteResult) {
	start := time.Now()
	result = SiteResult{Name: carrier.Name, URL: carrier.Website}

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = OutcomeError
			result.Error = fmt.Sprintf("panic: %v", r)
			co.logger.Error("carrier pipeline panicked", zap.String("name", carrier.Name), zap.Any("panic", r))
		}
		result.Seconds = time.Since(start).Seconds()
		co.recordOutcome(result.Outcome)
	}()

	if carrier.Website == "" || !strings.HasPrefix(carrier.Website, "http") {
		result.Outcome = OutcomeSkipped
		result.Error = "no valid website URL"
		return result
	}
	result.Domain = urlutil.ExtractDomain(carrier.Website)

	co.setRunning(1)
	defer co.setRunning(-1)
	co.met.CrawlStarted()
	defer co.met.CrawlFinished()

	seeds := co.discoverer.Discover(ctx, carrier.Website)
	summary, err := co.crawler.CrawlSite(ctx, carrier.Website, seeds.URLs, seeds.Priority)
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}
	result.PagesCrawled = summary.PagesSaved
	result.PagesFailed = summary.PagesFailed

	report, err := co.classifier.ClassifySite(carrier.Name, filepath.Join(co.cfg.PagesDir, summary.Domain))
	if err != nil {
		result.Outcome = OutcomeError
		result.Error = err.Error()
		return result
	}
	result.LocationPages = report.LocationPages
	result.TotalPages = report.TotalPages
	result.Approach = report.Recommendation
	for modality := range report.ModalityCounts {
		result.Modalities = append(result.Modalities, modality)
	}
	sort.Strings(result.Modalities)
	if len(report.TopPages) > 0 {
		result.TopURL = report.TopPages[0].URL
		result.TopScore = report.TopPages[0].Score
	}
	co.met.ObserveAccepted(report.LocationPages)

	if report.LocationPages > 0 {
		result.Outcome = OutcomeSuccess
	} else {
		result.Outcome = OutcomeNoLocations
	}
	return result
}

func (co *Coordinator) recordOutcome(outcome Outcome) {
	co.met.ObserveSite(string(outcome))
	co.mu.Lock()
	co.progress.Completed++
	co.progress.Outcomes[string(outcome)]++
	co.mu.Unlock()
}

func (co *Coordinator) setRunning(delta int) {
	co.mu.Lock()
	co.progress.Running += delta
	co.mu.Unlock()
}
