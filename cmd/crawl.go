package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetops/locationscout/internal/api"
	"github.com/fleetops/locationscout/internal/carriers"
	"github.com/fleetops/locationscout/internal/classifier"
	"github.com/fleetops/locationscout/internal/config"
	"github.com/fleetops/locationscout/internal/coordinator"
	"github.com/fleetops/locationscout/internal/crawler"
	"github.com/fleetops/locationscout/internal/discovery"
	"github.com/fleetops/locationscout/internal/metrics"
	"github.com/fleetops/locationscout/internal/render"
	"github.com/fleetops/locationscout/internal/report"
	"github.com/fleetops/locationscout/internal/urlutil"
)

func newCrawlCmd() *cobra.Command {
	var (
		startIndex int
		resume     bool
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls every carrier in the roster and scores the saved pages",
		Long: `Loads the carrier roster, discovers candidate URLs per site, crawls each
site with a headless browser, and scores the saved pages for location data.
Progress is checkpointed after every batch so an interrupted run can be
resumed with --resume.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if workers > 0 {
				cfg.Run.Concurrency = workers
			}
			return runCrawl(cmd.Context(), startIndex, resume)
		},
	}

	cmd.Flags().IntVar(&startIndex, "start", 0, "roster index to start from")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the last checkpoint")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent site crawls (overrides config)")

	return cmd
}

func runCrawl(ctx context.Context, startIndex int, resume bool) error {
	roster, err := carriers.Load(carriers.Config{
		File:       cfg.Carriers.File,
		Sheet:      cfg.Carriers.Sheet,
		NameColumn: cfg.Carriers.NameColumn,
		URLColumn:  cfg.Carriers.URLColumn,
	})
	if err != nil {
		return fmt.Errorf("load carrier roster: %w", err)
	}
	logger.Info("roster loaded", zap.Int("carriers", len(roster)))

	browser, err := render.NewChromeBrowser(render.Config{
		Headless:    cfg.Render.Headless,
		NavTimeout:  cfg.Render.NavTimeout,
		SettleDelay: cfg.Render.SettleDelay,
		ScrollDelay: cfg.Render.ScrollDelay,
		UserAgents:  cfg.Render.UserAgents,
	}, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer browser.Close()

	met := metrics.New(prometheus.NewRegistry())
	co, err := buildCoordinator(cfg, browser, met)
	if err != nil {
		return err
	}

	if cfg.Server.Enabled {
		srv := api.New(cfg.Server.Port, met, co.Progress, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", zap.Error(err))
			}
		}()
	}

	started := time.Now()
	results, err := co.Run(ctx, roster, startIndex, resume)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	outcomes := make(map[string]int)
	for _, r := range results {
		outcomes[string(r.Outcome)]++
	}
	logger.Info("run finished",
		zap.Int("carriers", len(results)),
		zap.Any("outcomes", outcomes),
		zap.Duration("elapsed", time.Since(started)),
	)

	if werr := writeRunArtifacts(results); werr != nil {
		return werr
	}
	return err
}

func buildCoordinator(cfg config.Config, browser render.Browser, met *metrics.Metrics) (*coordinator.Coordinator, error) {
	norm := urlutil.NewNormalizer(append(urlutil.DefaultDenylist(), cfg.Crawler.ExcludedURLPatterns...))
	sink := crawler.NewFileSink(cfg.Crawler.OutputDir)

	disc := discovery.New(discovery.Config{
		Timeout:          cfg.Discovery.Timeout,
		MaxChildSitemaps: cfg.Discovery.MaxChildSitemaps,
		LocationKeywords: cfg.Discovery.LocationURLKeywords,
		UserAgent:        firstOr(cfg.Render.UserAgents, "locationscout/1.0"),
	}, logger)

	craw := crawler.New(crawler.Config{
		MaxPagesPerSite: cfg.Crawler.MaxPagesPerSite,
		SeedCap:         cfg.Crawler.SeedCap,
		RequestDelay:    cfg.Crawler.RequestDelay,
	}, browser, norm, sink, met, logger)

	cl, err := newClassifier(cfg)
	if err != nil {
		return nil, err
	}

	store := coordinator.NewCheckpointStore(cfg.Run.CheckpointFile)

	return coordinator.New(coordinator.Config{
		Concurrency: cfg.Run.Concurrency,
		BatchSize:   cfg.Run.BatchSize,
		PagesDir:    cfg.Crawler.OutputDir,
	}, disc, craw, cl, store, met, logger), nil
}

func newClassifier(cfg config.Config) (*classifier.Classifier, error) {
	cl, err := classifier.New(classifier.Config{
		MinHTMLBytes:     cfg.Classifier.MinHTMLBytes,
		ScoreThreshold:   cfg.Classifier.ScoreThreshold,
		TopPages:         cfg.Classifier.TopPages,
		NonUSURLPatterns: cfg.Classifier.NonUSURLPatterns,
		USURLPatterns:    cfg.Classifier.USURLPatterns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return cl, nil
}

// writeRunArtifacts persists the per-carrier results JSON and the modality
// report for whatever completed, even on a cancelled run.
func writeRunArtifacts(results []coordinator.SiteResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := os.MkdirAll(cfg.Run.ReportsDir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	resultsPath := filepath.Join(cfg.Run.ReportsDir, "crawl_results_"+stamp+".json")
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(resultsPath, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	logger.Info("results written", zap.String("path", resultsPath))

	cl, err := newClassifier(cfg)
	if err != nil {
		return err
	}
	reports := make(map[string]classifier.SiteReport)
	for _, r := range results {
		if r.Domain == "" {
			continue
		}
		rep, rerr := cl.ClassifySite(r.Name, filepath.Join(cfg.Crawler.OutputDir, r.Domain))
		if rerr != nil {
			logger.Warn("classify for report", zap.String("carrier", r.Name), zap.Error(rerr))
			continue
		}
		reports[r.Name] = rep
	}
	if len(reports) == 0 {
		return nil
	}

	reportPath := filepath.Join(cfg.Run.ReportsDir, "modality_report_"+stamp+".txt")
	if err := report.Write(reports, cfg.Classifier.ScoreThreshold, reportPath); err != nil {
		return err
	}
	logger.Info("modality report written", zap.String("path", reportPath))
	return nil
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
