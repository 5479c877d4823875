package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetops/locationscout/internal/carriers"
	"github.com/fleetops/locationscout/internal/classifier"
	"github.com/fleetops/locationscout/internal/report"
	"github.com/fleetops/locationscout/internal/urlutil"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rebuilds the modality report from previously crawled pages",
		Long: `Scores every site directory under the crawler output dir and writes a
fresh modality report. Carrier names are recovered from the roster where a
site's domain matches; unmatched directories are reported by domain.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport()
		},
	}
	return cmd
}

func runReport() error {
	entries, err := os.ReadDir(cfg.Crawler.OutputDir)
	if err != nil {
		return fmt.Errorf("read pages dir: %w", err)
	}

	cl, err := newClassifier(cfg)
	if err != nil {
		return err
	}
	names := domainNames()

	reports := make(map[string]classifier.SiteReport)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		domain := entry.Name()
		name := names[domain]
		if name == "" {
			name = domain
		}
		rep, rerr := cl.ClassifySite(name, filepath.Join(cfg.Crawler.OutputDir, domain))
		if rerr != nil {
			logger.Warn("classify site", zap.String("domain", domain), zap.Error(rerr))
			continue
		}
		reports[name] = rep
	}
	if len(reports) == 0 {
		return fmt.Errorf("no crawled sites under %s", cfg.Crawler.OutputDir)
	}

	path := filepath.Join(cfg.Run.ReportsDir, "modality_report_"+time.Now().Format("20060102_150405")+".txt")
	if err := report.Write(reports, cfg.Classifier.ScoreThreshold, path); err != nil {
		return err
	}
	logger.Info("modality report written", zap.String("path", path), zap.Int("carriers", len(reports)))
	return nil
}

// domainNames maps crawl output directories back to roster carrier names.
// Best effort: a missing or unreadable roster just means domain-named reports.
func domainNames() map[string]string {
	roster, err := carriers.Load(carriers.Config{
		File:       cfg.Carriers.File,
		Sheet:      cfg.Carriers.Sheet,
		NameColumn: cfg.Carriers.NameColumn,
		URLColumn:  cfg.Carriers.URLColumn,
	})
	if err != nil {
		logger.Warn("roster unavailable for report naming", zap.Error(err))
		return nil
	}
	names := make(map[string]string, len(roster))
	for _, c := range roster {
		if c.Website == "" {
			continue
		}
		names[urlutil.ExtractDomain(c.Website)] = c.Name
	}
	return names
}
