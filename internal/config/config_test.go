package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawler.MaxPagesPerSite != 200 {
		t.Fatalf("expected page budget 200, got %d", cfg.Crawler.MaxPagesPerSite)
	}
	if cfg.Render.NavTimeout != 30*time.Second {
		t.Fatalf("expected nav timeout 30s, got %v", cfg.Render.NavTimeout)
	}
	if cfg.Classifier.ScoreThreshold != 3 {
		t.Fatalf("expected score threshold 3, got %d", cfg.Classifier.ScoreThreshold)
	}
	if cfg.Run.Concurrency != 8 || cfg.Run.BatchSize != 20 {
		t.Fatalf("unexpected run defaults: %+v", cfg.Run)
	}
	if len(cfg.Discovery.LocationURLKeywords) == 0 {
		t.Fatalf("expected default location keywords")
	}
	// The browser cannot start without a user agent to present, so the
	// rotation list must survive a config-file-less load.
	if len(cfg.Render.UserAgents) == 0 {
		t.Fatalf("expected default user agent rotation list")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: false
crawler:
  max_pages_per_site: 50
  seed_cap: 10
  output_dir: /tmp/pages
render:
  nav_timeout: 15s
  settle_delay: 1s
classifier:
  min_html_bytes: 500
  score_threshold: 5
run:
  concurrency: 4
  batch_size: 5
server:
  enabled: true
  port: 9090
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected development logging disabled")
	}
	if cfg.Crawler.MaxPagesPerSite != 50 || cfg.Crawler.SeedCap != 10 {
		t.Fatalf("crawler overrides not applied: %+v", cfg.Crawler)
	}
	if cfg.Render.NavTimeout != 15*time.Second || cfg.Render.SettleDelay != time.Second {
		t.Fatalf("render overrides not applied: %+v", cfg.Render)
	}
	if cfg.Classifier.MinHTMLBytes != 500 || cfg.Classifier.ScoreThreshold != 5 {
		t.Fatalf("classifier overrides not applied: %+v", cfg.Classifier)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9090 {
		t.Fatalf("server overrides not applied: %+v", cfg.Server)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	valid, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero budget", func(c *Config) { c.Crawler.MaxPagesPerSite = 0 }, "max_pages_per_site"},
		{"empty output dir", func(c *Config) { c.Crawler.OutputDir = "" }, "output_dir"},
		{"zero nav timeout", func(c *Config) { c.Render.NavTimeout = 0 }, "nav_timeout"},
		{"no user agents", func(c *Config) { c.Render.UserAgents = nil }, "user_agents"},
		{"zero threshold", func(c *Config) { c.Classifier.ScoreThreshold = 0 }, "score_threshold"},
		{"zero concurrency", func(c *Config) { c.Run.Concurrency = 0 }, "concurrency"},
		{"bad server port", func(c *Config) { c.Server.Enabled = true; c.Server.Port = 0 }, "server.port"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}
