// Package config loads and validates scout configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fleetops/locationscout/internal/render"
)

// Config captures every configuration knob loaded via Viper. Values are
// decomposed into plain per-component structs here so that components
// receive explicit configuration instead of reading ambient state.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Carriers   CarriersConfig   `mapstructure:"carriers"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Render     RenderConfig     `mapstructure:"render"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Run        RunConfig        `mapstructure:"run"`
	Server     ServerConfig     `mapstructure:"server"`
}

// LoggingConfig toggles zap development features. Level, when set,
// overrides the mode's default ("debug" in development, "info" otherwise).
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CarriersConfig locates the carrier spreadsheet and its columns.
type CarriersConfig struct {
	File       string `mapstructure:"file"`
	Sheet      string `mapstructure:"sheet"`
	NameColumn string `mapstructure:"name_column"`
	URLColumn  string `mapstructure:"url_column"`
}

// DiscoveryConfig governs sitemap/robots URL discovery.
type DiscoveryConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxChildSitemaps    int           `mapstructure:"max_child_sitemaps"`
	LocationURLKeywords []string      `mapstructure:"location_url_keywords"`
}

// RenderConfig configures the headless rendering subsystem.
type RenderConfig struct {
	Headless    bool          `mapstructure:"headless"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	ScrollDelay time.Duration `mapstructure:"scroll_delay"`
	UserAgents  []string      `mapstructure:"user_agents"`
}

// CrawlerConfig governs one site's frontier traversal.
type CrawlerConfig struct {
	MaxPagesPerSite     int           `mapstructure:"max_pages_per_site"`
	SeedCap             int           `mapstructure:"seed_cap"`
	RequestDelay        time.Duration `mapstructure:"request_delay"`
	OutputDir           string        `mapstructure:"output_dir"`
	ExcludedURLPatterns []string      `mapstructure:"excluded_url_patterns"`
}

// ClassifierConfig carries the scoring engine's tunable thresholds.
type ClassifierConfig struct {
	MinHTMLBytes     int      `mapstructure:"min_html_bytes"`
	ScoreThreshold   int      `mapstructure:"score_threshold"`
	TopPages         int      `mapstructure:"top_pages"`
	NonUSURLPatterns []string `mapstructure:"non_us_url_patterns"`
	USURLPatterns    []string `mapstructure:"us_url_patterns"`
}

// RunConfig controls the multi-site run coordinator.
type RunConfig struct {
	Concurrency    int    `mapstructure:"concurrency"`
	BatchSize      int    `mapstructure:"batch_size"`
	DataDir        string `mapstructure:"data_dir"`
	ReportsDir     string `mapstructure:"reports_dir"`
	CheckpointFile string `mapstructure:"checkpoint_file"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LOCATIONSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")

	v.SetDefault("carriers.name_column", "Top Fleet Company Name")
	v.SetDefault("carriers.url_column", "Top Fleet Website")

	v.SetDefault("discovery.timeout", "10s")
	v.SetDefault("discovery.max_child_sitemaps", 10)
	v.SetDefault("discovery.location_url_keywords", []string{
		"location", "terminal", "facilit", "service-center", "service_center",
		"coverage", "network", "find-us", "find_us", "where-we", "branch",
		"office", "warehouse", "yard", "depot", "hub", "contact", "about",
		"center", "site", "operation",
	})

	v.SetDefault("render.headless", true)
	v.SetDefault("render.nav_timeout", "30s")
	v.SetDefault("render.settle_delay", "2s")
	v.SetDefault("render.scroll_delay", "500ms")
	v.SetDefault("render.user_agents", render.DefaultUserAgents())

	v.SetDefault("crawler.max_pages_per_site", 200)
	v.SetDefault("crawler.seed_cap", 50)
	v.SetDefault("crawler.request_delay", "0s")
	v.SetDefault("crawler.output_dir", "data/crawled_pages")

	v.SetDefault("classifier.min_html_bytes", 2000)
	v.SetDefault("classifier.score_threshold", 3)
	v.SetDefault("classifier.top_pages", 20)

	v.SetDefault("run.concurrency", 8)
	v.SetDefault("run.batch_size", 20)
	v.SetDefault("run.data_dir", "data")
	v.SetDefault("run.reports_dir", "data/reports")
	v.SetDefault("run.checkpoint_file", "data/crawl_checkpoint.json")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.MaxPagesPerSite <= 0 {
		return fmt.Errorf("crawler.max_pages_per_site must be > 0")
	}
	if c.Crawler.SeedCap < 0 {
		return fmt.Errorf("crawler.seed_cap must be >= 0")
	}
	if c.Crawler.OutputDir == "" {
		return fmt.Errorf("crawler.output_dir must be set")
	}
	if c.Render.NavTimeout <= 0 {
		return fmt.Errorf("render.nav_timeout must be > 0")
	}
	if len(c.Render.UserAgents) == 0 {
		return fmt.Errorf("render.user_agents must not be empty")
	}
	if c.Discovery.Timeout <= 0 {
		return fmt.Errorf("discovery.timeout must be > 0")
	}
	if c.Discovery.MaxChildSitemaps <= 0 {
		return fmt.Errorf("discovery.max_child_sitemaps must be > 0")
	}
	if c.Classifier.MinHTMLBytes < 0 {
		return fmt.Errorf("classifier.min_html_bytes must be >= 0")
	}
	if c.Classifier.ScoreThreshold <= 0 {
		return fmt.Errorf("classifier.score_threshold must be > 0")
	}
	if c.Classifier.TopPages <= 0 {
		return fmt.Errorf("classifier.top_pages must be > 0")
	}
	if c.Run.Concurrency <= 0 {
		return fmt.Errorf("run.concurrency must be > 0")
	}
	if c.Run.BatchSize <= 0 {
		return fmt.Errorf("run.batch_size must be > 0")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when server is enabled")
	}
	return nil
}
