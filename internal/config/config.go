// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob loaded via Viper.
type Config struct {
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"db"`
	Export     ExportConfig     `mapstructure:"export"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// CrawlConfig governs the traversal loop.
type CrawlConfig struct {
	EntryURL      string `mapstructure:"entry_url"`
	UserAgent     string `mapstructure:"user_agent"`
	DelaySeconds  int    `mapstructure:"delay_seconds"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
}

// FetchConfig configures page rendering and readiness conditions.
type FetchConfig struct {
	LeagueTimeoutSeconds int    `mapstructure:"league_timeout_seconds"`
	CupTimeoutSeconds    int    `mapstructure:"cup_timeout_seconds"`
	StaticTimeoutSeconds int    `mapstructure:"static_timeout_seconds"`
	TeamsSelector        string `mapstructure:"teams_selector"`
	CookieSelector       string `mapstructure:"cookie_selector"`
	HeadlessMaxParallel  int    `mapstructure:"headless_max_parallel"`
	DetectorMinHTMLBytes int    `mapstructure:"detector_min_html_bytes"`
}

// CheckpointConfig sets where snapshot files are written.
type CheckpointConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DBConfig controls the optional Postgres run ledger.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ExportConfig controls optional final-snapshot export and notification.
type ExportConfig struct {
	GCSBucket     string `mapstructure:"gcs_bucket"`
	PubSubProject string `mapstructure:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PITCHINDEX")
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
	v.SetDefault("crawl.entry_url", "https://www.resultados-futbol.com/paises")
	v.SetDefault("crawl.user_agent", "pitchindex/0.1")
	v.SetDefault("crawl.delay_seconds", 2)
	v.SetDefault("crawl.retry_attempts", 2)
	v.SetDefault("fetch.league_timeout_seconds", 30)
	v.SetDefault("fetch.cup_timeout_seconds", 10)
	v.SetDefault("fetch.static_timeout_seconds", 15)
	v.SetDefault("fetch.teams_selector", "table.standings")
	v.SetDefault("fetch.cookie_selector", "#cookie-accept")
	v.SetDefault("fetch.headless_max_parallel", 1)
	v.SetDefault("fetch.detector_min_html_bytes", 2048)
	v.SetDefault("checkpoint.dir", "data/snapshots")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Crawl.EntryURL) == "" {
		return fmt.Errorf("crawl.entry_url must be set")
	}
	if c.Crawl.RetryAttempts <= 0 {
		return fmt.Errorf("crawl.retry_attempts must be > 0")
	}
	if c.Crawl.DelaySeconds < 0 {
		return fmt.Errorf("crawl.delay_seconds must be >= 0")
	}
	if c.Fetch.LeagueTimeoutSeconds <= 0 || c.Fetch.CupTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch timeouts must be > 0")
	}
	if c.Fetch.CupTimeoutSeconds > c.Fetch.LeagueTimeoutSeconds {
		return fmt.Errorf("fetch.cup_timeout_seconds must not exceed fetch.league_timeout_seconds")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	return nil
}

// Delay converts the configured inter-fetch delay into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Crawl.DelaySeconds) * time.Second
}

// LeagueTimeout is the per-attempt navigation budget for standings pages.
func (c Config) LeagueTimeout() time.Duration {
	return time.Duration(c.Fetch.LeagueTimeoutSeconds) * time.Second
}

// CupTimeout is the shorter budget used for cup/knockout URLs.
func (c Config) CupTimeout() time.Duration {
	return time.Duration(c.Fetch.CupTimeoutSeconds) * time.Second
}

// StaticTimeout bounds plain HTTP fetches used during discovery.
func (c Config) StaticTimeout() time.Duration {
	return time.Duration(c.Fetch.StaticTimeoutSeconds) * time.Second
}
