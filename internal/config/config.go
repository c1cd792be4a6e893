// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Sources SourcesConfig `mapstructure:"sources"`
	Places  PlacesConfig  `mapstructure:"places"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the admin endpoints.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScrapeConfig governs the job controller and the two worker lanes.
type ScrapeConfig struct {
	ScrapeWorkers     int  `mapstructure:"scrape_workers"`
	AnalysisWorkers   int  `mapstructure:"analysis_workers"`
	QueueDepth        int  `mapstructure:"queue_depth"`
	MaxReviews        int  `mapstructure:"max_reviews"`
	FreshnessDays     int  `mapstructure:"freshness_days"`
	MaxAttempts       int  `mapstructure:"max_attempts"`
	RetryBackoffSec   int  `mapstructure:"retry_backoff_seconds"`
	SoftBudgetMin     int  `mapstructure:"soft_budget_minutes"`
	HardBudgetMin     int  `mapstructure:"hard_budget_minutes"`
	MinReviewsForML   int  `mapstructure:"min_reviews_for_ml"`
	InsufficientSynth bool `mapstructure:"synthesize_when_insufficient"`
}

// SourcesConfig configures the review collectors.
type SourcesConfig struct {
	Maps   MapsConfig   `mapstructure:"maps"`
	Reddit RedditConfig `mapstructure:"reddit"`
}

// MapsConfig configures the headless Google Maps collector.
type MapsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	MaxParallel   int    `mapstructure:"max_parallel"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	ScrollRounds  int    `mapstructure:"scroll_rounds"`
	UserAgent     string `mapstructure:"user_agent"`
}

// RedditConfig configures the supplementary Reddit collector.
type RedditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	UserAgent  string `mapstructure:"user_agent"`
	MaxResults int    `mapstructure:"max_results"`
}

// PlacesConfig holds Google Places API access for restaurant discovery.
type PlacesConfig struct {
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN
// selects the in-memory store.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PubSubConfig holds metadata for job lifecycle event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIBEFINDER")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("scrape.scrape_workers", 4)
	v.SetDefault("scrape.analysis_workers", 2)
	v.SetDefault("scrape.queue_depth", 64)
	v.SetDefault("scrape.max_reviews", 100)
	v.SetDefault("scrape.freshness_days", 7)
	v.SetDefault("scrape.max_attempts", 3)
	v.SetDefault("scrape.retry_backoff_seconds", 60)
	v.SetDefault("scrape.soft_budget_minutes", 25)
	v.SetDefault("scrape.hard_budget_minutes", 30)
	v.SetDefault("scrape.min_reviews_for_ml", 5)
	v.SetDefault("scrape.synthesize_when_insufficient", true)
	v.SetDefault("sources.maps.enabled", true)
	v.SetDefault("sources.maps.max_parallel", 1)
	v.SetDefault("sources.maps.nav_timeout_seconds", 45)
	v.SetDefault("sources.maps.scroll_rounds", 8)
	v.SetDefault("sources.reddit.enabled", true)
	v.SetDefault("sources.reddit.base_url", "https://old.reddit.com")
	v.SetDefault("sources.reddit.user_agent", "vibefinder/1.0")
	v.SetDefault("sources.reddit.max_results", 20)
	v.SetDefault("places.timeout_seconds", 10)
	v.SetDefault("db.max_open_conns", 8)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.ScrapeWorkers <= 0 {
		return fmt.Errorf("scrape.scrape_workers must be > 0")
	}
	if c.Scrape.AnalysisWorkers <= 0 {
		return fmt.Errorf("scrape.analysis_workers must be > 0")
	}
	if c.Scrape.MaxAttempts <= 0 {
		return fmt.Errorf("scrape.max_attempts must be > 0")
	}
	if c.Scrape.HardBudgetMin < c.Scrape.SoftBudgetMin {
		return fmt.Errorf("scrape.hard_budget_minutes must be >= scrape.soft_budget_minutes")
	}
	if c.Sources.Maps.Enabled && c.Sources.Maps.MaxParallel <= 0 {
		return fmt.Errorf("sources.maps.max_parallel must be > 0 when maps is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FreshnessMaxAge converts the freshness window into a duration.
func (c Config) FreshnessMaxAge() time.Duration {
	return time.Duration(c.Scrape.FreshnessDays) * 24 * time.Hour
}

// RetryBackoff converts the retry delay into a duration.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Scrape.RetryBackoffSec) * time.Second
}

// SoftBudget is the per-attempt duration after which a warning is logged.
func (c Config) SoftBudget() time.Duration {
	return time.Duration(c.Scrape.SoftBudgetMin) * time.Minute
}

// HardBudget is the per-attempt duration after which the attempt is failed.
func (c Config) HardBudget() time.Duration {
	return time.Duration(c.Scrape.HardBudgetMin) * time.Minute
}
