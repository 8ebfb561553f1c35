// Package config loads and validates application configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob loaded from file and environment.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Search  SearchConfig  `mapstructure:"search"`
	Queue   QueueConfig   `mapstructure:"queue"`
	DB      DBConfig      `mapstructure:"db"`
	Cloud   CloudConfig   `mapstructure:"cloud"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DataConfig sets the local working directory for catalog copies,
// result logs and the default database file.
type DataConfig struct {
	Home string `mapstructure:"home"`
}

// CatalogConfig governs how the certification catalog is obtained.
type CatalogConfig struct {
	URL            string `mapstructure:"url"`
	RefreshDays    int    `mapstructure:"refresh_days"`
	ForceDownload  bool   `mapstructure:"force_download"`
	Retries        int    `mapstructure:"retries"`
	RetryDelaySec  int    `mapstructure:"retry_delay_seconds"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SearchConfig holds web search credentials and tuning.
type SearchConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	EngineID       string  `mapstructure:"engine_id"`
	Endpoint       string  `mapstructure:"endpoint"`
	Country        string  `mapstructure:"country"`
	Language       string  `mapstructure:"language"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
}

// QueueConfig governs queue construction and the search run.
type QueueConfig struct {
	GracePeriodDays     int  `mapstructure:"grace_period_days"`
	FailureCooldownDays int  `mapstructure:"failure_cooldown_days"`
	// Category restricts the queue to one product category; zero means
	// no filter.
	Category    int  `mapstructure:"category"`
	Shuffle     bool `mapstructure:"shuffle"`
	MaxSearches int  `mapstructure:"max_searches"`
	TermCount   int  `mapstructure:"term_count"`
}

// DBConfig selects and configures the annotation/history store.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// CloudConfig describes the shared snapshot folders. With provider
// "fs" the get/post values are directories; with "gcs" they are
// prefixes under the bucket.
type CloudConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Get      string `mapstructure:"get"`
	Post     string `mapstructure:"post"`
}

// PubSubConfig holds metadata for snapshot announcements.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls the optional metrics listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCHWC")
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
	v.SetDefault("data.home", "schwordcloud")
	v.SetDefault("catalog.refresh_days", 180)
	v.SetDefault("catalog.retries", 3)
	v.SetDefault("catalog.retry_delay_seconds", 5)
	v.SetDefault("catalog.timeout_seconds", 60)
	v.SetDefault("search.endpoint", "https://customsearch.googleapis.com/customsearch/v1")
	v.SetDefault("search.country", "countryBR")
	v.SetDefault("search.language", "lang_pt")
	v.SetDefault("search.timeout_seconds", 15)
	v.SetDefault("search.rate_per_second", 1)
	v.SetDefault("search.burst", 1)
	v.SetDefault("queue.grace_period_days", 180)
	v.SetDefault("queue.failure_cooldown_days", 2)
	v.SetDefault("queue.shuffle", false)
	v.SetDefault("queue.term_count", 25)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("cloud.provider", "fs")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Data.Home == "" {
		return fmt.Errorf("data.home must be set")
	}
	switch c.DB.Driver {
	case "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.driver is postgres")
		}
	default:
		return fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver)
	}
	switch c.Cloud.Provider {
	case "fs":
	case "gcs":
		if c.Cloud.Bucket == "" {
			return fmt.Errorf("cloud.bucket must be set when cloud.provider is gcs")
		}
	default:
		return fmt.Errorf("cloud.provider must be fs or gcs, got %q", c.Cloud.Provider)
	}
	if c.Queue.GracePeriodDays <= 0 {
		return fmt.Errorf("queue.grace_period_days must be > 0")
	}
	if c.Queue.FailureCooldownDays <= 0 {
		return fmt.Errorf("queue.failure_cooldown_days must be > 0")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// DatabasePath resolves the sqlite file location, defaulting to a file
// under the data home.
func (c Config) DatabasePath() string {
	if c.DB.Path != "" {
		return c.DB.Path
	}
	return filepath.Join(c.Data.Home, "schwordcloud.db")
}

// GracePeriod converts the queue grace period to a duration.
func (c Config) GracePeriod() time.Duration {
	return time.Duration(c.Queue.GracePeriodDays) * 24 * time.Hour
}

// FailureCooldown converts the failure cool-down to a duration.
func (c Config) FailureCooldown() time.Duration {
	return time.Duration(c.Queue.FailureCooldownDays) * 24 * time.Hour
}

// CatalogRefresh converts the catalog refresh window to a duration.
func (c Config) CatalogRefresh() time.Duration {
	return time.Duration(c.Catalog.RefreshDays) * 24 * time.Hour
}
