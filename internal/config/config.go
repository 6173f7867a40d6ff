// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Harvester HarvesterConfig `mapstructure:"harvester"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// HarvesterConfig governs sitemap expansion and the fetch pipeline.
type HarvesterConfig struct {
	Sitemaps      []string      `mapstructure:"sitemaps"`
	ProfileMarker string        `mapstructure:"profile_marker"`
	Output        string        `mapstructure:"output"`
	Limit         int           `mapstructure:"limit"`
	Concurrency   int           `mapstructure:"concurrency"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// HTTPConfig configures request timeouts.
type HTTPConfig struct {
	TimeoutSeconds        int `mapstructure:"timeout_seconds"`
	SitemapTimeoutSeconds int `mapstructure:"sitemap_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional metrics endpoint. An empty address
// disables the server.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults installs default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("harvester.sitemaps", []string{"https://www.dvag.de/sitemap-index.xml"})
	v.SetDefault("harvester.profile_marker", "/vermoegensberater/")
	v.SetDefault("harvester.output", "advisor_profiles.xlsx")
	v.SetDefault("harvester.limit", 0)
	v.SetDefault("harvester.concurrency", 8)
	v.SetDefault("harvester.min_delay", "300ms")
	v.SetDefault("harvester.max_delay", "800ms")
	v.SetDefault("harvester.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("http.timeout_seconds", 60)
	v.SetDefault("http.sitemap_timeout_seconds", 90)
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.addr", "")
}

// Load builds a Config from v and validates it. Validation failures are the
// fatal-startup class: they abort before any network activity begins.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and consistent limits.
func (c Config) Validate() error {
	if len(c.Harvester.Sitemaps) == 0 {
		return fmt.Errorf("harvester.sitemaps must include at least one seed URL")
	}
	if c.Harvester.ProfileMarker == "" {
		return fmt.Errorf("harvester.profile_marker must be set")
	}
	if c.Harvester.Output == "" {
		return fmt.Errorf("harvester.output must be set")
	}
	if c.Harvester.Limit < 0 {
		return fmt.Errorf("harvester.limit must be >= 0")
	}
	if c.Harvester.Concurrency <= 0 {
		return fmt.Errorf("harvester.concurrency must be > 0")
	}
	if c.Harvester.MinDelay < 0 {
		return fmt.Errorf("harvester.min_delay must be >= 0")
	}
	if c.Harvester.MaxDelay < 0 {
		return fmt.Errorf("harvester.max_delay must be >= 0")
	}
	if c.Harvester.MinDelay > c.Harvester.MaxDelay {
		return fmt.Errorf("harvester.min_delay must not exceed harvester.max_delay")
	}
	if c.Harvester.UserAgent == "" {
		return fmt.Errorf("harvester.user_agent must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.SitemapTimeoutSeconds <= 0 {
		return fmt.Errorf("http.sitemap_timeout_seconds must be > 0")
	}
	return nil
}

// RequestTimeout returns the profile page fetch timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// SitemapTimeout returns the sitemap fetch timeout as a duration. Sitemap
// documents can be large, so they get a more generous budget than pages.
func (c Config) SitemapTimeout() time.Duration {
	return time.Duration(c.HTTP.SitemapTimeoutSeconds) * time.Second
}
