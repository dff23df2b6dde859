// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// Config captures all configuration knobs consumed by the crawl engine.
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// InputConfig locates the appid metadata file.
type InputConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig locates result and checkpoint files.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// BatchConfig controls partitioning and batch selection.
type BatchConfig struct {
	Size  int `mapstructure:"size"`
	Index int `mapstructure:"index"`
}

// CrawlerConfig governs the fetch discipline for the batch run.
type CrawlerConfig struct {
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxApps     int           `mapstructure:"max_apps"`
	RetryBudget int           `mapstructure:"retry_budget"`
	RetryOn429  bool          `mapstructure:"retry_on_429"`
	UserAgent   string        `mapstructure:"user_agent"`
	BaseURL     string        `mapstructure:"base_url"`
}

// HTTPConfig bounds individual network calls.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// SinkConfig selects and configures the result sink backend.
type SinkConfig struct {
	Driver      string `mapstructure:"driver"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ServerConfig controls the optional status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// steamcharts tolerates short delays, so the default window is tighter
// than a store crawl would use. The user agent matches what the site
// sees from ordinary browsers.
const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	defaultBaseURL   = "https://steamcharts.com/app/%d"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHARTS")
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
	v.SetDefault("input.path", "apps.csv")
	v.SetDefault("output.dir", "data")
	v.SetDefault("batch.size", 1000)
	v.SetDefault("batch.index", 1)
	v.SetDefault("crawler.min_delay", "300ms")
	v.SetDefault("crawler.max_delay", "500ms")
	v.SetDefault("crawler.max_apps", 0)
	v.SetDefault("crawler.retry_budget", 2)
	v.SetDefault("crawler.retry_on_429", true)
	v.SetDefault("crawler.user_agent", defaultUserAgent)
	v.SetDefault("crawler.base_url", defaultBaseURL)
	v.SetDefault("http.timeout", "15s")
	v.SetDefault("sink.driver", "csv")
	v.SetDefault("sink.postgres_dsn", "")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8900)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Violations
// are configuration errors and abort the run before any crawling starts.
func (c Config) Validate() error {
	if c.Input.Path == "" {
		return fmt.Errorf("%w: input.path must be set", charts.ErrConfiguration)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output.dir must be set", charts.ErrConfiguration)
	}
	if c.Batch.Size <= 0 {
		return fmt.Errorf("%w: batch.size must be > 0", charts.ErrConfiguration)
	}
	if c.Batch.Index <= 0 {
		return fmt.Errorf("%w: batch.index must be > 0", charts.ErrConfiguration)
	}
	if c.Crawler.MinDelay < 0 {
		return fmt.Errorf("%w: crawler.min_delay must be >= 0", charts.ErrConfiguration)
	}
	if c.Crawler.MaxDelay < c.Crawler.MinDelay {
		return fmt.Errorf("%w: crawler.max_delay must be >= crawler.min_delay", charts.ErrConfiguration)
	}
	if c.Crawler.MaxApps < 0 {
		return fmt.Errorf("%w: crawler.max_apps must be >= 0", charts.ErrConfiguration)
	}
	if c.Crawler.RetryBudget < 0 {
		return fmt.Errorf("%w: crawler.retry_budget must be >= 0", charts.ErrConfiguration)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be > 0", charts.ErrConfiguration)
	}
	switch c.Sink.Driver {
	case "csv":
	case "postgres":
		if c.Sink.PostgresDSN == "" {
			return fmt.Errorf("%w: sink.postgres_dsn must be set when sink.driver is postgres", charts.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown sink.driver %q", charts.ErrConfiguration, c.Sink.Driver)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("%w: server.port must be > 0 when server is enabled", charts.ErrConfiguration)
	}
	return nil
}

// AppURL renders the steamcharts page URL for one appid.
func (c CrawlerConfig) AppURL(appID int) string {
	return fmt.Sprintf(c.BaseURL, appID)
}
