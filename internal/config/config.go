// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Registry RegistryConfig `mapstructure:"registry"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlConfig bounds the crawl window and pagination behavior.
// StartDate is the inclusive upper bound of publication dates to collect;
// EndDate is the exclusive stopping boundary. Both are YYYY-MM-DD strings
// and are parsed (and defaulted) by the crawl package before any fetch.
type CrawlConfig struct {
	StartDate    string `mapstructure:"start_date"`
	EndDate      string `mapstructure:"end_date"`
	PageJump     int    `mapstructure:"page_jump"`
	DelaySeconds int    `mapstructure:"delay_seconds"`
}

// RegistryConfig controls access to the public disclosure registry.
type RegistryConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ArchiveConfig controls the optional raw-page archive on local disk.
type ArchiveConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Dir          string `mapstructure:"dir"`
	MaxPageBytes int64  `mapstructure:"max_page_bytes"`
}

// DatabaseConfig controls access to the relational warehouse.
type DatabaseConfig struct {
	Provider           string `mapstructure:"provider"`
	DSN                string `mapstructure:"dsn"`
	MaxConns           int32  `mapstructure:"max_conns"`
	MinConns           int32  `mapstructure:"min_conns"`
	ConnLifetimeMinute int    `mapstructure:"conn_lifetime_minutes"`
}

// ServerConfig controls the optional status/metrics HTTP listener.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. A .env file in the working
// directory is honored first, matching how deployments ship DB credentials.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("INSIDER")
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

// setDefaults registers every key with Viper. Keys without a natural
// default still get an empty one so AutomaticEnv can populate them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.start_date", "")
	v.SetDefault("crawl.end_date", "")
	v.SetDefault("crawl.page_jump", 1)
	v.SetDefault("crawl.delay_seconds", 2)
	v.SetDefault("registry.base_url", "https://marknadssok.fi.se/publiceringsklient")
	v.SetDefault("registry.user_agent", "insider-crawler/1.0 (+https://github.com/marknadsdata/insider-crawler)")
	v.SetDefault("registry.timeout_seconds", 15)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dir", "data/pages")
	v.SetDefault("archive.max_page_bytes", 5*1024*1024)
	v.SetDefault("database.provider", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_lifetime_minutes", 30)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. It runs before
// any network or database access so bad input fails the run at startup.
func (c Config) Validate() error {
	if c.Crawl.PageJump < 1 {
		return fmt.Errorf("crawl.page_jump must be >= 1")
	}
	if c.Crawl.DelaySeconds < 2 {
		return fmt.Errorf("crawl.delay_seconds must be >= 2 (registry rate floor)")
	}
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url is required")
	}
	if c.Registry.TimeoutSeconds <= 0 {
		return fmt.Errorf("registry.timeout_seconds must be > 0")
	}
	switch c.Database.Provider {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when database.provider is postgres")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown database provider: %s", c.Database.Provider)
	}
	if c.Archive.Enabled && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir must be set when archive is enabled")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	return nil
}
