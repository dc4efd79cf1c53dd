package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Display DisplayConfig `mapstructure:"display"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DisplayConfig defines how the ranked breakdown is presented
type DisplayConfig struct {
	Limit         int `mapstructure:"limit"`          // Top-N entries kept per snapshot
	PaletteSize   int `mapstructure:"palette_size"`   // Colors generated per session
	TruncateWidth int `mapstructure:"truncate_width"` // Label width for non-highlighted entries
}

// RefreshConfig defines the polling loop
type RefreshConfig struct {
	Interval     string `mapstructure:"interval"`
	FetchTimeout string `mapstructure:"fetch_timeout"`
	FollowToday  bool   `mapstructure:"follow_today"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type   string       `mapstructure:"type"` // "redis" or "duckdb"
	Redis  RedisConfig  `mapstructure:"redis"`
	DuckDB DuckDBConfig `mapstructure:"duckdb"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	PoolSize        int    `mapstructure:"pool_size"`
	MinIdleConns    int    `mapstructure:"min_idle_conns"`
	DialTimeout     string `mapstructure:"dial_timeout"`
	ReadTimeout     string `mapstructure:"read_timeout"`
	WriteTimeout    string `mapstructure:"write_timeout"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	WindowCacheSize int    `mapstructure:"window_cache_size"`
}

// DuckDBConfig defines the SQL usage log database
type DuckDBConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"` // Used by the TUI, which owns stdout
}

// MetricsConfig defines the prometheus endpoint
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	Port        int    `mapstructure:"port"`
}

// RefreshInterval returns the parsed polling interval.
func (c RefreshConfig) RefreshInterval() time.Duration {
	return parseDuration(c.Interval, time.Second)
}

// Timeout returns the parsed per-fetch timeout.
func (c RefreshConfig) Timeout() time.Duration {
	return parseDuration(c.FetchTimeout, 5*time.Second)
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("WATCHDOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if !isNotFound(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found, use defaults and environment variables
		}
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration with nothing but default values applied.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&config)
	return &config
}

// Keys returns every configuration key the application understands.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	return v.AllKeys()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Display defaults
	v.SetDefault("display.limit", 10)
	v.SetDefault("display.palette_size", 50)
	v.SetDefault("display.truncate_width", 15)

	// Refresh defaults
	v.SetDefault("refresh.interval", "1s")
	v.SetDefault("refresh.fetch_timeout", "5s")
	v.SetDefault("refresh.follow_today", true)

	// Storage defaults
	v.SetDefault("storage.type", "redis")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "watchdog:")
	v.SetDefault("storage.redis.window_cache_size", 1024)
	v.SetDefault("storage.duckdb.path", "/var/lib/watchdog/usage.duckdb")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "127.0.0.1")
	v.SetDefault("metrics.port", 9091)
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Display.Limit < 0 {
		return fmt.Errorf("display.limit must not be negative: %d", cfg.Display.Limit)
	}
	if cfg.Display.PaletteSize <= 0 {
		return fmt.Errorf("display.palette_size must be positive: %d", cfg.Display.PaletteSize)
	}
	if cfg.Display.TruncateWidth <= 0 {
		return fmt.Errorf("display.truncate_width must be positive: %d", cfg.Display.TruncateWidth)
	}

	interval, err := time.ParseDuration(cfg.Refresh.Interval)
	if err != nil {
		return fmt.Errorf("invalid refresh.interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive: %s", cfg.Refresh.Interval)
	}
	if _, err := time.ParseDuration(cfg.Refresh.FetchTimeout); err != nil {
		return fmt.Errorf("invalid refresh.fetch_timeout: %w", err)
	}

	switch cfg.Storage.Type {
	case "":
		cfg.Storage.Type = "redis"
	case "redis":
	case "duckdb":
		if cfg.Storage.DuckDB.Path == "" {
			return fmt.Errorf("storage.duckdb.path is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Metrics.Port)
	}

	return nil
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// SetConfigFile with a missing path surfaces an fs error instead.
	return errors.Is(err, fs.ErrNotExist)
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
