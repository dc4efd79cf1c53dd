package main

import (
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/watchdog/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configDump bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate configuration file",
	Long:  `Validate the Watchdog configuration file and optionally dump the effective configuration.`,
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configDump, "dump", false, "Dump full configuration with non-default values highlighted")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(out, "✅ Configuration is valid: %s\n", configPath)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		_, _ = fmt.Fprintln(out)
		_, _ = red.Fprintf(out, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(out, "   - %s\n", key)
		}
		_, _ = fmt.Fprintln(out, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if configDump {
		_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(out, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(out, strings.Repeat("=", 80))

		dumpConfig(out, cfg, config.Defaults())

		_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// findUnknownKeys loads the config file and reports keys the application ignores
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	valid := config.Keys()
	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !slices.Contains(valid, key) {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)

	return unknown, nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(w io.Writer, cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	field := func(name string, value, defaultValue interface{}) {
		dumpField(w, name, value, defaultValue, yellow, green)
	}

	// Display
	_, _ = cyan.Fprintln(w, "\n[display]")
	field("  limit", cfg.Display.Limit, defaultCfg.Display.Limit)
	field("  palette_size", cfg.Display.PaletteSize, defaultCfg.Display.PaletteSize)
	field("  truncate_width", cfg.Display.TruncateWidth, defaultCfg.Display.TruncateWidth)

	// Refresh
	_, _ = cyan.Fprintln(w, "\n[refresh]")
	field("  interval", cfg.Refresh.Interval, defaultCfg.Refresh.Interval)
	field("  fetch_timeout", cfg.Refresh.FetchTimeout, defaultCfg.Refresh.FetchTimeout)
	field("  follow_today", cfg.Refresh.FollowToday, defaultCfg.Refresh.FollowToday)

	// Storage
	_, _ = cyan.Fprintln(w, "\n[storage]")
	field("  type", cfg.Storage.Type, defaultCfg.Storage.Type)
	_, _ = cyan.Fprintln(w, "  [storage.redis]")
	field("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host)
	field("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port)
	field("    password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password))
	field("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB)
	field("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize)
	field("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns)
	field("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout)
	field("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout)
	field("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout)
	field("    key_prefix", cfg.Storage.Redis.KeyPrefix, defaultCfg.Storage.Redis.KeyPrefix)
	field("    window_cache_size", cfg.Storage.Redis.WindowCacheSize, defaultCfg.Storage.Redis.WindowCacheSize)
	_, _ = cyan.Fprintln(w, "  [storage.duckdb]")
	field("    path", cfg.Storage.DuckDB.Path, defaultCfg.Storage.DuckDB.Path)

	// Logging
	_, _ = cyan.Fprintln(w, "\n[logging]")
	field("  level", cfg.Logging.Level, defaultCfg.Logging.Level)
	field("  format", cfg.Logging.Format, defaultCfg.Logging.Format)
	field("  file", cfg.Logging.File, defaultCfg.Logging.File)

	// Metrics
	_, _ = cyan.Fprintln(w, "\n[metrics]")
	field("  enabled", cfg.Metrics.Enabled, defaultCfg.Metrics.Enabled)
	field("  bind_address", cfg.Metrics.BindAddress, defaultCfg.Metrics.BindAddress)
	field("  port", cfg.Metrics.Port, defaultCfg.Metrics.Port)
}

// dumpField prints a field with color if it differs from default
func dumpField(w io.Writer, name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	valueStr := fmt.Sprintf("%v", value)

	if reflect.DeepEqual(value, defaultValue) {
		_, _ = defaultColor.Fprintf(w, "%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Fprintf(w, "%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
