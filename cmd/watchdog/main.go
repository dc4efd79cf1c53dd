package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goodtune/watchdog/internal/config"
	"github.com/goodtune/watchdog/internal/storage"
	"github.com/goodtune/watchdog/internal/storage/duckdb"
	"github.com/goodtune/watchdog/internal/storage/redis"
	"github.com/goodtune/watchdog/internal/usage"
	"github.com/rs/zerolog"
)

func main() {
	Execute()
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

// openLogFile returns the log destination for commands that own stdout.
// An empty path discards logs.
func openLogFile(path string) (io.Writer, func() error, error) {
	if path == "" {
		return io.Discard, func() error { return nil }, nil
	}
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, f.Close, nil
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "redis"
	}

	switch storageType {
	case "redis":
		return redis.Open(cfg.Redis)
	case "duckdb":
		return duckdb.Open(cfg.DuckDB)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'redis' or 'duckdb')", storageType)
	}
}

// schedulerConfig maps configuration onto the refresh scheduler
func schedulerConfig(cfg *config.Config) usage.Config {
	return usage.Config{
		Limit:        cfg.Display.Limit,
		Interval:     cfg.Refresh.RefreshInterval(),
		FetchTimeout: cfg.Refresh.Timeout(),
		FollowToday:  cfg.Refresh.FollowToday,
	}
}

// resolveDate parses a --date flag, defaulting to today
func resolveDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	date, err := usage.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return date, nil
}
