package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Display.Limit)
	assert.Equal(t, 50, cfg.Display.PaletteSize)
	assert.Equal(t, 15, cfg.Display.TruncateWidth)
	assert.Equal(t, time.Second, cfg.Refresh.RefreshInterval())
	assert.Equal(t, 5*time.Second, cfg.Refresh.Timeout())
	assert.True(t, cfg.Refresh.FollowToday)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "watchdog:", cfg.Storage.Redis.KeyPrefix)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
display:
  limit: 5
refresh:
  interval: 250ms
storage:
  type: duckdb
  duckdb:
    path: /tmp/usage.duckdb
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Display.Limit)
	assert.Equal(t, 250*time.Millisecond, cfg.Refresh.RefreshInterval())
	assert.Equal(t, "duckdb", cfg.Storage.Type)
	assert.Equal(t, "/tmp/usage.duckdb", cfg.Storage.DuckDB.Path)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("WATCHDOG_DISPLAY_LIMIT", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Display.Limit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "negative limit", body: "display:\n  limit: -1\n"},
		{name: "zero palette", body: "display:\n  palette_size: 0\n"},
		{name: "bad interval", body: "refresh:\n  interval: soon\n"},
		{name: "zero interval", body: "refresh:\n  interval: 0s\n"},
		{name: "unknown storage", body: "storage:\n  type: bolt\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefaultsMatchesLoad(t *testing.T) {
	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), loaded)
}

func TestKeysCoverEverySection(t *testing.T) {
	keys := Keys()

	for _, want := range []string{
		"display.limit",
		"refresh.follow_today",
		"storage.redis.key_prefix",
		"storage.duckdb.path",
		"logging.file",
		"metrics.port",
	} {
		assert.Contains(t, keys, want)
	}
}
