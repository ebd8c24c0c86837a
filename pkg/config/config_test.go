package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 4, cfg.Scraper.ParallelWorkers)
	assert.Equal(t, 50, cfg.Scraper.CheckpointInterval)
	assert.Equal(t, 0, cfg.Scraper.Limit)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 60, cfg.HTTP.RequestsPerMinute)
	assert.Equal(t, "./data", cfg.Output.BaseDirectory)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotNil(t, cfg.Retailers)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
scraper:
  parallel_workers: 8
  checkpoint_interval: 10
cache:
  ttl: 48h
retailers:
  acme:
    discovery_url: https://acme.example/api/stores
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 8, cfg.Scraper.ParallelWorkers)
	assert.Equal(t, 10, cfg.Scraper.CheckpointInterval)
	assert.Equal(t, 48*time.Hour, cfg.Cache.TTL)
	// Untouched sections keep their defaults.
	assert.Equal(t, 60, cfg.HTTP.RequestsPerMinute)

	retailer, ok := cfg.Retailers["acme"]
	require.True(t, ok)
	assert.Equal(t, "https://acme.example/api/stores", retailer.DiscoveryURL)
}

func TestLoadFromFileMissingPathFails(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scraper: [not a map"), 0644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STOREWATCH_PARALLEL_WORKERS", "12")
	t.Setenv("STOREWATCH_CACHE_TTL", "24h")
	t.Setenv("STOREWATCH_LOG_LEVEL", "debug")
	t.Setenv("STOREWATCH_OUTPUT_DIR", "/tmp/stores")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 12, cfg.Scraper.ParallelWorkers)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/stores", cfg.Output.BaseDirectory)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("STOREWATCH_PARALLEL_WORKERS", "not-a-number")
	t.Setenv("STOREWATCH_CACHE_TTL", "eleventy")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 4, cfg.Scraper.ParallelWorkers)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"workers":       2,
		"limit":         100,
		"refresh-cache": true,
		"output":        "/srv/stores",
		"log-level":     "warn",
	})

	assert.Equal(t, 2, cfg.Scraper.ParallelWorkers)
	assert.Equal(t, 100, cfg.Scraper.Limit)
	assert.True(t, cfg.Cache.Refresh)
	assert.Equal(t, "/srv/stores", cfg.Output.BaseDirectory)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Nil and empty maps are no-ops.
	cfg.MergeCommandLineFlags(nil)
	assert.Equal(t, 2, cfg.Scraper.ParallelWorkers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Scraper.ParallelWorkers = 0 }},
		{"zero checkpoint interval", func(c *Config) { c.Scraper.CheckpointInterval = 0 }},
		{"negative delay", func(c *Config) { c.Scraper.DelayMin = -time.Second }},
		{"inverted delay range", func(c *Config) {
			c.Scraper.DelayMin = 5 * time.Second
			c.Scraper.DelayMax = time.Second
		}},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero http timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"bogus log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRetailerDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.BaseDirectory = "/var/lib/storewatch"
	assert.Equal(t, filepath.Join("/var/lib/storewatch", "acme"), cfg.RetailerDir("acme"))
}
