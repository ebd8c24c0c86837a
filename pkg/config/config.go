package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the store-locator crawler.
type Config struct {
	// Scraper controls the orchestrator's execution behavior
	Scraper ScraperConfig `yaml:"scraper" json:"scraper"`

	// Cache controls the discovered-item cache
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// HTTP controls the per-retailer client handles
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Retailers maps retailer names to their endpoint configuration,
	// consumed by the generic JSON adapter
	Retailers map[string]RetailerConfig `yaml:"retailers" json:"retailers"`
}

// ScraperConfig holds orchestrator settings.
type ScraperConfig struct {
	ParallelWorkers    int           `yaml:"parallel_workers" json:"parallel_workers"`
	CheckpointInterval int           `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	HeartbeatInterval  int           `yaml:"heartbeat_interval" json:"heartbeat_interval"`
	DelayMin           time.Duration `yaml:"delay_min" json:"delay_min"`
	DelayMax           time.Duration `yaml:"delay_max" json:"delay_max"`
	Limit              int           `yaml:"limit" json:"limit"`
	DiscoveryRetries   int           `yaml:"discovery_retries" json:"discovery_retries"`
}

// CacheConfig holds item-cache settings.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
	Refresh bool          `yaml:"refresh" json:"refresh"`
}

// HTTPConfig holds settings applied to every retailer client handle.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output directory configuration.
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// RetailerConfig describes a retailer's store-locator endpoint for the
// generic JSON adapter. Retailers needing custom parsing bypass this and
// register their own discover/extract functions.
type RetailerConfig struct {
	DiscoveryURL string `yaml:"discovery_url" json:"discovery_url"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			ParallelWorkers:    4,
			CheckpointInterval: 50,
			HeartbeatInterval:  25,
			DelayMin:           500 * time.Millisecond,
			DelayMax:           2 * time.Second,
			Limit:              0, // 0 means no limit
			DiscoveryRetries:   3,
		},
		Cache: CacheConfig{
			TTL:     7 * 24 * time.Hour,
			Refresh: false,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryDelay:        2 * time.Second,
			RequestsPerMinute: 60,
			UserAgent:         "storewatch/1.0",
		},
		Output: OutputConfig{
			BaseDirectory: "./data",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Retailers: map[string]RetailerConfig{},
	}
}

// LoadFromEnv loads configuration overrides from environment variables.
func (c *Config) LoadFromEnv() error {
	if workers := os.Getenv("STOREWATCH_PARALLEL_WORKERS"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil && val > 0 {
			c.Scraper.ParallelWorkers = val
		}
	}
	if interval := os.Getenv("STOREWATCH_CHECKPOINT_INTERVAL"); interval != "" {
		if val, err := strconv.Atoi(interval); err == nil && val > 0 {
			c.Scraper.CheckpointInterval = val
		}
	}
	if ttl := os.Getenv("STOREWATCH_CACHE_TTL"); ttl != "" {
		if val, err := time.ParseDuration(ttl); err == nil && val > 0 {
			c.Cache.TTL = val
		}
	}
	if rpm := os.Getenv("STOREWATCH_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.HTTP.RequestsPerMinute = val
		}
	}
	if ua := os.Getenv("STOREWATCH_USER_AGENT"); ua != "" {
		c.HTTP.UserAgent = ua
	}
	if outputDir := os.Getenv("STOREWATCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logLevel := os.Getenv("STOREWATCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".storewatch.yaml",
		".storewatch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "storewatch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "storewatch", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".storewatch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// MergeCommandLineFlags applies command line flag overrides.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if flags == nil {
		return
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Scraper.ParallelWorkers = workers
	}
	if limit, ok := flags["limit"].(int); ok && limit > 0 {
		c.Scraper.Limit = limit
	}
	if refresh, ok := flags["refresh-cache"].(bool); ok && refresh {
		c.Cache.Refresh = true
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Scraper.ParallelWorkers < 1 {
		return fmt.Errorf("scraper.parallel_workers must be at least 1")
	}
	if c.Scraper.CheckpointInterval < 1 {
		return fmt.Errorf("scraper.checkpoint_interval must be at least 1")
	}
	if c.Scraper.DelayMin < 0 || c.Scraper.DelayMax < c.Scraper.DelayMin {
		return fmt.Errorf("scraper delay range is invalid: min=%s max=%s", c.Scraper.DelayMin, c.Scraper.DelayMax)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not valid", c.Logging.Level)
	}
	return nil
}

// RetailerDir returns the per-retailer artifact directory.
func (c *Config) RetailerDir(retailer string) string {
	return filepath.Join(c.Output.BaseDirectory, retailer)
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".storewatch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
