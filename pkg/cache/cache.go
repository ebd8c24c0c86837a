// Package cache persists discovered work items per retailer so repeated runs
// can skip expensive discovery. Entries expire after a TTL, and any read
// problem (missing file, corrupt JSON, wrong shape) degrades to a cache miss
// that triggers rediscovery. A cache failure is never fatal.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storewatch/pkg/logger"
	"storewatch/pkg/models"
)

// DefaultTTL is how long cached item lists stay fresh.
const DefaultTTL = 7 * 24 * time.Hour

type cacheFile struct {
	Items    []models.Item `json:"items"`
	CachedAt time.Time     `json:"cached_at"`
}

// ItemCache stores discovered items under {retailer}/cache/urls.json.
type ItemCache struct {
	baseDir string
	ttl     time.Duration
	logger  logger.Logger
}

// New creates an item cache rooted at baseDir. A non-positive ttl falls back
// to DefaultTTL.
func New(baseDir string, ttl time.Duration, log logger.Logger) *ItemCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &ItemCache{baseDir: baseDir, ttl: ttl, logger: log}
}

func (c *ItemCache) path(retailer string) string {
	return filepath.Join(c.baseDir, retailer, "cache", "urls.json")
}

// Get returns the cached items for a retailer, or nil on a miss. A miss is
// silent: expired, missing, or unreadable entries all behave the same way.
func (c *ItemCache) Get(retailer string, forceRefresh bool) []models.Item {
	if forceRefresh {
		return nil
	}

	data, err := os.ReadFile(c.path(retailer))
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.WarnWithFields("item cache unreadable, treating as miss", map[string]interface{}{
				"retailer": retailer,
				"error":    err.Error(),
			})
		}
		return nil
	}

	var entry cacheFile
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WarnWithFields("item cache corrupt, treating as miss", map[string]interface{}{
			"retailer": retailer,
			"error":    err.Error(),
		})
		return nil
	}

	age := time.Since(entry.CachedAt)
	if age > c.ttl {
		c.logger.DebugWithFields("item cache expired", map[string]interface{}{
			"retailer": retailer,
			"age":      age,
			"ttl":      c.ttl,
		})
		return nil
	}

	c.logger.DebugWithFields("item cache hit", map[string]interface{}{
		"retailer": retailer,
		"items":    len(entry.Items),
		"age":      age,
	})
	return entry.Items
}

// Set persists the discovered items with a capture timestamp.
func (c *ItemCache) Set(retailer string, items []models.Item) error {
	path := c.path(retailer)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	entry := cacheFile{Items: items, CachedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}

	return nil
}
