// Package adapters provides ready-made discover/extract functions for common
// store-locator shapes. Retailers with bespoke markup implement the scraper
// package's function contracts directly instead.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storewatch/pkg/config"
	"storewatch/pkg/errors"
	"storewatch/pkg/models"
	"storewatch/pkg/registry"
)

// JSONAdapter handles retailers whose locator is a plain JSON API: one
// discovery endpoint returning an array of items ({"id": ..., "url": ...}),
// and per-item URLs each returning a flat store object.
type JSONAdapter struct {
	discoveryURL string
}

// NewJSONAdapter builds an adapter from a retailer's endpoint configuration.
func NewJSONAdapter(cfg config.RetailerConfig) (*JSONAdapter, error) {
	if cfg.DiscoveryURL == "" {
		return nil, fmt.Errorf("retailer has no discovery_url configured")
	}
	return &JSONAdapter{discoveryURL: cfg.DiscoveryURL}, nil
}

// Discover fetches and decodes the item list.
func (a *JSONAdapter) Discover(ctx context.Context, client registry.Client) ([]models.Item, error) {
	resp, err := client.Get(ctx, a.discoveryURL)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "discovery endpoint returned non-success status",
			Code:    resp.StatusCode,
		}
	}

	var items []models.Item
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, "discovery payload is not an item array", err)
	}

	valid := items[:0]
	for _, item := range items {
		if item.Key() != "" {
			valid = append(valid, item)
		}
	}
	return valid, nil
}

// Extract fetches one item's detail URL and decodes the store record,
// stamping the volatile scrape timestamp and backfilling identity fields
// from the item descriptor.
func (a *JSONAdapter) Extract(ctx context.Context, client registry.Client, item models.Item) (*models.StoreRecord, error) {
	if item.URL == "" {
		return nil, errors.New(errors.ErrorTypeParsing, "item has no detail URL")
	}

	resp, err := client.Get(ctx, item.URL)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: fmt.Sprintf("detail endpoint returned status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	var record models.StoreRecord
	if err := json.Unmarshal(resp.Body, &record); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, "detail payload is not a store object", err)
	}

	if record.StoreID == "" {
		record.StoreID = item.ID
	}
	if record.URL == "" {
		record.URL = item.URL
	}
	record.ScrapedAt = time.Now().UTC()

	return &record, nil
}
