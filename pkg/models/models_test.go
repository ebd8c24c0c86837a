package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsOmitsEmptyAndVolatile(t *testing.T) {
	r := StoreRecord{
		StoreID:   "42",
		Name:      "Acme North",
		City:      "Portland",
		ScrapedAt: time.Now(),
	}
	r.SetExtra("hours", "9-5")
	r.SetExtra("empty_extra", "")

	fields := r.Fields()
	assert.Equal(t, map[string]string{
		"store_id": "42",
		"name":     "Acme North",
		"city":     "Portland",
		"hours":    "9-5",
	}, fields)

	_, hasTimestamp := fields[FieldScrapedAt]
	assert.False(t, hasTimestamp, "scrape timestamp is volatile, not a comparison field")
}

func TestFieldsAbsentEqualsEmpty(t *testing.T) {
	withEmpty := StoreRecord{StoreID: "1", Phone: ""}
	without := StoreRecord{StoreID: "1"}
	assert.Equal(t, without.Fields(), withEmpty.Fields())
}

func TestMarshalFlattens(t *testing.T) {
	r := StoreRecord{
		StoreID:   "42",
		Name:      "Acme North",
		ScrapedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	r.SetExtra("drive_thru", "yes")

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var flat map[string]string
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, map[string]string{
		"store_id":   "42",
		"name":       "Acme North",
		"drive_thru": "yes",
		"scraped_at": "2026-03-01T12:00:00Z",
	}, flat)
}

func TestUnmarshalRoutesUnknownKeysToExtra(t *testing.T) {
	payload := `{
		"store_id": "42",
		"name": "Acme North",
		"city": "Portland",
		"scraped_at": "2026-03-01T12:00:00Z",
		"hours": "9-5",
		"drive_thru": "yes"
	}`

	var r StoreRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, "42", r.StoreID)
	assert.Equal(t, "Portland", r.City)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), r.ScrapedAt)
	assert.Equal(t, map[string]string{"hours": "9-5", "drive_thru": "yes"}, r.Extra)
}

func TestUnmarshalStringifiesScalars(t *testing.T) {
	payload := `{"store_id": 42, "latitude": 45.52, "open": true, "manager": null}`

	var r StoreRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	assert.Equal(t, "42", r.StoreID)
	assert.Equal(t, "45.52", r.Extra["latitude"])
	assert.Equal(t, "true", r.Extra["open"])
	assert.Equal(t, "", r.Extra["manager"])
}

func TestRoundTrip(t *testing.T) {
	original := StoreRecord{
		StoreID:       "42",
		URL:           "https://acme.example/stores/42",
		Name:          "Acme North",
		StreetAddress: "123 Main St",
		City:          "Portland",
		State:         "OR",
		Zip:           "97201",
		Phone:         "555-0100",
		ScrapedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	original.SetExtra("hours", "9-5")

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded StoreRecord
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.Fields(), decoded.Fields())
	assert.True(t, original.ScrapedAt.Equal(decoded.ScrapedAt))
}

func TestItemKey(t *testing.T) {
	assert.Equal(t, "42", Item{ID: "42", URL: "https://x"}.Key())
	assert.Equal(t, "https://x", Item{URL: "https://x"}.Key())
	assert.Equal(t, "", Item{}.Key())
}

func TestChangeReportEmpty(t *testing.T) {
	empty := &ChangeReport{UnchangedCount: 10}
	assert.True(t, empty.Empty())

	assert.False(t, (&ChangeReport{New: []string{"id:1"}}).Empty())
	assert.False(t, (&ChangeReport{Closed: []string{"id:1"}}).Empty())
	assert.False(t, (&ChangeReport{Modified: []FieldChange{{Key: "id:1"}}}).Empty())
}
