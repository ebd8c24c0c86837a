package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known StoreRecord field names. Retailer-specific fields beyond these
// live in the Extra bag and round-trip through JSON as flat keys.
const (
	FieldStoreID       = "store_id"
	FieldURL           = "url"
	FieldName          = "name"
	FieldStreetAddress = "street_address"
	FieldCity          = "city"
	FieldState         = "state"
	FieldZip           = "zip"
	FieldPhone         = "phone"
	FieldScrapedAt     = "scraped_at"
)

// StoreRecord is a single normalized store listing. The well-known fields are
// all optional; anything else a retailer exposes goes into Extra. ScrapedAt is
// volatile and is excluded from identity and change comparison.
type StoreRecord struct {
	StoreID       string
	URL           string
	Name          string
	StreetAddress string
	City          string
	State         string
	Zip           string
	Phone         string
	ScrapedAt     time.Time
	Extra         map[string]string
}

// Fields returns every non-volatile field as a flat name -> value map.
// Empty well-known fields are omitted so that "absent" and "empty" compare
// the same way regardless of how the record was constructed.
func (r StoreRecord) Fields() map[string]string {
	fields := make(map[string]string, len(r.Extra)+8)
	put := func(name, value string) {
		if value != "" {
			fields[name] = value
		}
	}
	put(FieldStoreID, r.StoreID)
	put(FieldURL, r.URL)
	put(FieldName, r.Name)
	put(FieldStreetAddress, r.StreetAddress)
	put(FieldCity, r.City)
	put(FieldState, r.State)
	put(FieldZip, r.Zip)
	put(FieldPhone, r.Phone)
	for k, v := range r.Extra {
		put(k, v)
	}
	return fields
}

// SetExtra records a retailer-specific field, allocating the bag on first use.
func (r *StoreRecord) SetExtra(name, value string) {
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	r.Extra[name] = value
}

// MarshalJSON flattens the record into a single JSON object, the conventional
// on-disk shape for snapshots and checkpoints.
func (r StoreRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(r.Extra)+9)
	for k, v := range r.Fields() {
		flat[k] = v
	}
	if !r.ScrapedAt.IsZero() {
		flat[FieldScrapedAt] = r.ScrapedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(flat)
}

// UnmarshalJSON accepts a flat JSON object, routing well-known keys to struct
// fields and everything else to Extra. Non-string scalars are stringified.
func (r *StoreRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = StoreRecord{}
	for name, value := range raw {
		str := stringifyScalar(value)
		switch name {
		case FieldStoreID:
			r.StoreID = str
		case FieldURL:
			r.URL = str
		case FieldName:
			r.Name = str
		case FieldStreetAddress:
			r.StreetAddress = str
		case FieldCity:
			r.City = str
		case FieldState:
			r.State = str
		case FieldZip:
			r.Zip = str
		case FieldPhone:
			r.Phone = str
		case FieldScrapedAt:
			if ts, err := time.Parse(time.RFC3339, str); err == nil {
				r.ScrapedAt = ts
			}
		default:
			r.SetExtra(name, str)
		}
	}
	return nil
}

func stringifyScalar(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		// JSON numbers arrive as float64; keep integers undecorated.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Item is a unit of discovered work: a store detail URL or an opaque id the
// retailer's extraction logic knows how to fetch.
type Item struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`
}

// Key returns the identifier used for the completed-set and failure tracking.
func (i Item) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return i.URL
}

// RunResult is the outcome of one orchestrated scrape run.
type RunResult struct {
	RunID          string        `json:"run_id"`
	Records        []StoreRecord `json:"records"`
	Count          int           `json:"count"`
	FailedIDs      []string      `json:"failed_ids"`
	CheckpointUsed bool          `json:"checkpoint_used"`
}

// FieldChange names a modified store and which fields differ.
type FieldChange struct {
	Key           string   `json:"key"`
	ChangedFields []string `json:"changed_fields"`
}

// ChangeReport is the diff between two snapshots. All lists are sorted by
// key so output is deterministic regardless of record input order.
type ChangeReport struct {
	New            []string      `json:"new"`
	Closed         []string      `json:"closed"`
	Modified       []FieldChange `json:"modified"`
	UnchangedCount int           `json:"unchanged_count"`
}

// Empty reports whether the diff found no differences at all.
func (c *ChangeReport) Empty() bool {
	return len(c.New) == 0 && len(c.Closed) == 0 && len(c.Modified) == 0
}

// FailedExtractions is the per-run failure artifact written alongside output.
type FailedExtractions struct {
	RunDate     time.Time `json:"run_date"`
	FailedCount int       `json:"failed_count"`
	FailedIDs   []string  `json:"failed_ids"`
}
