package changes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"storewatch/pkg/logger"
	"storewatch/pkg/models"
)

const (
	latestSnapshot   = "stores_latest.json"
	previousSnapshot = "stores_previous.json"
)

// HistoryEntry is one append-only record of a run's detected changes.
type HistoryEntry struct {
	RunID         string               `json:"run_id"`
	Timestamp     time.Time            `json:"timestamp"`
	NewCount      int                  `json:"new_count"`
	ClosedCount   int                  `json:"closed_count"`
	ModifiedCount int                  `json:"modified_count"`
	Details       *models.ChangeReport `json:"details"`
}

// Tracker owns snapshot rotation and change history for one retailer.
//
// Per-retailer state machine: no snapshot -> (first run) -> latest only ->
// (every subsequent run) -> latest + previous, with a history entry appended.
type Tracker struct {
	retailerDir string
	retailer    string
	logger      logger.Logger
}

// NewTracker creates a tracker rooted at the retailer's artifact directory.
func NewTracker(retailerDir, retailer string, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Tracker{retailerDir: retailerDir, retailer: retailer, logger: log}
}

func (t *Tracker) outputDir() string  { return filepath.Join(t.retailerDir, "output") }
func (t *Tracker) historyDir() string { return filepath.Join(t.retailerDir, "history") }

// LatestPath returns the path of the current snapshot.
func (t *Tracker) LatestPath() string {
	return filepath.Join(t.outputDir(), latestSnapshot)
}

// PreviousPath returns the path of the rotated prior snapshot.
func (t *Tracker) PreviousPath() string {
	return filepath.Join(t.outputDir(), previousSnapshot)
}

// LoadLatest reads the current snapshot. A missing file is not an error:
// it returns nil records, meaning the retailer has never been scraped.
func (t *Tracker) LoadLatest() ([]models.StoreRecord, error) {
	return t.loadSnapshot(t.LatestPath())
}

// LoadPrevious reads the rotated prior snapshot, nil if none exists.
func (t *Tracker) LoadPrevious() ([]models.StoreRecord, error) {
	return t.loadSnapshot(t.PreviousPath())
}

func (t *Tracker) loadSnapshot(path string) ([]models.StoreRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var records []models.StoreRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return records, nil
}

// Commit diffs the new record set against the current snapshot, rotates
// latest to previous, writes the new latest, and appends a history entry.
// The first ever run writes latest only; there is nothing to diff against
// so no history entry is produced.
func (t *Tracker) Commit(runID string, records []models.StoreRecord) (*models.ChangeReport, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	prevRecords, err := t.LoadLatest()
	if err != nil {
		return nil, err
	}
	firstRun := prevRecords == nil

	prevIndex := BuildIndex(prevRecords, t.logger)
	currIndex := BuildIndex(records, t.logger)
	report := DetectChanges(prevIndex, currIndex)

	if err := os.MkdirAll(t.outputDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Rotate before writing: latest becomes previous, then the new set
	// becomes latest. Rename is atomic so a crash leaves a usable pair.
	if !firstRun {
		if err := os.Rename(t.LatestPath(), t.PreviousPath()); err != nil {
			return nil, fmt.Errorf("failed to rotate snapshot: %w", err)
		}
	}
	if err := writeJSONAtomic(t.LatestPath(), records); err != nil {
		return nil, fmt.Errorf("failed to write latest snapshot: %w", err)
	}

	if firstRun {
		t.logger.InfoWithFields("first snapshot recorded", map[string]interface{}{
			"retailer": t.retailer,
			"stores":   len(records),
		})
		return report, nil
	}

	entry := HistoryEntry{
		RunID:         runID,
		Timestamp:     time.Now().UTC(),
		NewCount:      len(report.New),
		ClosedCount:   len(report.Closed),
		ModifiedCount: len(report.Modified),
		Details:       report,
	}
	if err := t.appendHistory(entry); err != nil {
		return nil, err
	}

	t.logger.InfoWithFields("change report recorded", map[string]interface{}{
		"retailer":  t.retailer,
		"new":       entry.NewCount,
		"closed":    entry.ClosedCount,
		"modified":  entry.ModifiedCount,
		"unchanged": report.UnchangedCount,
	})

	return report, nil
}

// appendHistory writes a timestamped entry file. Entries are never
// overwritten; a same-second rerun gets a nanosecond suffix instead.
func (t *Tracker) appendHistory(entry HistoryEntry) error {
	if err := os.MkdirAll(t.historyDir(), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	stamp := entry.Timestamp.Format("20060102T150405")
	path := filepath.Join(t.historyDir(), fmt.Sprintf("changes_%s.json", stamp))
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(t.historyDir(), fmt.Sprintf("changes_%s_%d.json", stamp, entry.Timestamp.Nanosecond()))
	}

	if err := writeJSONAtomic(path, entry); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// History loads all history entries for the retailer, oldest first.
func (t *Tracker) History() ([]HistoryEntry, error) {
	entries, err := os.ReadDir(t.historyDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var history []HistoryEntry
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(t.historyDir(), e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read history entry: %w", err)
		}
		var entry HistoryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			t.logger.WarnWithFields("skipping unreadable history entry", map[string]interface{}{
				"file": e.Name(),
			})
			continue
		}
		history = append(history, entry)
	}
	return history, nil
}

// writeJSONAtomic writes v as indented JSON via a temp file and rename so a
// crash mid-write cannot leave a truncated artifact.
func writeJSONAtomic(path string, v interface{}) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}
