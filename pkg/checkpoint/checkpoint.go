package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"storewatch/pkg/logger"
	"storewatch/pkg/models"
)

// Checkpoint is the durable state of an in-progress scrape run: which items
// are done, the records accumulated so far, and when it was last written.
type Checkpoint struct {
	CompletedIDs []string             `json:"completed_ids"`
	Records      []models.StoreRecord `json:"records"`
	LastUpdated  time.Time            `json:"last_updated"`
}

// NewCheckpoint returns an empty checkpoint for a fresh run.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{
		CompletedIDs: []string{},
		Records:      []models.StoreRecord{},
	}
}

// CompletedSet materializes the completed ids as a set for resume filtering.
func (c *Checkpoint) CompletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.CompletedIDs))
	for _, id := range c.CompletedIDs {
		set[id] = struct{}{}
	}
	return set
}

// MarkCompleted records a finished item. The id set is unordered by design;
// ids are sorted at save time for stable on-disk output.
func (c *Checkpoint) MarkCompleted(id string, record *models.StoreRecord) {
	c.CompletedIDs = append(c.CompletedIDs, id)
	if record != nil {
		c.Records = append(c.Records, *record)
	}
}

// Manager handles checkpoint persistence for one retailer.
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager writing under
// {retailerDir}/checkpoints/scrape_progress.json.
func NewManager(retailerDir string, log logger.Logger) (*Manager, error) {
	checkpointsDir := filepath.Join(retailerDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		checkpointPath: filepath.Join(checkpointsDir, "scrape_progress.json"),
		logger:         log,
	}, nil
}

// Path returns the checkpoint file location.
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load reads an existing checkpoint. A missing file returns nil. A corrupt
// file also returns nil after logging a warning: the run degrades to a fresh
// start rather than failing, and the broken file is left aside for forensics.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		m.logger.WarnWithFields("checkpoint unreadable, starting fresh", map[string]interface{}{
			"path":  m.checkpointPath,
			"error": err.Error(),
		})
		return nil, nil
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		m.logger.WarnWithFields("checkpoint corrupt, starting fresh", map[string]interface{}{
			"path":  m.checkpointPath,
			"error": err.Error(),
		})
		// Keep the corrupt file out of the way so the next save succeeds.
		_ = os.Rename(m.checkpointPath, m.checkpointPath+".corrupt")
		return nil, nil
	}

	m.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"completed":    len(checkpoint.CompletedIDs),
		"records":      len(checkpoint.Records),
		"last_updated": checkpoint.LastUpdated,
	})

	return &checkpoint, nil
}

// Save writes the checkpoint to disk atomically: encode to a temp file, fsync,
// then rename over the old file. A crash mid-write cannot corrupt it.
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.LastUpdated = time.Now().UTC()
	sort.Strings(checkpoint.CompletedIDs)

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("checkpoint saved", map[string]interface{}{
		"completed": len(checkpoint.CompletedIDs),
		"records":   len(checkpoint.Records),
	})

	return nil
}

// Delete removes the checkpoint file.
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Info("checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}
