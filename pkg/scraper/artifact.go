package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// writeJSONAtomic writes v as indented JSON via temp file + rename, the same
// crash-safe discipline the checkpoint store uses.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}
	return nil
}
