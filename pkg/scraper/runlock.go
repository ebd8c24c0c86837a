package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storewatch/pkg/errors"
)

// RunLock serializes runs for a single retailer. Concurrent runs of the same
// retailer would race on the checkpoint and snapshot files, so the second
// caller fails fast with ErrorTypeLocked instead.
type RunLock struct {
	path string
}

// AcquireRunLock takes the retailer's run lock, creating the lock file
// exclusively with this process's pid inside. A stale lock from a crashed
// run must be removed by the operator; guessing at staleness risks letting
// two live runs through.
func AcquireRunLock(retailerDir, retailer string) (*RunLock, error) {
	if err := os.MkdirAll(retailerDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create retailer directory: %w", err)
	}

	path := filepath.Join(retailerDir, ".run.lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			holder, _ := os.ReadFile(path)
			return nil, errors.RunLocked(retailer, "pid "+strings.TrimSpace(string(holder)))
		}
		return nil, fmt.Errorf("failed to create run lock: %w", err)
	}

	fmt.Fprintf(file, "%d\n", os.Getpid())
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write run lock: %w", err)
	}

	return &RunLock{path: path}, nil
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *RunLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
