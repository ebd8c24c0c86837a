package scraper

import (
	goerrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storewatch/pkg/errors"
)

func TestRunLockAcquireAndRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme")

	lock, err := AcquireRunLock(dir, "acme")
	require.NoError(t, err)

	// The lock file records the holder's pid.
	data, err := os.ReadFile(filepath.Join(dir, ".run.lock"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	require.NoError(t, lock.Release())
	_, statErr := os.Stat(filepath.Join(dir, ".run.lock"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunLockContention(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme")

	first, err := AcquireRunLock(dir, "acme")
	require.NoError(t, err)
	defer first.Release()

	_, err = AcquireRunLock(dir, "acme")
	require.Error(t, err)

	var typed *errors.Error
	require.True(t, goerrors.As(err, &typed))
	assert.Equal(t, errors.ErrorTypeLocked, typed.Type)
	assert.Equal(t, "acme", typed.Retailer)
}

func TestRunLockReacquireAfterRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme")

	first, err := AcquireRunLock(dir, "acme")
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := AcquireRunLock(dir, "acme")
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

func TestRunLocksAreIndependentPerRetailer(t *testing.T) {
	base := t.TempDir()

	acme, err := AcquireRunLock(filepath.Join(base, "acme"), "acme")
	require.NoError(t, err)
	defer acme.Release()

	other, err := AcquireRunLock(filepath.Join(base, "bodega"), "bodega")
	require.NoError(t, err)
	assert.NoError(t, other.Release())
}
