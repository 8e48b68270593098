package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jayteealao/lockbench/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	return manager
}

func TestAcquireAndRelease(t *testing.T) {
	manager := setupTestManager(t)

	runLock, err := manager.Acquire()
	require.NoError(t, err)
	require.NotNil(t, runLock)

	// PID file records the holder.
	data, err := os.ReadFile(runLock.pidFile)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, runLock.Release())

	// Reacquire after release succeeds.
	again, err := manager.Acquire()
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquireWhileHeld(t *testing.T) {
	manager := setupTestManager(t)

	runLock, err := manager.Acquire()
	require.NoError(t, err)
	defer runLock.Release()

	_, err = manager.Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRunLocked)
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
}

func TestAcquireCleansStaleLock(t *testing.T) {
	manager := setupTestManager(t)

	lockPath := filepath.Join(manager.lockDir, lockName+".lock")
	pidFile := filepath.Join(manager.lockDir, lockName+".pid")

	// Simulate a crashed run: lock files left behind by a dead PID.
	require.NoError(t, os.WriteFile(lockPath, nil, 0644))
	require.NoError(t, os.WriteFile(pidFile, []byte("999999"), 0644))

	runLock, err := manager.Acquire()
	require.NoError(t, err)
	require.NoError(t, runLock.Release())
}

func TestNewManagerCreatesLockDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")

	manager, err := NewManager(dataDir)
	require.NoError(t, err)

	info, err := os.Stat(manager.lockDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
