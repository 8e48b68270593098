// Package lock guards against concurrent benchmark runs. Trials assume
// exclusive access to the host's docker network and ports, so a second
// lockbench invocation must fail fast instead of corrupting a sweep.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/jayteealao/lockbench/internal/errors"
)

const lockName = "run"

// RunLock is the held host-wide benchmark lock.
type RunLock struct {
	flock    *flock.Flock
	pidFile  string
	lockPath string
}

// Manager creates run locks under a data directory.
type Manager struct {
	lockDir string
}

// NewManager creates a lock manager rooted at dataDir.
func NewManager(dataDir string) (*Manager, error) {
	lockDir := filepath.Join(dataDir, "locks")
	if err := os.MkdirAll(lockDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Manager{lockDir: lockDir}, nil
}

// Acquire attempts to take the run lock without waiting. A lock left by a
// dead process is cleaned up first. Returns ErrRunLocked, with the holder
// PID when known, if another live run holds it.
func (m *Manager) Acquire() (*RunLock, error) {
	lockPath := filepath.Join(m.lockDir, lockName+".lock")
	pidFile := filepath.Join(m.lockDir, lockName+".pid")

	m.cleanStaleLock(pidFile, lockPath)

	fl := flock.New(lockPath)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		if pid, err := readPIDFile(pidFile); err == nil {
			return nil, fmt.Errorf("%w: held by PID %d", errors.ErrRunLocked, pid)
		}
		return nil, errors.ErrRunLocked
	}

	if err := writePIDFile(pidFile); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &RunLock{
		flock:    fl,
		pidFile:  pidFile,
		lockPath: lockPath,
	}, nil
}

// cleanStaleLock removes lock remnants whose owning process is gone.
func (m *Manager) cleanStaleLock(pidFile, lockPath string) {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return
	}

	if isProcessRunning(pid) {
		return
	}

	os.Remove(pidFile)
	os.Remove(lockPath)
}

// Release releases the run lock and removes its files.
func (l *RunLock) Release() error {
	os.Remove(l.pidFile)

	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}

	os.Remove(l.lockPath)

	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// isProcessRunning checks whether a PID belongs to a live process. On
// Unix FindProcess always succeeds, so a nil signal probes liveness.
func isProcessRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(os.Signal(nil))
	if err == nil {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "process already finished") ||
		strings.Contains(errStr, "no such process") ||
		strings.Contains(errStr, "Access is denied") {
		return false
	}

	// If liveness can't be determined, assume the holder is alive.
	return true
}
