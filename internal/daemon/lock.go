package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/miniview-io/miniview/internal/config"
)

// writeLockFile claims the daemon lock by writing our PID into it.
func writeLockFile(path string, pid int) error {
	if path == "" {
		return fmt.Errorf("daemon: lock file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("daemon: create lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return fmt.Errorf("daemon: write lock file: %w", err)
	}
	return nil
}

// removeLockFile releases the lock; a missing file is fine.
func removeLockFile(path string) {
	if path == "" {
		return
	}
	os.Remove(path)
}

// IsRunning reports whether a daemon for the instance already holds the
// lock file and its process is still alive. A stale lock file is removed.
func IsRunning(instanceName string) bool {
	paths := config.GetInstancePaths(instanceName)

	data, err := os.ReadFile(paths.Lock)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		os.Remove(paths.Lock)
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(paths.Lock)
		return false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(paths.Lock)
		return false
	}
	return true
}
