// Package singleton guarantees a single live daemon per user session
// through a pid lock file.
package singleton

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned when a live process already holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

const lockFileName = "superwhisper.pid"

// LockPath returns the pid lock file path. On session-managed desktops this
// lives under XDG_RUNTIME_DIR so it vanishes with the session.
func LockPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, lockFileName)
	}
	return filepath.Join(os.TempDir(), lockFileName)
}

// Lock is a held instance lock. Release it on clean shutdown; after a crash
// the staleness check in Acquire is the recovery path.
type Lock struct {
	path string
	pid  int
}

// Acquire attempts to take the instance lock at path. If the file names a
// live process it fails with ErrAlreadyRunning. A lock file whose recorded
// pid is not alive is stale: it is removed and acquisition retried once.
func Acquire(path string) (*Lock, error) {
	return acquire(path, os.Getpid(), processAlive)
}

func acquire(path string, pid int, alive func(pid int) bool) (*Lock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			if _, werr := fmt.Fprintf(f, "%d", pid); werr != nil {
				f.Close()
				os.Remove(path)
				return nil, fmt.Errorf("write lock file: %w", werr)
			}
			if cerr := f.Close(); cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("close lock file: %w", cerr)
			}
			return &Lock{path: path, pid: pid}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		owner, rerr := ReadPID(path)
		if rerr == nil && alive(owner) {
			return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, owner)
		}

		// Stale or unreadable: reclaim and retry once.
		slog.Warn("reclaiming stale lock file", "path", path, "pid", owner)
		if rmerr := os.Remove(path); rmerr != nil && !os.IsNotExist(rmerr) {
			return nil, fmt.Errorf("remove stale lock file: %w", rmerr)
		}
	}
	return nil, fmt.Errorf("acquire lock %s: retries exhausted", path)
}

// Release removes the lock file. The absence of the file is not an error;
// staleness must never be user-visible as a crash.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// ReadPID reads the process id recorded in the lock file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse lock file %s: %w", path, err)
	}
	return pid, nil
}

// Running reports whether the lock file at path names a live process.
func Running(path string) (int, bool) {
	pid, err := ReadPID(path)
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}

// processAlive probes a pid with signal 0. EPERM still means the process
// exists, just owned by someone else.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
