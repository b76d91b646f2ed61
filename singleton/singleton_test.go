package singleton

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func lockFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "superwhisper.pid")
}

func TestAcquireAndRelease(t *testing.T) {
	path := lockFile(t)

	l, err := acquire(path, 1234, func(int) bool { return true })
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != 1234 {
		t.Errorf("pid = %d, want 1234", pid)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("lock file should be removed after Release")
	}
}

func TestAcquireExclusive(t *testing.T) {
	path := lockFile(t)

	if _, err := acquire(path, 100, func(int) bool { return true }); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err := acquire(path, 200, func(int) bool { return true })
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second acquire err = %v, want ErrAlreadyRunning", err)
	}
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	path := lockFile(t)

	// Simulate a crash: lock file present, process absent.
	if err := os.WriteFile(path, []byte("99999"), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := acquire(path, 4321, func(int) bool { return false })
	if err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}

	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != 4321 {
		t.Errorf("pid = %d, want 4321", pid)
	}
	_ = l.Release()
}

func TestAcquireReclaimsGarbageLock(t *testing.T) {
	path := lockFile(t)

	if err := os.WriteFile(path, []byte("not a pid"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := acquire(path, 777, func(int) bool { return true }); err != nil {
		t.Fatalf("acquire over garbage lock: %v", err)
	}
}

func TestReleaseNilAndMissing(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release: %v", err)
	}

	path := lockFile(t)
	held, err := acquire(path, 1, func(int) bool { return true })
	if err != nil {
		t.Fatal(err)
	}
	_ = os.Remove(path)
	if err := held.Release(); err != nil {
		t.Errorf("Release with missing file: %v", err)
	}
}

func TestRunning(t *testing.T) {
	path := lockFile(t)

	if _, ok := Running(path); ok {
		t.Error("Running should be false without a lock file")
	}

	// Our own pid is certainly alive.
	l, err := acquire(path, os.Getpid(), processAlive)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	pid, ok := Running(path)
	if !ok {
		t.Fatal("Running should be true for our own pid")
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
}
