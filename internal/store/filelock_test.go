package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func shortLockConfig() *FileLockConfig {
	return &FileLockConfig{LockRetry: 10 * time.Millisecond, LockMaxRetry: 20}
}

func TestNewFileLock(t *testing.T) {
	tmpDir := t.TempDir()

	lock, err := NewFileLock("test-models-root", tmpDir, nil)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if !lock.IsLocked() {
		t.Error("Expected lock to be held")
	}

	lock.Unlock()
	if lock.IsLocked() {
		t.Error("Expected lock to be released after Unlock()")
	}
}

func TestFileLockConcurrentAcquireFails(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := shortLockConfig()

	lock1, err := NewFileLock("test-models-root", tmpDir, cfg)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Unlock()

	lock2, err := NewFileLock("test-models-root", tmpDir, cfg)
	if err == nil {
		lock2.Unlock()
		t.Error("Expected second lock acquisition to fail while the first is held")
	}
}

func TestFileLockDoubleUnlock(t *testing.T) {
	tmpDir := t.TempDir()

	lock, err := NewFileLock("test-models-root", tmpDir, nil)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	lock.Unlock()
	lock.Unlock()

	if lock.IsLocked() {
		t.Error("Expected lock to remain released after double unlock")
	}
}

func TestFileLockRetryThenRelease(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := shortLockConfig()

	lock1, err := NewFileLock("test-models-root", tmpDir, cfg)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		lock1.Unlock()
	}()

	lock2, err := NewFileLock("test-models-root", tmpDir, cfg)
	if err != nil {
		t.Fatalf("Expected second lock to succeed once the first released: %v", err)
	}
	lock2.Unlock()
}

func TestFileLockTryLock(t *testing.T) {
	tmpDir := t.TempDir()

	lock1, err := NewFileLock("test-models-root", tmpDir, nil)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Unlock()

	flockFile := flock.New(filepath.Join(tmpDir, "models.lock"))
	locked, err := flockFile.TryLock()
	if err != nil {
		t.Fatalf("flock TryLock failed: %v", err)
	}
	if locked {
		t.Error("Expected flock to fail due to held lock")
		flockFile.Unlock()
	}
}
