package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/harunnryd/nimbus/internal/config"

	"github.com/gofrs/flock"
)

// FileLock guards the classifier model directory while the Model Loader
// runs LoadAll, so a retrain running in another process can't race a load.
type FileLock struct {
	fileLock   *flock.Flock
	lockPath   string
	modelsRoot string
}

type FileLockConfig struct {
	LockRetry    time.Duration
	LockMaxRetry int
}

func DefaultFileLockConfig() *FileLockConfig {
	lockRetry, _ := config.DurationOrDefault(config.DefaultModelLockRetry, config.DefaultModelLockRetry)

	return &FileLockConfig{
		LockRetry:    lockRetry,
		LockMaxRetry: config.DefaultModelLockMaxRetry,
	}
}

// NewFileLock acquires an exclusive lock on basePath/models.lock, retrying
// up to cfg.LockMaxRetry times. modelsRoot identifies the model directory
// being guarded and is used only for logging.
func NewFileLock(modelsRoot, basePath string, cfg *FileLockConfig) (*FileLock, error) {
	if cfg == nil {
		cfg = DefaultFileLockConfig()
	}

	lockPath := filepath.Join(basePath, "models.lock")
	fl := &FileLock{
		fileLock:   flock.New(lockPath),
		lockPath:   lockPath,
		modelsRoot: modelsRoot,
	}

	if err := fl.acquireWithRetry(cfg); err != nil {
		return nil, err
	}

	slog.Info("Model directory lock acquired", "models_root", modelsRoot, "path", lockPath)
	return fl, nil
}

func (fl *FileLock) acquireWithRetry(cfg *FileLockConfig) error {
	for i := 0; i < cfg.LockMaxRetry; i++ {
		locked, err := fl.fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to attempt lock: %w", err)
		}
		if locked {
			return nil
		}

		if i < cfg.LockMaxRetry-1 {
			time.Sleep(cfg.LockRetry)
		}
	}

	return fmt.Errorf("model directory %s is locked by another instance (gave up after %d attempts)",
		fl.modelsRoot, cfg.LockMaxRetry)
}

func (fl *FileLock) Unlock() {
	if fl.fileLock == nil {
		return
	}

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release model directory lock", "models_root", fl.modelsRoot, "path", fl.lockPath, "error", err)
	} else {
		slog.Info("Model directory lock released", "models_root", fl.modelsRoot, "path", fl.lockPath)
	}

	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	return fl.fileLock != nil
}
