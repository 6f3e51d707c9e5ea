package bot

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"tunefetch/internal/fileutil"
)

// AcquireInstanceLock takes an exclusive file lock so two processes never
// poll the same bot token; Telegram rejects concurrent getUpdates callers.
// The returned release function is safe to call once at shutdown.
func AcquireInstanceLock(path string) (func(), error) {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance already holds %s", path)
	}
	return func() { _ = lock.Unlock() }, nil
}
