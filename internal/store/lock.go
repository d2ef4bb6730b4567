package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the poll interval while another process holds a lock.
const lockRetryDelay = 100 * time.Millisecond

// FileLock is an exclusive cross-process lock on one media file's digest.
type FileLock struct {
	lock *flock.Flock
}

// Lock blocks until the extraction lock for digest is held or ctx ends. Locks
// live in dir as <digest>.lock.
func Lock(ctx context.Context, dir, digest string) (*FileLock, error) {
	if digest == "" {
		return nil, fmt.Errorf("lock: empty digest")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(filepath.Join(dir, digest+".lock"))
	ok, err := fl.TryLockContext(ensureContext(ctx), lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire lock %s: not acquired", fl.Path())
	}
	return &FileLock{lock: fl}, nil
}

// TryLock attempts the lock once. The boolean is false if another process
// holds it.
func TryLock(dir, digest string) (*FileLock, bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(filepath.Join(dir, digest+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, false, nil
	}
	return &FileLock{lock: fl}, true, nil
}

// Unlock releases the lock. It is safe to call on a nil lock.
func (l *FileLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
