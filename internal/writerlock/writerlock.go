// Package writerlock implements the advisory exclusive write lock held by
// the single process allowed to mutate a given index directory at a time
// (spec.md §4.8). It is backed by flock(2), so the lock is automatically
// released if the holding process dies without closing it.
package writerlock

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/standardbeagle/ltix/internal/ltixerrors"
)

// FileName is the lock file's name within an index directory.
const FileName = "writer.lock"

// Lock holds an acquired writer lock. Release by calling Close.
type Lock struct {
	file *os.File
}

func openLockFile(indexDir string) (*os.File, error) {
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		return nil, fmt.Errorf("writerlock: mkdir %s: %w", indexDir, err)
	}
	path := filepath.Join(indexDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("writerlock: open %s: %w", path, err)
	}
	return f, nil
}

// TryAcquire attempts to take the lock without blocking. It returns
// ok=false (with a nil error) if another process already holds it.
func TryAcquire(indexDir string) (lock *Lock, ok bool, err error) {
	f, err := openLockFile(indexDir)
	if err != nil {
		return nil, false, err
	}
	if flockErr := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); flockErr != nil {
		f.Close()
		if flockErr == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, ltixerrors.IOError("flock", indexDir, flockErr)
	}
	return &Lock{file: f}, true, nil
}

// Acquire blocks until the lock is available.
func Acquire(indexDir string) (*Lock, error) {
	f, err := openLockFile(indexDir)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, ltixerrors.IOError("flock", indexDir, err)
	}
	return &Lock{file: f}, nil
}

// Close releases the lock and closes the underlying file descriptor.
func (l *Lock) Close() error {
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	return l.file.Close()
}
