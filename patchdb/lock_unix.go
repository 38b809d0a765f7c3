//go:build unix

package patchdb

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock is an advisory, process-exclusive lock on a pc directory. The CORE
// engine assumes single-process ownership of the tree (see the concurrency
// model); Lock is the optional integration point callers use to enforce
// that across processes via flock(2).
type Lock struct {
	f *os.File
}

// AcquireLock takes an exclusive, non-blocking flock on <pcDir>/.lock.
// It fails immediately if another process already holds it.
func AcquireLock(pcDir string) (*Lock, error) {
	if err := os.MkdirAll(pcDir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(pcDir, ".lock"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Release drops the lock and closes the underlying file handle.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	cerr := l.f.Close()
	if err != nil {
		return err
	}
	return cerr
}
