//go:build unix

package ledger

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileLock is an advisory exclusive lock next to the chain file.
type FileLock struct {
	f *os.File
}

// Lock takes the advisory lock at <path>.lock without blocking. A second
// holder, in this process or another, gets ErrLocked.
func (l *Ledger) Lock() (*FileLock, error) {
	lockPath := l.path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerm)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChainIO, lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrChainIO, lockPath, err)
	}
	return &FileLock{f: f}, nil
}

// Unlock releases the lock. The lock file itself stays on disk.
func (fl *FileLock) Unlock() error {
	if fl == nil || fl.f == nil {
		return nil
	}
	err := unix.Flock(int(fl.f.Fd()), unix.LOCK_UN)
	if cerr := fl.f.Close(); err == nil {
		err = cerr
	}
	fl.f = nil
	return err
}
