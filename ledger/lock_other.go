//go:build !unix

package ledger

// FileLock is a no-op where flock is unavailable.
type FileLock struct{}

// Lock always succeeds on platforms without flock.
func (l *Ledger) Lock() (*FileLock, error) {
	return &FileLock{}, nil
}

// Unlock is a no-op.
func (fl *FileLock) Unlock() error {
	return nil
}
