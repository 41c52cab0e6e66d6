// Package scanner yields the text of QR codes presented to a station.
package scanner

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout means no code was presented before the scan timeout elapsed.
	ErrTimeout = errors.New("scanner: no code within timeout")
	// ErrClosed is returned once a scanner has been shut down.
	ErrClosed = errors.New("scanner: closed")
)

// Scanner blocks until a code is read, the timeout elapses or ctx is done.
// A non-positive timeout waits until ctx is done.
type Scanner interface {
	Scan(ctx context.Context, timeout time.Duration) (string, error)
}

// Ignorer is implemented by scanners that watch a place the station also
// writes to. Ignore marks a file the station produced so it is never read back
// as a scan.
type Ignorer interface {
	Ignore(path string) error
}

// waitCtx bounds ctx by timeout when it is positive.
func waitCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// doneErr maps the end of a scan wait to ErrTimeout or the parent's error.
func doneErr(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrTimeout
}
