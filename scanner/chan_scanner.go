package scanner

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ChanScanner is fed by text typed at the console.
type ChanScanner struct {
	texts  chan string
	done   chan struct{}
	closed sync.Once
}

// NewChanScanner buffers up to size pending texts.
func NewChanScanner(size int) *ChanScanner {
	return &ChanScanner{
		texts: make(chan string, size),
		done:  make(chan struct{}),
	}
}

// Push queues text for the next Scan. It blocks while the buffer is full and
// fails with ErrClosed after Close.
func (s *ChanScanner) Push(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.texts <- text:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChanScanner) Scan(ctx context.Context, timeout time.Duration) (string, error) {
	wctx, cancel := waitCtx(ctx, timeout)
	defer cancel()
	select {
	case text := <-s.texts:
		return text, nil
	case <-s.done:
		return "", ErrClosed
	case <-wctx.Done():
		return "", doneErr(ctx)
	}
}

// Close wakes every pending Scan and Push.
func (s *ChanScanner) Close() {
	s.closed.Do(func() {
		close(s.done)
	})
}
