package scanner

import (
	"context"
	"sync"
	"time"
)

// Step is one scripted scan result.
type Step struct {
	Text string
	Err  error
}

// Script replays a fixed list of results, one per Scan. Once they run out it
// calls OnExhausted, if set, and then blocks until the context is done.
type Script struct {
	OnExhausted func()

	m     sync.Mutex
	steps []Step
	calls int
}

// NewScript scripts one successful scan per text.
func NewScript(texts ...string) *Script {
	s := &Script{}
	for _, t := range texts {
		s.steps = append(s.steps, Step{Text: t})
	}
	return s
}

// Then appends a step.
func (s *Script) Then(step Step) *Script {
	s.m.Lock()
	defer s.m.Unlock()
	s.steps = append(s.steps, step)
	return s
}

// Calls returns how many times Scan has been called.
func (s *Script) Calls() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.calls
}

func (s *Script) Scan(ctx context.Context, timeout time.Duration) (string, error) {
	s.m.Lock()
	s.calls++
	if len(s.steps) > 0 {
		step := s.steps[0]
		s.steps = s.steps[1:]
		s.m.Unlock()
		return step.Text, step.Err
	}
	hook := s.OnExhausted
	s.m.Unlock()

	if hook != nil {
		hook()
	}
	<-ctx.Done()
	return "", ctx.Err()
}
