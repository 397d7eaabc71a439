// Package syncutil holds small coordination primitives shared by the network components.
package syncutil

import (
	"context"
	"sync"
	"time"
)

// Signaller is a reusable one-bit condition. Signal sets it and wakes every
// goroutine blocked in one of the wait methods; Reset clears it again.
//
// The zero value is ready to use and starts unsignalled.
type Signaller struct {
	mu        sync.Mutex
	signalled bool
	ch        chan struct{}
}

// NewSignaller создает сброшенный Signaller
func NewSignaller() *Signaller {
	return &Signaller{ch: make(chan struct{})}
}

// channel returns the wake channel of the current generation. Caller holds mu.
func (s *Signaller) channel() chan struct{} {
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// Reset clears the condition. Goroutines already woken are unaffected.
func (s *Signaller) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signalled {
		s.signalled = false
		s.ch = make(chan struct{})
	}
}

// Signal sets the condition and wakes all waiters.
func (s *Signaller) Signal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signalled {
		return
	}
	s.signalled = true
	close(s.channel())
}

// IsSignalled reports the current state without blocking.
func (s *Signaller) IsSignalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signalled
}

// done returns a channel that is closed once the condition is set.
func (s *Signaller) done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel()
}

// WaitIndefinitely blocks until Signal is called.
func (s *Signaller) WaitIndefinitely() {
	<-s.done()
}

// WaitForTimeout blocks until the condition is set or d elapses and reports
// whether it was signalled. A non-positive d returns false immediately.
func (s *Signaller) WaitForTimeout(d time.Duration) bool {
	if d <= 0 {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.done():
		return true
	case <-timer.C:
		return false
	}
}

// Wait blocks until the condition is set or ctx is done.
func (s *Signaller) Wait(ctx context.Context) error {
	select {
	case <-s.done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
