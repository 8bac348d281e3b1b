// Package clock abstracts time lookup so liveness tracking and playback
// pacing can be tested against a simulated clock.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// Real implements Clock using the system time.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (Real) Since(t time.Time) time.Duration { return time.Since(t) }

// Mock is a manually advanced Clock for deterministic tests.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock creates a Mock starting at the given instant.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Since returns the duration since t per the mock's current time.
func (m *Mock) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// Advance moves the mock's time forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Default returns the given clock, or the real clock when nil.
func Default(c Clock) Clock {
	if c != nil {
		return c
	}
	return Real{}
}
