// Package testutil provides deterministic stand-ins for the
// processor's injected dependencies.
package testutil

import (
	"sync"
	"time"
)

// FixedClock is a thread-safe wall clock for tests. Every Now() call
// returns the current instant and steps the clock forward by a fixed
// amount, so successive timestamps are distinct, ordered, and fully
// predictable.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu   sync.Mutex
	base time.Time
	now  time.Time
	step time.Duration
}

// NewFixedClock creates a clock starting at base that advances by step
// per Now() call. A zero step freezes the clock.
func NewFixedClock(base time.Time, step time.Duration) *FixedClock {
	return &FixedClock{base: base, now: base, step: step}
}

// Now returns the clock's current instant and advances it.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Reset rewinds the clock to its base instant. After Reset the next
// Now() returns the same value as the first ever call, which lets one
// scenario run repeatedly with identical timestamps.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.base
}
