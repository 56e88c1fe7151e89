package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a FixedClock: 2025-01-15 12:00:00 UTC.
var Epoch = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// FixedClock is a wall clock that only moves when told to.
//
// Engines, order managers and status boards all accept anything with a
// Now() method, so one FixedClock can drive all of them and make order
// timestamps, lastUpdated values and status expiry deterministic.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock reading start. A zero start uses Epoch.
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = Epoch
	}
	return &FixedClock{now: start}
}

// Now returns the current reading.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new reading.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
