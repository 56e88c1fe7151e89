package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall time for order timestamps, lastUpdated and status
// expiry. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current wall time.
func (SystemClock) Now() time.Time { return time.Now() }

// Sequence numbers the events processed by one engine.
//
// The sequence is strictly increasing and only used for log correlation
// and for View.Seq, so renderers can drop stale views. It never orders
// remote writes; revisions from the store do that.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next increments the sequence and returns the new value.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last value handed out.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
