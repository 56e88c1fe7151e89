package testutil

import (
	"fmt"
	"sync"
)

// ClientIDs hands out "<prefix>-1", "<prefix>-2", ... so scenarios with
// several clients get stable names in logs and views.
//
// Unlike engine.FixedGenerator, which panics once its list is used up,
// ClientIDs never runs out.
//
// Thread-safety: safe for concurrent use.
type ClientIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewClientIDs creates a generator. An empty prefix uses "client".
func NewClientIDs(prefix string) *ClientIDs {
	if prefix == "" {
		prefix = "client"
	}
	return &ClientIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *ClientIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// StaticID always returns the same id. Used when a test builds exactly
// one client and wants to assert on its name.
type StaticID string

// Generate returns the id.
func (s StaticID) Generate() string {
	return string(s)
}
