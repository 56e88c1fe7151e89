package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Ledger. It backs tests, the scenario harness and
// memory:// URLs.
type Memory struct {
	mu        sync.Mutex
	docs      map[string]Change
	failWrite error
	closed    bool

	hub *hub
	now func() time.Time
}

var (
	sharedMu     sync.Mutex
	sharedMemory = map[string]*Memory{}
)

// NewMemory creates an empty private in-memory ledger.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{
		docs: make(map[string]Change),
		hub:  newHub(),
		now:  o.now,
	}
}

// SharedMemory returns the process-wide in-memory ledger registered under
// name, creating it on first use. Engines opened with the same memory://
// URL see each other's writes.
func SharedMemory(name string) *Memory {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if m, ok := sharedMemory[name]; ok {
		return m
	}
	m := NewMemory()
	sharedMemory[name] = m
	return m
}

// FailWrites makes every later Set and Update return err. Pass nil to
// restore normal operation.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = err
}

func (m *Memory) Set(ctx context.Context, path string, value []byte) (int64, error) {
	if err := checkPath(path); err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}

	m.mu.Lock()
	c, err := m.writeLocked(path, value)
	m.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}
	m.hub.publish(c)
	return c.Revision, nil
}

func (m *Memory) Update(ctx context.Context, path string, partial map[string]json.RawMessage) (int64, error) {
	if err := checkPath(path); err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}

	m.mu.Lock()
	merged, err := mergeObject(m.docs[path].Value, partial)
	if err != nil {
		m.mu.Unlock()
		return 0, fmt.Errorf("update: %w", err)
	}
	c, err := m.writeLocked(path, merged)
	m.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	m.hub.publish(c)
	return c.Revision, nil
}

func (m *Memory) writeLocked(path string, value []byte) (Change, error) {
	if m.closed {
		return Change{}, ErrClosed
	}
	if m.failWrite != nil {
		return Change{}, m.failWrite
	}
	prev := m.docs[path]
	c := Change{
		Path:      path,
		Value:     append([]byte(nil), value...),
		Revision:  prev.Revision + 1,
		UpdatedAt: m.now(),
	}
	m.docs[path] = c
	return c, nil
}

func (m *Memory) ReadOnce(ctx context.Context, path string) (Change, error) {
	if err := checkPath(path); err != nil {
		return Change{}, fmt.Errorf("read: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Change{}, fmt.Errorf("read: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Change{}, fmt.Errorf("read: %w", ErrClosed)
	}
	c, ok := m.docs[path]
	if !ok {
		return Change{Path: path}, nil
	}
	c.Value = append([]byte(nil), c.Value...)
	return c, nil
}

func (m *Memory) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	if err := checkPath(path); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	read := func(ctx context.Context) (Change, error) {
		return m.ReadOnce(ctx, path)
	}
	sub, err := subscribe(ctx, m.hub, path, read, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}

// Close marks a private ledger closed. Shared ledgers stay usable for the
// life of the process.
func (m *Memory) Close() error {
	sharedMu.Lock()
	for _, shared := range sharedMemory {
		if shared == m {
			sharedMu.Unlock()
			return nil
		}
	}
	sharedMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Paths lists stored document paths, most recently written first.
func (m *Memory) Paths(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]Change, 0, len(m.docs))
	for _, c := range m.docs {
		docs = append(docs, c)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].Path < docs[j].Path
	})
	paths := make([]string, len(docs))
	for i, c := range docs {
		paths[i] = c.Path
	}
	return paths, nil
}
