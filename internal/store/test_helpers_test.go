package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestSQLite opens a fresh database in a temp dir.
func createTestSQLite(t *testing.T, opts ...Option) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path, opts...)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// nextChange waits for one delivery or fails the test.
func nextChange(t *testing.T, sub *Subscription) Change {
	t.Helper()
	select {
	case c, ok := <-sub.Changes():
		if !ok {
			t.Fatal("subscription closed")
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

// ledgerContract runs the behavior every backend must share.
func ledgerContract(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent path", func(t *testing.T) {
		c, err := l.ReadOnce(ctx, "missing")
		if err != nil {
			t.Fatalf("ReadOnce() failed: %v", err)
		}
		if c.Exists() {
			t.Errorf("expected absent value, got %s", c.Value)
		}
	})

	t.Run("set bumps revision", func(t *testing.T) {
		r1, err := l.Set(ctx, "doc", []byte(`{"a":1}`))
		if err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		r2, err := l.Set(ctx, "doc", []byte(`{"a":2}`))
		if err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		if r2 != r1+1 {
			t.Errorf("revision %d after %d, want %d", r2, r1, r1+1)
		}
		c, err := l.ReadOnce(ctx, "doc")
		if err != nil {
			t.Fatalf("ReadOnce() failed: %v", err)
		}
		if string(c.Value) != `{"a":2}` || c.Revision != r2 {
			t.Errorf("got %s@%d, want {\"a\":2}@%d", c.Value, c.Revision, r2)
		}
	})

	t.Run("empty path rejected", func(t *testing.T) {
		if _, err := l.Set(ctx, "", []byte(`{}`)); err == nil {
			t.Error("expected error for empty path")
		}
	})
}
