package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContract(t *testing.T) {
	ledgerContract(t, NewMemory())
}

func TestMemoryFailWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Set(ctx, "doc", []byte(`{"v":1}`))
	require.NoError(t, err)

	boom := errors.New("network down")
	m.FailWrites(boom)
	_, err = m.Set(ctx, "doc", []byte(`{"v":2}`))
	assert.ErrorIs(t, err, boom)

	c, err := m.ReadOnce(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(c.Value), "failed write must not change the stored value")

	m.FailWrites(nil)
	_, err = m.Set(ctx, "doc", []byte(`{"v":3}`))
	assert.NoError(t, err)
}

func TestMemoryUpdateMerges(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Update(ctx, "doc", map[string]json.RawMessage{"a": json.RawMessage(`1`)})
	require.NoError(t, err)
	rev, err := m.Update(ctx, "doc", map[string]json.RawMessage{
		"b": json.RawMessage(`{"x":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)

	c, err := m.ReadOnce(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":{"x":true}}`, string(c.Value))

	_, err = m.Update(ctx, "doc", map[string]json.RawMessage{"a": json.RawMessage(`null`)})
	require.NoError(t, err)
	c, err = m.ReadOnce(ctx, "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":{"x":true}}`, string(c.Value))
}

func TestMemoryUpdateRejectsNonObject(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Set(ctx, "doc", []byte(`[1,2]`))
	require.NoError(t, err)

	_, err = m.Update(ctx, "doc", map[string]json.RawMessage{"a": json.RawMessage(`1`)})
	assert.Error(t, err)
}

func TestSharedMemoryByName(t *testing.T) {
	a := SharedMemory("test-shared-by-name")
	b := SharedMemory("test-shared-by-name")
	c := SharedMemory("test-shared-other")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	require.NoError(t, a.Close())

	_, err := b.Set(context.Background(), "doc", []byte(`{}`))
	assert.NoError(t, err, "closing a shared ledger must not disable it")
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	_, err := m.Set(context.Background(), "doc", []byte(`{}`))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryPaths(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.Set(ctx, "b", []byte(`{}`))
	require.NoError(t, err)
	_, err = m.Set(ctx, "a", []byte(`{}`))
	require.NoError(t, err)

	paths, err := m.Paths(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, paths)
}
