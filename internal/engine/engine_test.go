package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
	"github.com/roach88/foodstand/internal/orders"
	"github.com/roach88/foodstand/internal/store"
	"github.com/roach88/foodstand/internal/testutil"
)

// startEngine builds an engine and runs its loop until the test ends.
func startEngine(t *testing.T, l store.Ledger, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithClock(testutil.NewFixedClock(time.Time{}))}, opts...)
	e := New(l, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

// seedRemote writes the default document with the given counter.
func seedRemote(t *testing.T, l store.Ledger, counter int) {
	t.Helper()
	doc := ledger.DefaultDocument()
	doc.OrderCounter = counter
	data, err := ledger.Encode(doc)
	require.NoError(t, err)
	_, err = l.Set(context.Background(), ledger.DefaultPath, data)
	require.NoError(t, err)
}

// readRemote decodes the document currently stored at the default path.
func readRemote(t *testing.T, l store.Ledger) (ledger.Document, bool) {
	t.Helper()
	c, err := l.ReadOnce(context.Background(), ledger.DefaultPath)
	require.NoError(t, err)
	if !c.Exists() {
		return ledger.Document{}, false
	}
	snap, err := ledger.Decode(c.Value)
	require.NoError(t, err)
	return snap.Document, true
}

func fillCart(t *testing.T, e *Engine, itemID, qty int, drink bool) {
	t.Helper()
	_, added, err := e.AddToCart(context.Background(), itemID, mirror.Number(qty), drink)
	require.NoError(t, err)
	require.True(t, added)
}

func TestEngine_SubmitPersistsWholeDocument(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	fillCart(t, e, 1, 2, true)
	order, ok, err := e.Submit(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, order.OrderNumber)
	assert.Equal(t, (100+ledger.DrinkSurcharge)*2, order.Total)

	require.NoError(t, e.Flush(ctx))

	doc, ok := readRemote(t, mem)
	require.True(t, ok, "submit should persist")
	require.Len(t, doc.Orders, 1)
	assert.Equal(t, 1, doc.OrderCounter)
	assert.Equal(t, order.Total, doc.Orders[0].Total)
	assert.False(t, doc.Orders[0].Completed)
	assert.Equal(t, "2025-01-15T12:00:00.000Z", doc.LastUpdated)
	assert.Len(t, doc.MenuItems, 4, "the whole document is written, not just the order")

	st, ok := e.Status()
	require.True(t, ok)
	assert.Equal(t, MsgSynced, st.Message)
}

func TestEngine_SubmitEmptyCartWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	_, ok, err := e.Submit(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.Flush(ctx))
	_, exists := readRemote(t, mem)
	assert.False(t, exists)
}

func TestEngine_CartIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	fillCart(t, e, 2, 1, false)
	require.NoError(t, e.Flush(ctx))

	_, exists := readRemote(t, mem)
	assert.False(t, exists)
}

func TestEngine_UnconfiguredRunsLocalOnly(t *testing.T) {
	ctx := context.Background()
	e := startEngine(t, nil)
	assert.False(t, e.Configured())

	fillCart(t, e, 3, 1, false)
	_, ok, err := e.Submit(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, e.Flush(ctx))
	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.Subscribe(ctx))

	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Len(t, v.Pending, 1)
}

func TestEngine_WriteFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.FailWrites(errors.New("network unreachable"))
	e := startEngine(t, mem)

	fillCart(t, e, 1, 1, false)
	_, ok, err := e.Submit(ctx)
	require.NoError(t, err, "the intent itself succeeds")
	require.True(t, ok)

	err = e.Flush(ctx)
	require.Error(t, err)
	assert.True(t, IsPersistFailed(err))

	st, ok := e.Status()
	require.True(t, ok)
	assert.Equal(t, StatusError, st.Kind)
	assert.Equal(t, MsgSyncFailed, st.Message)

	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Len(t, v.Pending, 1, "local state is not rolled back")

	// Flush reports each failure once.
	assert.NoError(t, e.Flush(ctx))
}

func TestEngine_LoadSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.Flush(ctx))

	doc, ok := readRemote(t, mem)
	require.True(t, ok, "an empty store is seeded with the defaults")

	want, err := ledger.ContentHash(ledger.DefaultDocument())
	require.NoError(t, err)
	got, err := ledger.ContentHash(doc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEngine_SubscribeSeedsEmptyStoreOnce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	require.NoError(t, e.Subscribe(ctx))

	// The seed write comes back as an echo; applying it must not write again.
	require.Eventually(t, func() bool {
		v, err := e.View(ctx)
		return err == nil && v.Revision == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, e.Flush(ctx))

	c, err := mem.ReadOnce(ctx, ledger.DefaultPath)
	require.NoError(t, err)
	require.True(t, c.Exists(), "an empty store is seeded on subscribe")
	assert.Equal(t, int64(1), c.Revision, "exactly one seed write")

	snap, err := ledger.Decode(c.Value)
	require.NoError(t, err)
	want, err := ledger.ContentHash(ledger.DefaultDocument())
	require.NoError(t, err)
	got, err := ledger.ContentHash(snap.Document)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEngine_LoadKeepsForeignOnlyDocument(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.Set(ctx, ledger.DefaultPath, []byte(`{"foo":1}`))
	require.NoError(t, err)
	e := startEngine(t, mem)

	require.NoError(t, e.Load(ctx))
	require.NoError(t, e.Flush(ctx))

	c, err := mem.ReadOnce(ctx, ledger.DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Revision, "no seed write over foreign data")
	assert.JSONEq(t, `{"foo":1}`, string(c.Value))
}

func TestEngine_LoadAppliesExistingDocument(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedRemote(t, mem, 5)
	e := startEngine(t, mem)

	require.NoError(t, e.Load(ctx))

	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Document.OrderCounter)
	assert.Equal(t, int64(1), v.Revision)
}

func TestEngine_RejectsMalformedSnapshot(t *testing.T) {
	ctx := context.Background()
	e := startEngine(t, store.NewMemory())

	before, err := e.View(ctx)
	require.NoError(t, err)

	for _, raw := range []string{
		`{"orders": "not a list"}`,
		`{"orderCounter": -1}`,
		`[1, 2, 3]`,
		`{"menuItems": [{"id": "one"}]`,
	} {
		err := e.ApplyRemote(ctx, []byte(raw))
		require.Error(t, err, raw)
		assert.True(t, IsMalformedSnapshot(err), raw)
		assert.ErrorIs(t, err, ledger.ErrMalformedSnapshot, raw)
	}

	after, err := e.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Document, after.Document, "rejected snapshots leave the mirror untouched")
}

func TestEngine_ApplyRemoteOverwritesPresentFields(t *testing.T) {
	ctx := context.Background()
	e := startEngine(t, store.NewMemory())

	require.NoError(t, e.ApplyRemote(ctx, []byte(`{"orderCounter": 9, "currentTheme": "blue"}`)))

	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, v.Document.OrderCounter)
	assert.Equal(t, "blue", v.Theme.Key)
	assert.Len(t, v.Document.MenuItems, 4, "absent fields keep local values")
}

func TestEngine_ApplyRemoteIgnoresUnknownTheme(t *testing.T) {
	ctx := context.Background()
	e := startEngine(t, store.NewMemory())

	require.NoError(t, e.ApplyRemote(ctx, []byte(`{"currentTheme": "magenta"}`)))

	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultTheme, v.Theme.Key)
}

// Two clients at counter 5 both submit; B's write lands after A's and
// erases A's order #6.
func TestEngine_ConcurrentSubmitsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedRemote(t, mem, 5)

	a := startEngine(t, mem, WithClientIDGenerator(NewFixedGenerator("a")))
	b := startEngine(t, mem, WithClientIDGenerator(NewFixedGenerator("b")))
	require.NoError(t, a.Load(ctx))
	require.NoError(t, b.Load(ctx))

	fillCart(t, a, 1, 1, false)
	fillCart(t, b, 2, 3, false)

	orderA, ok, err := a.Submit(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, a.Flush(ctx))

	orderB, ok, err := b.Submit(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, b.Flush(ctx))

	assert.Equal(t, 6, orderA.OrderNumber)
	assert.Equal(t, 6, orderB.OrderNumber)

	doc, ok := readRemote(t, mem)
	require.True(t, ok)
	require.Len(t, doc.Orders, 1, "A's order was overwritten")
	assert.Equal(t, 6, doc.Orders[0].OrderNumber)
	assert.Equal(t, 2, doc.Orders[0].Items[0].ItemID)
	assert.Equal(t, 6, doc.OrderCounter)

	// Delivering the final document to A erases its own order locally.
	c, err := mem.ReadOnce(ctx, ledger.DefaultPath)
	require.NoError(t, err)
	require.NoError(t, a.ApplyRemote(ctx, c.Value))

	v, err := a.View(ctx)
	require.NoError(t, err)
	require.Len(t, v.Pending, 1)
	assert.Equal(t, orderB.Total, v.Pending[0].Total)
}

func TestEngine_SubscribeConverges(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedRemote(t, mem, 0)

	a := startEngine(t, mem)
	b := startEngine(t, mem)
	require.NoError(t, a.Subscribe(ctx))
	require.NoError(t, b.Subscribe(ctx))

	fillCart(t, a, 4, 2, true)
	_, ok, err := a.Submit(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		v, err := b.View(ctx)
		return err == nil && len(v.Pending) == 1
	}, 2*time.Second, 10*time.Millisecond)

	v, err := b.View(ctx)
	require.NoError(t, err)
	line := v.Pending[0].Items[0]
	assert.False(t, line.AddDrink, "item 4 cannot add a drink")
	assert.Equal(t, 70, line.TotalPrice)
}

func TestEngine_ViewMarksEchoOfOwnWrite(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedRemote(t, mem, 0)

	var mu sync.Mutex
	var views []View
	record := RendererFunc(func(v View) {
		mu.Lock()
		defer mu.Unlock()
		views = append(views, v)
	})
	remoteViews := func(match func(View) bool) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, v := range views {
			if v.Reason == EventTypeRemote && match(v) {
				return true
			}
		}
		return false
	}

	e := startEngine(t, mem, WithRenderer(record))
	require.NoError(t, e.Subscribe(ctx))
	require.Eventually(t, func() bool {
		return remoteViews(func(v View) bool { return !v.Echo })
	}, 2*time.Second, 10*time.Millisecond, "the initial value is not an echo")

	fillCart(t, e, 2, 1, false)
	_, ok, err := e.Submit(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, e.Flush(ctx))

	require.Eventually(t, func() bool {
		return remoteViews(func(v View) bool { return v.Echo && len(v.Pending) == 1 })
	}, 2*time.Second, 10*time.Millisecond)

	c, err := mem.ReadOnce(ctx, ledger.DefaultPath)
	require.NoError(t, err)
	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.Revision, v.Persisted)
	assert.False(t, v.Echo, "only the view of the applied snapshot is marked")

	seedRemote(t, mem, 9)
	require.Eventually(t, func() bool {
		return remoteViews(func(v View) bool { return v.Document.OrderCounter == 9 && !v.Echo })
	}, 2*time.Second, 10*time.Millisecond, "a foreign write is not an echo")
}

func TestEngine_CompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := startEngine(t, store.NewMemory())

	fillCart(t, e, 1, 1, false)
	order, _, err := e.Submit(ctx)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := e.Complete(ctx, order.OrderNumber)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := e.MarkCompletedRemote(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Empty(t, v.Pending)
	assert.Len(t, v.Completed, 1)
}

func TestEngine_DestructiveIntentsNeedConfirmation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	_, err := e.ClearCompleted(ctx, false)
	assert.ErrorIs(t, err, orders.ErrConfirmationRequired)
	_, err = e.ResetAll(ctx, false)
	assert.ErrorIs(t, err, orders.ErrConfirmationRequired)
	assert.ErrorIs(t, e.ResetCounter(ctx, false), orders.ErrConfirmationRequired)

	require.NoError(t, e.Flush(ctx))
	_, exists := readRemote(t, mem)
	assert.False(t, exists, "unconfirmed operations write nothing")

	require.NoError(t, e.ResetCounter(ctx, true))
	st, ok := e.Status()
	require.True(t, ok)
	assert.Contains(t, []string{MsgCounterReset, MsgSynced}, st.Message)
}

func TestEngine_ValidationErrorPostsStatus(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	_, err := e.AddMenuItem(ctx, mirror.MenuItemInput{Emoji: "🍜", NameLocal: "拉麵"})
	require.Error(t, err)
	assert.True(t, mirror.IsValidationError(err))

	st, ok := e.Status()
	require.True(t, ok)
	assert.Equal(t, StatusError, st.Kind)
	assert.Equal(t, mirror.FillAllFieldsMessage, st.Message)

	require.NoError(t, e.Flush(ctx))
	_, exists := readRemote(t, mem)
	assert.False(t, exists, "a rejected form saves nothing")
}

func TestEngine_AdminIntentsPersist(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := startEngine(t, mem)

	item, err := e.AddMenuItem(ctx, mirror.MenuItemInput{
		Emoji: "🍜", NameLocal: "拉麵", NameAlt: "Ramen", Price: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, item.ID)

	n, err := e.SetCap(ctx, item.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	ok, err := e.SetTheme(ctx, "green")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.SetTheme(ctx, "magenta")
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := e.SetIdentity(ctx, mirror.IdentityInput{NameAlt: "Noodle Bar"})
	require.NoError(t, err)
	assert.Equal(t, "Noodle Bar", id.NameAlt)
	assert.Equal(t, "美食站", id.NameLocal)

	require.NoError(t, e.Flush(ctx))
	doc, ok := readRemote(t, mem)
	require.True(t, ok)
	assert.Equal(t, 20, doc.MaxInventory[item.ID])
	assert.Equal(t, "green", doc.CurrentTheme)
	assert.Equal(t, "Noodle Bar", doc.SiteName.NameAlt)
	assert.Equal(t, 6, doc.NextItemID)

	deleted, err := e.DeleteMenuItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, e.Flush(ctx))

	doc, _ = readRemote(t, mem)
	_, hasCap := doc.MaxInventory[item.ID]
	assert.False(t, hasCap, "deleting an item drops its cap")
	assert.Equal(t, 6, doc.NextItemID, "ids are never reused")
}

func TestEngine_RenderersSeeEveryEvent(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var views []View
	record := RendererFunc(func(v View) {
		mu.Lock()
		defer mu.Unlock()
		views = append(views, v)
	})

	e := startEngine(t, nil, WithRenderer(record))
	fillCart(t, e, 1, 1, true)

	mu.Lock()
	require.NotEmpty(t, views)
	last := views[len(views)-1]
	mu.Unlock()

	require.Len(t, last.Cart, 1)
	assert.Equal(t, 115, last.CartTotal)
	assert.Equal(t, EventTypeIntent, last.Reason)

	// Mutating the view must not reach the mirror.
	last.Cart[0].Quantity = 99
	v, err := e.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Cart[0].Quantity)
}

func TestEngine_PanickingRendererIsSkipped(t *testing.T) {
	ctx := context.Background()

	called := make(chan struct{}, 8)
	e := startEngine(t, nil)
	e.AddRenderer(RendererFunc(func(View) { panic("boom") }))
	remove := e.AddRenderer(RendererFunc(func(View) { called <- struct{}{} }))

	_, err := e.View(ctx)
	require.NoError(t, err)
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("second renderer was not called")
	}

	remove()
	_, err = e.View(ctx)
	require.NoError(t, err)
	assert.Len(t, called, 0)
}

func TestEngine_RefresherTicks(t *testing.T) {
	refreshed := make(chan struct{}, 16)
	e := startEngine(t, nil, WithRenderer(RendererFunc(func(v View) {
		if v.Reason == EventTypeRefresh {
			select {
			case refreshed <- struct{}{}:
			default:
			}
		}
	})))

	stop := e.StartRefresher(context.Background(), 5*time.Millisecond)
	defer stop()

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh tick rendered")
	}
}

func TestEngine_StoppedRejectsIntents(t *testing.T) {
	e := New(nil)
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	e.Stop()
	require.NoError(t, <-done)

	_, err := e.View(context.Background())
	require.Error(t, err)
	assert.True(t, IsStopped(err))
}
