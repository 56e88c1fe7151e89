package engine

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/orders"
)

// View is an immutable copy of everything a screen shows. Renderers may
// keep it; nothing in it aliases the mirror.
//
// Revision is the last remote revision applied and Persisted the last one
// this client wrote. Echo is set when the remote snapshot just applied
// holds exactly what this client last wrote.
type View struct {
	ClientID  string            `json:"clientId"`
	Seq       int64             `json:"seq"`
	Revision  int64             `json:"revision"`
	Persisted int64             `json:"persisted"`
	Echo      bool              `json:"echo"`
	Reason    EventType         `json:"-"`
	Document  ledger.Document   `json:"document"`
	Theme     ledger.Theme      `json:"theme"`
	Cart      []ledger.CartLine `json:"cart"`
	CartTotal int               `json:"cartTotal"`
	Pending   []ledger.Order    `json:"pending"`
	Completed []ledger.Order    `json:"completed"`
	Stats     []orders.ItemStat `json:"stats"`
	Status    *Status           `json:"status,omitempty"`
}

// Renderer redraws a view. Render is called on the Run loop after every
// event, so it must not block and must tolerate the same view twice.
type Renderer interface {
	Render(v View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(View)

// Render calls f(v).
func (f RendererFunc) Render(v View) { f(v) }

// renderers is the set of attached renderers. Attach and detach may come
// from any goroutine.
type renderers struct {
	mu   sync.RWMutex
	next int
	set  map[int]Renderer
}

func newRenderers() *renderers {
	return &renderers{set: make(map[int]Renderer)}
}

func (r *renderers) attach(rn Renderer) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.next
	r.next++
	r.set[id] = rn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.set, id)
	}
}

func (r *renderers) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.set)
}

// each calls Render on every renderer in attach order. A panicking
// renderer is logged and skipped.
func (r *renderers) each(v View) {
	r.mu.RLock()
	ids := make([]int, 0, len(r.set))
	for id := range r.set {
		ids = append(ids, id)
	}
	list := make([]Renderer, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		list = append(list, r.set[id])
	}
	r.mu.RUnlock()

	for _, rn := range list {
		renderOne(rn, v)
	}
}

func renderOne(rn Renderer, v View) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("renderer panicked", "client", v.ClientID, "seq", v.Seq, "panic", p)
		}
	}()
	rn.Render(v)
}
