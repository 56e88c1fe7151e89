package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
	"github.com/roach88/foodstand/internal/orders"
	"github.com/roach88/foodstand/internal/store"
)

// Engine is one client: a mirror of the shared document, the single
// goroutine allowed to mutate it, and the persister that writes it back.
//
// Thread-safety model:
//   - Do, ApplyRemote, Load, Subscribe, Flush: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - everything touching state or orders runs inside Run
type Engine struct {
	ledger   store.Ledger
	path     string
	clientID string
	clock    Clock
	seq      *Sequence

	state  *mirror.State
	orders *orders.Manager

	queue     *fifo[Event]
	persister *persister
	status    *StatusBoard
	renderers *renderers

	statusTTL       time.Duration
	refreshInterval time.Duration
	idGen           ClientIDGenerator

	// Loop-only fields.
	revision   int64
	issuedHash string
	echo       bool
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithPath sets the document path. Default: ledger.DefaultPath.
func WithPath(path string) EngineOption {
	return func(e *Engine) {
		e.path = path
	}
}

// WithClock sets the wall clock used for order times, lastUpdated and
// status expiry.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithClientIDGenerator sets how the engine names itself.
func WithClientIDGenerator(g ClientIDGenerator) EngineOption {
	return func(e *Engine) {
		e.idGen = g
	}
}

// WithState starts the engine from an existing mirror instead of the
// default seed.
func WithState(s *mirror.State) EngineOption {
	return func(e *Engine) {
		e.state = s
	}
}

// WithRenderer attaches a renderer at construction.
func WithRenderer(r Renderer) EngineOption {
	return func(e *Engine) {
		e.renderers.attach(r)
	}
}

// WithStatusTTL sets how long status messages stay visible.
func WithStatusTTL(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.statusTTL = d
	}
}

// WithRefreshInterval sets the default refresher cadence.
func WithRefreshInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.refreshInterval = d
	}
}

// New creates an Engine over l. A nil ledger runs local-only: persists are
// skipped with a warning.
func New(l store.Ledger, opts ...EngineOption) *Engine {
	e := &Engine{
		ledger:          l,
		path:            ledger.DefaultPath,
		clock:           SystemClock{},
		seq:             NewSequence(),
		queue:           newFIFO[Event](),
		renderers:       newRenderers(),
		statusTTL:       DefaultStatusTTL,
		refreshInterval: DefaultRefreshInterval,
		idGen:           UUIDv7Generator{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.state == nil {
		e.state = mirror.New()
	}
	e.clientID = e.idGen.Generate()
	e.orders = orders.NewManager(e.state, e.clock)
	e.status = NewStatusBoard(e.clock, e.statusTTL)
	e.persister = newPersister(l, e.path, e.clientID, e.status, func() { e.Refresh() })

	if l == nil {
		slog.Warn("remote ledger not configured; running local-only", "client", e.clientID)
	}
	return e
}

// ClientID returns the engine's name.
func (e *Engine) ClientID() string {
	return e.clientID
}

// Path returns the document path the engine persists to.
func (e *Engine) Path() string {
	return e.path
}

// Configured reports whether a remote ledger is attached.
func (e *Engine) Configured() bool {
	return e.ledger != nil
}

// Status returns the live status message, if any.
func (e *Engine) Status() (Status, bool) {
	return e.status.Current()
}

// AddRenderer attaches r and returns a function that detaches it.
func (e *Engine) AddRenderer(r Renderer) (remove func()) {
	return e.renderers.attach(r)
}

// Run starts the single-writer event loop. Blocks until ctx is cancelled
// or Stop is called.
//
// Event failures are logged and the loop continues; nothing here is fatal.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "client", e.clientID, "path", e.path)

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			e.processEvent(ctx, event)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled", "client", e.clientID)
			e.shutdown()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed", "client", e.clientID)
				e.shutdown()
				return nil
			}
		}
	}
}

// Stop closes the event queue; Run returns once it has drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) shutdown() {
	e.queue.Close()
	// Drain pending replies so callers blocked in Do do not hang.
	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			break
		}
		if ev.reply != nil {
			ev.reply <- result{err: e.runtimeError(ErrCodeStopped, "engine stopped", nil)}
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.persister.close(ctx)
}

// Do runs intent on the loop and waits for its result.
func (e *Engine) Do(ctx context.Context, intent Intent) (any, error) {
	return e.send(ctx, Event{Type: EventTypeIntent, Intent: &intent})
}

// ApplyRemote hands a raw remote value to the loop and waits until it has
// been applied or rejected.
func (e *Engine) ApplyRemote(ctx context.Context, value []byte) error {
	_, err := e.send(ctx, Event{
		Type:   EventTypeRemote,
		Change: &store.Change{Path: e.path, Value: value},
	})
	return err
}

func (e *Engine) send(ctx context.Context, ev Event) (any, error) {
	ev.reply = make(chan result, 1)
	if !e.queue.Enqueue(ev) {
		return nil, e.runtimeError(ErrCodeStopped, "engine stopped", nil)
	}
	select {
	case r := <-ev.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// processEvent routes an event to its handler and answers the sender.
// Called only from Run.
func (e *Engine) processEvent(ctx context.Context, event Event) {
	seq := e.seq.Next()
	e.echo = false

	var r result
	switch event.Type {
	case EventTypeIntent:
		if event.Intent == nil {
			r.err = fmt.Errorf("intent event missing intent")
			break
		}
		r.value, r.err = e.processIntent(seq, event.Intent)

	case EventTypeRemote:
		if event.Change == nil {
			r.err = fmt.Errorf("remote event missing change")
			break
		}
		r.err = e.applyChange(seq, *event.Change)

	case EventTypeRefresh:

	default:
		r.err = fmt.Errorf("unknown event type: %d", event.Type)
	}

	if r.err != nil {
		slog.Debug("event failed",
			"client", e.clientID,
			"seq", seq,
			"type", event.Type.String(),
			"error", r.err)
	}

	e.render(seq, event.Type)

	if event.reply != nil {
		event.reply <- r
	}
}

func (e *Engine) processIntent(seq int64, intent *Intent) (any, error) {
	tx := &Tx{State: e.state, Orders: e.orders}
	value, err := intent.Apply(tx)
	if err != nil {
		if mirror.IsValidationError(err) {
			e.status.Post(StatusError, mirror.FillAllFieldsMessage)
		}
		return nil, fmt.Errorf("%s: %w", intent.Name, err)
	}

	slog.Debug("intent applied", "client", e.clientID, "seq", seq, "intent", intent.Name, "changed", tx.changed)

	// Post before persisting so the persister's outcome is the later status.
	if tx.notice != nil {
		e.status.Post(tx.notice.Kind, tx.notice.Message)
	}
	if tx.changed {
		e.persist(seq)
	}
	return value, nil
}

// persist snapshots the mirror and queues the write. Called only from Run.
func (e *Engine) persist(seq int64) {
	if e.ledger == nil {
		slog.Warn("remote ledger not configured; skipping persist", "client", e.clientID, "seq", seq)
		return
	}

	doc := e.state.Snapshot(e.clock.Now())
	data, err := ledger.Encode(doc)
	if err != nil {
		slog.Error("persist: encode snapshot", "client", e.clientID, "seq", seq, "error", err)
		e.status.Post(StatusError, MsgSyncFailed)
		return
	}
	if hash, err := ledger.ContentHash(doc); err == nil {
		e.issuedHash = hash
	}

	e.persister.enqueue(persistJob{seq: seq, data: data})
}

// applyChange decodes a remote value and overwrites the mirror with it.
// Called only from Run.
func (e *Engine) applyChange(seq int64, c store.Change) error {
	snap, err := ledger.Decode(c.Value)
	if err != nil {
		slog.Error("rejecting malformed snapshot",
			"client", e.clientID,
			"seq", seq,
			"revision", c.Revision,
			"error", err)
		return e.runtimeError(ErrCodeMalformedSnapshot, "remote snapshot rejected", err)
	}

	if c.Revision > 0 {
		e.revision = c.Revision
	}

	if snap.Empty() {
		slog.Info("no data in remote ledger; keeping defaults and saving back",
			"client", e.clientID, "seq", seq, "path", e.path)
		e.persist(seq)
		return nil
	}

	if hash, err := ledger.ContentHash(snap.Document); err == nil && hash == e.issuedHash {
		e.echo = true
		slog.Debug("echo of own write", "client", e.clientID, "seq", seq, "revision", c.Revision)
	}

	e.state.Apply(snap)
	slog.Debug("applied remote snapshot", "client", e.clientID, "seq", seq, "revision", c.Revision)
	return nil
}

// Load reads the remote document once and applies it. An absent document
// keeps the defaults and seeds the store with them.
func (e *Engine) Load(ctx context.Context) error {
	if e.ledger == nil {
		slog.Warn("remote ledger not configured; keeping local state", "client", e.clientID)
		return nil
	}

	c, err := e.ledger.ReadOnce(ctx, e.path)
	if err != nil {
		slog.Error("load failed", "client", e.clientID, "path", e.path, "error", err)
		return e.runtimeError(ErrCodeReadFailed, "read remote ledger", err)
	}
	_, err = e.send(ctx, Event{Type: EventTypeRemote, Change: &c})
	return err
}

// Subscribe attaches the engine to the remote document. Every delivered
// value, echoes of our own writes included, is applied in delivery order.
// Returns once the subscription is live.
func (e *Engine) Subscribe(ctx context.Context) error {
	if e.ledger == nil {
		slog.Warn("remote ledger not configured; live sync disabled", "client", e.clientID)
		return nil
	}

	sub, err := e.ledger.Subscribe(ctx, e.path)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", e.path, err)
	}
	slog.Info("live sync enabled", "client", e.clientID, "path", e.path)

	go func() {
		defer sub.Close()
		for c := range sub.Changes() {
			if !e.queue.Enqueue(Event{Type: EventTypeRemote, Change: &c}) {
				return
			}
		}
	}()
	return nil
}

// Flush waits until every snapshot queued so far has been written or has
// failed, and returns the last failure.
func (e *Engine) Flush(ctx context.Context) error {
	if err := e.persister.flush(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return e.runtimeError(ErrCodePersistFailed, "persist failed", err)
	}
	return nil
}

// render builds a view and hands it to every renderer. Called only from
// Run.
func (e *Engine) render(seq int64, reason EventType) {
	if e.renderers.len() == 0 {
		return
	}
	e.renderers.each(e.view(seq, reason))
}

func (e *Engine) view(seq int64, reason EventType) View {
	all := e.state.Orders()
	v := View{
		ClientID:  e.clientID,
		Seq:       seq,
		Revision:  e.revision,
		Persisted: e.persister.lastRevision(),
		Echo:      e.echo,
		Reason:    reason,
		Document:  e.state.Document(),
		Theme:     e.state.Theme(),
		Cart:      e.state.Cart(),
		CartTotal: e.state.CartTotal(),
		Pending:   orders.Pending(all),
		Completed: orders.Completed(all),
		Stats:     e.orders.Statistics(),
	}
	if st, ok := e.status.Current(); ok {
		v.Status = &st
	}
	return v
}
