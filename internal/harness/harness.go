package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/foodstand/internal/engine"
	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
	"github.com/roach88/foodstand/internal/store"
	"github.com/roach88/foodstand/internal/testutil"
)

// stepTimeout bounds every engine call so a wedged loop fails the scenario
// instead of hanging it.
const stepTimeout = 5 * time.Second

// Harness runs one scenario. Each run gets a private ledger and a fixed
// clock at testutil.Epoch.
type Harness struct {
	ledger  *store.Memory
	clock   *testutil.FixedClock
	path    string
	clients map[string]*client
	names   []string
}

type client struct {
	name   string
	engine *engine.Engine
	cancel context.CancelFunc
	done   chan struct{}
}

// outcome is what a step produced, checked against its Expect.
type outcome struct {
	ok          bool
	detail      string
	orderNumber *int
	total       *int
	count       *int
	err         error
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory ledger and write the seed, if any
//  2. Start every client and load the remote document
//  3. Execute steps, checking expect clauses
//  4. Evaluate assertions and capture the final remote document
//
// The returned error is reserved for scenarios that cannot run at all;
// failed expectations and assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h := &Harness{
		ledger:  store.NewMemory(),
		clock:   testutil.NewFixedClock(time.Time{}),
		path:    ledger.DefaultPath,
		clients: make(map[string]*client, len(scenario.Clients)),
	}
	defer h.close()

	if scenario.Seed != nil {
		if err := h.writeSeed(ctx, *scenario.Seed); err != nil {
			return nil, fmt.Errorf("failed to write seed: %w", err)
		}
	}

	for _, name := range scenario.Clients {
		if err := h.start(ctx, name); err != nil {
			return nil, fmt.Errorf("failed to start client %s: %w", name, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		out := h.execute(ctx, step)
		recordStep(result, step, out)
		for _, msg := range checkExpect(step, out) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, describeStep(step), msg))
		}
	}

	actx := &AssertionContext{Ctx: ctx, Harness: h}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	doc, ok, err := h.remote(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final document: %w", err)
	}
	result.Document, result.Present = doc, ok
	return result, nil
}

func (h *Harness) writeSeed(ctx context.Context, seed Seed) error {
	doc := ledger.DefaultDocument()
	doc.LastUpdated = ledger.FormatLastUpdated(h.clock.Now())
	if seed.OrderCounter != nil {
		doc.OrderCounter = *seed.OrderCounter
	}
	if seed.Theme != "" {
		doc.CurrentTheme = seed.Theme
	}
	for i, so := range seed.Orders {
		o, err := seedOrder(doc.MenuItems, so, h.clock.Now())
		if err != nil {
			return fmt.Errorf("orders[%d]: %w", i, err)
		}
		doc.Orders = append(doc.Orders, o)
	}

	data, err := ledger.Encode(doc)
	if err != nil {
		return err
	}
	_, err = h.ledger.Set(ctx, h.path, data)
	return err
}

func seedOrder(menu []ledger.MenuItem, so SeedOrder, at time.Time) (ledger.Order, error) {
	o := ledger.Order{
		OrderNumber: so.Number,
		Items:       []ledger.CartLine{},
		CreatedAt:   ledger.NewTimestamp(at),
		Completed:   so.Completed,
	}
	st := mirror.FromDocument(ledger.Document{MenuItems: menu})
	for _, la := range so.Lines {
		line, added, err := st.AddToCart(la.Item, mirror.Number(la.quantity()), la.AddDrink)
		if err != nil {
			return o, err
		}
		if added {
			o.Items = append(o.Items, line)
		}
	}
	o.Total = ledger.SumLines(o.Items)
	return o, nil
}

// start builds a client, runs its loop and loads the remote document. A
// client that finds the ledger empty seeds it, so the write is flushed
// before the next client loads.
func (h *Harness) start(ctx context.Context, name string) error {
	e := engine.New(h.ledger,
		engine.WithPath(h.path),
		engine.WithClock(h.clock),
		engine.WithClientIDGenerator(testutil.StaticID(name)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	c := &client{name: name, engine: e, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		_ = e.Run(runCtx)
	}()
	h.clients[name] = c
	h.names = append(h.names, name)

	stepCtx, stop := context.WithTimeout(ctx, stepTimeout)
	defer stop()
	if err := e.Load(stepCtx); err != nil {
		return err
	}
	return e.Flush(stepCtx)
}

func (h *Harness) close() {
	for _, name := range h.names {
		c := h.clients[name]
		c.cancel()
		<-c.done
	}
	_ = h.ledger.Close()
}

// remote decodes the document currently in the ledger.
func (h *Harness) remote(ctx context.Context) (ledger.Document, bool, error) {
	c, err := h.ledger.ReadOnce(ctx, h.path)
	if err != nil {
		return ledger.Document{}, false, err
	}
	if !c.Exists() {
		return ledger.Document{}, false, nil
	}
	snap, err := ledger.Decode(c.Value)
	if err != nil {
		return ledger.Document{}, false, err
	}
	return snap.Document, true, nil
}

// LineArgs describes one cart line. Quantity defaults to 1.
type LineArgs struct {
	Item     int  `yaml:"item"`
	Quantity *int `yaml:"quantity,omitempty"`
	AddDrink bool `yaml:"addDrink,omitempty"`
}

func (a LineArgs) quantity() int {
	if a.Quantity == nil {
		return 1
	}
	return *a.Quantity
}

type orderArgs struct {
	Order int `yaml:"order"`
}

type confirmArgs struct {
	Confirm bool `yaml:"confirm"`
}

type menuItemArgs struct {
	ID           int    `yaml:"id"`
	Emoji        string `yaml:"emoji"`
	NameCh       string `yaml:"nameCh"`
	NameEn       string `yaml:"nameEn"`
	Price        int    `yaml:"price"`
	MaxInventory int    `yaml:"maxInventory"`
	CanAddDrink  *bool  `yaml:"canAddDrink"`
}

func (a menuItemArgs) input() mirror.MenuItemInput {
	return mirror.MenuItemInput{
		Emoji:        a.Emoji,
		NameLocal:    a.NameCh,
		NameAlt:      a.NameEn,
		Price:        mirror.Number(a.Price),
		MaxInventory: mirror.Number(a.MaxInventory),
		CanAddDrink:  a.CanAddDrink,
	}
}

type idArgs struct {
	ID int `yaml:"id"`
}

type capArgs struct {
	ID  int `yaml:"id"`
	Max int `yaml:"max"`
}

type identityArgs struct {
	Emoji   string `yaml:"emoji"`
	Chinese string `yaml:"chinese"`
	English string `yaml:"english"`
}

type themeArgs struct {
	Theme string `yaml:"theme"`
}

type foreignUpdateArgs struct {
	Fields map[string]any `yaml:"fields"`
}

type failArgs struct {
	Message string `yaml:"message"`
}

type clockArgs struct {
	By string `yaml:"by"`
}

// decodeArgs re-decodes loosely typed step args into out, rejecting
// unknown keys.
func decodeArgs(args map[string]any, out any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := yaml.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

func (h *Harness) execute(parent context.Context, step Step) outcome {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	if step.Client == "" {
		return h.executeLedger(ctx, step)
	}
	return h.executeClient(ctx, h.clients[step.Client].engine, step)
}

func (h *Harness) executeLedger(ctx context.Context, step Step) outcome {
	switch step.Action {
	case ActionForeignUpdate:
		var a foreignUpdateArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		partial := make(map[string]json.RawMessage, len(a.Fields))
		for k, v := range a.Fields {
			raw, err := json.Marshal(v)
			if err != nil {
				return outcome{err: fmt.Errorf("field %s: %w", k, err)}
			}
			partial[k] = raw
		}
		rev, err := h.ledger.Update(ctx, h.path, partial)
		return outcome{ok: err == nil, detail: fmt.Sprintf("revision %d", rev), err: err}

	case ActionFailWrites:
		var a failArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		if a.Message == "" {
			a.Message = "write rejected"
		}
		h.ledger.FailWrites(errors.New(a.Message))
		return outcome{ok: true}

	case ActionRestoreWrites:
		h.ledger.FailWrites(nil)
		return outcome{ok: true}

	case ActionAdvanceClock:
		var a clockArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		d, err := time.ParseDuration(a.By)
		if err != nil {
			return outcome{err: fmt.Errorf("advance_clock: %w", err)}
		}
		h.clock.Advance(d)
		return outcome{ok: true}
	}
	return outcome{err: fmt.Errorf("unknown ledger action %q", step.Action)}
}

func (h *Harness) executeClient(ctx context.Context, e *engine.Engine, step Step) outcome {
	switch step.Action {
	case ActionLoad:
		return done(e.Load(ctx))

	case ActionDeliver:
		c, err := h.ledger.ReadOnce(ctx, h.path)
		if err != nil {
			return outcome{err: err}
		}
		return done(e.ApplyRemote(ctx, c.Value))

	case ActionFlush:
		return done(e.Flush(ctx))

	case ActionAddToCart:
		var a LineArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		line, added, err := e.AddToCart(ctx, a.Item, mirror.Number(a.quantity()), a.AddDrink)
		out := outcome{ok: added, err: err}
		if added {
			out.total = &line.TotalPrice
		}
		return out

	case ActionClearCart:
		return done(e.ClearCart(ctx))

	case ActionSubmit:
		o, ok, err := e.Submit(ctx)
		out := outcome{ok: ok, err: err}
		if ok {
			out.orderNumber, out.total = &o.OrderNumber, &o.Total
			out.detail = fmt.Sprintf("order #%d total %d", o.OrderNumber, o.Total)
		}
		return out

	case ActionComplete:
		var a orderArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		ok, err := e.Complete(ctx, a.Order)
		return outcome{ok: ok, err: err, orderNumber: &a.Order}

	case ActionClearCompleted, ActionResetOrders:
		var a confirmArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		remove := e.ClearCompleted
		if step.Action == ActionResetOrders {
			remove = e.ResetAll
		}
		n, err := remove(ctx, a.Confirm)
		return outcome{ok: err == nil, count: &n, err: err}

	case ActionResetCounter:
		var a confirmArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		return done(e.ResetCounter(ctx, a.Confirm))

	case ActionAddMenuItem:
		var a menuItemArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		item, err := e.AddMenuItem(ctx, a.input())
		return outcome{ok: err == nil, detail: fmt.Sprintf("item %d", item.ID), err: err}

	case ActionEditMenuItem:
		var a menuItemArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		_, err := e.EditMenuItem(ctx, a.ID, a.input())
		return done(err)

	case ActionDeleteMenuItem:
		var a idArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		ok, err := e.DeleteMenuItem(ctx, a.ID)
		return outcome{ok: ok, err: err}

	case ActionSetCap:
		var a capArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		n, err := e.SetCap(ctx, a.ID, mirror.Number(a.Max))
		return outcome{ok: err == nil, count: &n, err: err}

	case ActionSetIdentity:
		var a identityArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		_, err := e.SetIdentity(ctx, mirror.IdentityInput{Emoji: a.Emoji, NameLocal: a.Chinese, NameAlt: a.English})
		return done(err)

	case ActionSetTheme:
		var a themeArgs
		if err := decodeArgs(step.Args, &a); err != nil {
			return outcome{err: err}
		}
		ok, err := e.SetTheme(ctx, a.Theme)
		return outcome{ok: ok, err: err}
	}
	return outcome{err: fmt.Errorf("unknown client action %q", step.Action)}
}

func done(err error) outcome {
	return outcome{ok: err == nil, err: err}
}

func recordStep(result *Result, step Step, out outcome) {
	ev := TraceEvent{Client: step.Client, Action: step.Action, Outcome: OutcomeOK, Detail: out.detail}
	switch {
	case out.err != nil:
		ev.Outcome = OutcomeError
		ev.Detail = out.err.Error()
	case !out.ok:
		ev.Outcome = OutcomeNoop
	}
	result.AddTrace(ev)
}

func checkExpect(step Step, out outcome) []string {
	exp := step.Expect
	if exp == nil {
		if out.err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", out.err)}
		}
		return nil
	}

	var errs []string
	if exp.Error != "" {
		if out.err == nil {
			errs = append(errs, fmt.Sprintf("expected error containing %q, got none", exp.Error))
		} else if !strings.Contains(out.err.Error(), exp.Error) {
			errs = append(errs, fmt.Sprintf("expected error containing %q, got %q", exp.Error, out.err.Error()))
		}
		return errs
	}
	if out.err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", out.err)}
	}

	if exp.OK != nil && *exp.OK != out.ok {
		errs = append(errs, fmt.Sprintf("expected ok=%t, got %t", *exp.OK, out.ok))
	}
	errs = append(errs, compareInt("orderNumber", exp.OrderNumber, out.orderNumber)...)
	errs = append(errs, compareInt("total", exp.Total, out.total)...)
	errs = append(errs, compareInt("count", exp.Count, out.count)...)
	return errs
}

func compareInt(name string, want, got *int) []string {
	if want == nil {
		return nil
	}
	if got == nil {
		return []string{fmt.Sprintf("expected %s=%d, step produced none", name, *want)}
	}
	if *want != *got {
		return []string{fmt.Sprintf("expected %s=%d, got %d", name, *want, *got)}
	}
	return nil
}

func describeStep(step Step) string {
	if step.Client == "" {
		return step.Action
	}
	return step.Action + " on " + step.Client
}
