package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/orders"
)

// AssertionContext provides what assertions read: client mirrors and the
// remote document.
type AssertionContext struct {
	Ctx     context.Context
	Harness *Harness
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Target   string // "remote" or a client name
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s (%s)\n", e.Type, e.Target)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, empty when all hold.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertDocumentField:
		return assertDocumentField(a, actx)
	case AssertOrderNumbers:
		return assertOrderNumbers(a, actx)
	case AssertStatus:
		return assertStatus(a, actx)
	case AssertConverged:
		return assertConverged(a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func target(a Assertion) string {
	if a.Client == "" {
		return "remote"
	}
	return a.Client
}

// document returns the selected client's mirror or the remote document.
func (actx *AssertionContext) document(clientName string) (ledger.Document, error) {
	h := actx.Harness
	if clientName == "" {
		doc, ok, err := h.remote(actx.Ctx)
		if err != nil {
			return doc, err
		}
		if !ok {
			return doc, fmt.Errorf("remote document is absent")
		}
		return doc, nil
	}
	c, ok := h.clients[clientName]
	if !ok {
		return ledger.Document{}, fmt.Errorf("unknown client %q", clientName)
	}
	v, err := c.engine.View(actx.Ctx)
	if err != nil {
		return ledger.Document{}, err
	}
	return v.Document, nil
}

// assertDocumentField compares one field, addressed by a dotted path such
// as "orders.0.total", with its expected value. Both sides are compared as
// decoded JSON so YAML ints and JSON numbers agree.
func assertDocumentField(a Assertion, actx *AssertionContext) error {
	doc, err := actx.document(a.Client)
	if err != nil {
		return err
	}
	tree, err := toJSONTree(doc)
	if err != nil {
		return err
	}
	got, err := lookupPath(tree, a.Field)
	if err != nil {
		return &AssertionError{
			Type:     AssertDocumentField,
			Target:   target(a),
			Expected: fmt.Sprintf("%s = %v", a.Field, a.Equals),
			Actual:   err.Error(),
		}
	}
	want, err := toJSONTree(a.Equals)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{
			Type:     AssertDocumentField,
			Target:   target(a),
			Expected: fmt.Sprintf("%s = %v", a.Field, want),
			Actual:   fmt.Sprintf("%s = %v", a.Field, got),
		}
	}
	return nil
}

func toJSONTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return tree, nil
}

func lookupPath(tree any, path string) (any, error) {
	cur := tree
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("no field %q in %s", part, path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("no index %q in %s (length %d)", part, path, len(node))
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q in %s", part, path)
		}
	}
	return cur, nil
}

// assertOrderNumbers checks the order numbers, newest first, optionally
// filtered to pending or completed orders.
func assertOrderNumbers(a Assertion, actx *AssertionContext) error {
	doc, err := actx.document(a.Client)
	if err != nil {
		return err
	}
	list := doc.Orders
	switch a.Status {
	case "pending":
		list = orders.Pending(list)
	case "completed":
		list = orders.Completed(list)
	}

	got := make([]int, len(list))
	for i, o := range list {
		got[i] = o.OrderNumber
	}
	want := a.Numbers
	if want == nil {
		want = []int{}
	}
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertOrderNumbers,
			Target:   target(a),
			Expected: fmt.Sprintf("%s orders %v", statusLabel(a.Status), want),
			Actual:   fmt.Sprintf("%s orders %v", statusLabel(a.Status), got),
		}
	}
	return nil
}

func statusLabel(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

// assertStatus checks a client's live status message. An empty Message
// expects no status.
func assertStatus(a Assertion, actx *AssertionContext) error {
	c, ok := actx.Harness.clients[a.Client]
	if !ok {
		return fmt.Errorf("unknown client %q", a.Client)
	}
	got := ""
	if st, ok := c.engine.Status(); ok {
		got = st.Message
	}
	if got != a.Message {
		return &AssertionError{
			Type:     AssertStatus,
			Target:   a.Client,
			Expected: fmt.Sprintf("%q", a.Message),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

// assertConverged checks that every client's mirror matches the remote
// document, or only the named client's when Client is set.
func assertConverged(a Assertion, actx *AssertionContext) error {
	remote, err := actx.document("")
	if err != nil {
		return err
	}
	want, err := ledger.ContentHash(remote)
	if err != nil {
		return err
	}

	names := actx.Harness.names
	if a.Client != "" {
		names = []string{a.Client}
	}
	var diverged []string
	for _, name := range names {
		doc, err := actx.document(name)
		if err != nil {
			return err
		}
		got, err := ledger.ContentHash(doc)
		if err != nil {
			return err
		}
		if got != want {
			diverged = append(diverged, name)
		}
	}
	if len(diverged) > 0 {
		return &AssertionError{
			Type:     AssertConverged,
			Target:   target(a),
			Expected: "every mirror equals the remote document",
			Actual:   fmt.Sprintf("diverged: %s", strings.Join(diverged, ", ")),
		}
	}
	return nil
}
