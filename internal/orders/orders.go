package orders

import (
	"errors"
	"time"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
)

// ErrConfirmationRequired is returned by destructive operations called
// without confirmation.
var ErrConfirmationRequired = errors.New("confirmation required")

// Clock supplies order creation times.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Manager applies lifecycle operations to one State.
type Manager struct {
	state *mirror.State
	clock Clock
}

// NewManager binds a Manager to state. A nil clock uses wall time.
func NewManager(state *mirror.State, clock Clock) *Manager {
	if clock == nil {
		clock = systemClock{}
	}
	return &Manager{state: state, clock: clock}
}

// Submit turns the cart into a pending order at the front of the ledger.
// Returns false and changes nothing when the cart is empty.
func (m *Manager) Submit() (ledger.Order, bool) {
	if len(m.state.Cart()) == 0 {
		return ledger.Order{}, false
	}

	lines := m.state.TakeCart()
	order := ledger.Order{
		OrderNumber: m.state.IssueOrderNumber(),
		Items:       lines,
		Total:       ledger.SumLines(lines),
		CreatedAt:   ledger.NewTimestamp(m.clock.Now()),
		Completed:   false,
	}
	m.state.PrependOrder(order)
	return order.Clone(), true
}

// Complete marks the order completed. Completing an already completed order
// is allowed and reports true; an unknown number reports false.
func (m *Manager) Complete(orderNumber int) bool {
	return m.state.MarkCompleted(orderNumber)
}

// Pending returns orders not yet completed, newest first.
func (m *Manager) Pending() []ledger.Order {
	return Pending(m.state.Orders())
}

// Completed returns completed orders, newest first.
func (m *Manager) Completed() []ledger.Order {
	return Completed(m.state.Orders())
}

// ClearCompleted removes completed orders and returns how many went.
func (m *Manager) ClearCompleted(confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrConfirmationRequired
	}
	return m.state.RetainOrders(func(o ledger.Order) bool { return !o.Completed }), nil
}

// ResetAll removes every order. The counter is left as is.
func (m *Manager) ResetAll(confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrConfirmationRequired
	}
	return m.state.RetainOrders(func(ledger.Order) bool { return false }), nil
}

// ResetCounter sets the order counter to zero without touching orders.
func (m *Manager) ResetCounter(confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	m.state.ResetOrderCounter()
	return nil
}

// Pending filters orders to those not completed, preserving order.
func Pending(orders []ledger.Order) []ledger.Order {
	return filter(orders, false)
}

// Completed filters orders to completed ones, preserving order.
func Completed(orders []ledger.Order) []ledger.Order {
	return filter(orders, true)
}

func filter(orders []ledger.Order, completed bool) []ledger.Order {
	out := make([]ledger.Order, 0, len(orders))
	for _, o := range orders {
		if o.Completed == completed {
			out = append(out, o.Clone())
		}
	}
	return out
}
