package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/foodstand/internal/ledger"
	"github.com/roach88/foodstand/internal/mirror"
	"github.com/roach88/foodstand/internal/orders"
)

// Intent is a user action. Apply runs on the Run loop with exclusive
// access to the mirror.
type Intent struct {
	Name  string
	Apply func(tx *Tx) (any, error)
}

// Tx is the handle an intent works through. It is only valid inside Apply.
type Tx struct {
	State  *mirror.State
	Orders *orders.Manager

	changed bool
	notice  *Status
}

// Changed marks the shared document as modified so it is persisted once
// Apply returns.
func (tx *Tx) Changed() {
	tx.changed = true
}

// Notify posts a status message once Apply returns successfully.
func (tx *Tx) Notify(kind StatusKind, message string) {
	tx.notice = &Status{Kind: kind, Message: message}
}

func do[T any](ctx context.Context, e *Engine, name string, fn func(tx *Tx) (T, error)) (T, error) {
	v, err := e.Do(ctx, Intent{
		Name: name,
		Apply: func(tx *Tx) (any, error) {
			return fn(tx)
		},
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// View returns the current view without changing anything.
func (e *Engine) View(ctx context.Context) (View, error) {
	return do(ctx, e, "view", func(*Tx) (View, error) {
		return e.view(e.seq.Current(), EventTypeIntent), nil
	})
}

// Submit turns the cart into a pending order. ok is false when the cart
// was empty.
func (e *Engine) Submit(ctx context.Context) (order ledger.Order, ok bool, err error) {
	type submitted struct {
		order ledger.Order
		ok    bool
	}
	r, err := do(ctx, e, "submit", func(tx *Tx) (submitted, error) {
		o, ok := tx.Orders.Submit()
		if ok {
			tx.Changed()
			tx.Notify(StatusSuccess, MsgOrderSubmitted(o.OrderNumber))
		}
		return submitted{o, ok}, nil
	})
	return r.order, r.ok, err
}

// Complete marks an order completed. Reports false for an unknown number.
func (e *Engine) Complete(ctx context.Context, orderNumber int) (bool, error) {
	return do(ctx, e, "complete", func(tx *Tx) (bool, error) {
		if !tx.Orders.Complete(orderNumber) {
			return false, nil
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgOrderCompleted(orderNumber))
		return true, nil
	})
}

// MarkCompletedRemote completes an order from the kitchen view. With one
// persistence granularity this is a whole-document write like Complete.
func (e *Engine) MarkCompletedRemote(ctx context.Context, orderNumber int) (bool, error) {
	ok, err := e.Complete(ctx, orderNumber)
	if err == nil && ok {
		slog.Info("order completed from kitchen", "client", e.clientID, "order", orderNumber)
	}
	return ok, err
}

// ClearCompleted removes completed orders.
func (e *Engine) ClearCompleted(ctx context.Context, confirmed bool) (int, error) {
	return do(ctx, e, "clear-completed", func(tx *Tx) (int, error) {
		n, err := tx.Orders.ClearCompleted(confirmed)
		if err != nil {
			return 0, err
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgCompletedCleared)
		return n, nil
	})
}

// ResetAll removes every order.
func (e *Engine) ResetAll(ctx context.Context, confirmed bool) (int, error) {
	return do(ctx, e, "reset-orders", func(tx *Tx) (int, error) {
		n, err := tx.Orders.ResetAll(confirmed)
		if err != nil {
			return 0, err
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgOrdersReset)
		return n, nil
	})
}

// ResetCounter zeroes the order counter.
func (e *Engine) ResetCounter(ctx context.Context, confirmed bool) error {
	_, err := do(ctx, e, "reset-counter", func(tx *Tx) (struct{}, error) {
		if err := tx.Orders.ResetCounter(confirmed); err != nil {
			return struct{}{}, err
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgCounterReset)
		return struct{}{}, nil
	})
	return err
}

// Statistics reports units sold per menu item against its cap.
func (e *Engine) Statistics(ctx context.Context) ([]orders.ItemStat, error) {
	return do(ctx, e, "statistics", func(tx *Tx) ([]orders.ItemStat, error) {
		return tx.Orders.Statistics(), nil
	})
}

// AddToCart adds a line to the local cart. The cart is never persisted.
// added is false when the quantity coerced to zero.
func (e *Engine) AddToCart(ctx context.Context, itemID int, quantity mirror.Number, addDrink bool) (line ledger.CartLine, added bool, err error) {
	type addResult struct {
		line  ledger.CartLine
		added bool
	}
	r, err := do(ctx, e, "cart-add", func(tx *Tx) (addResult, error) {
		l, ok, err := tx.State.AddToCart(itemID, quantity, addDrink)
		return addResult{l, ok}, err
	})
	return r.line, r.added, err
}

// ClearCart empties the local cart.
func (e *Engine) ClearCart(ctx context.Context) error {
	_, err := do(ctx, e, "cart-clear", func(tx *Tx) (struct{}, error) {
		tx.State.ClearCart()
		return struct{}{}, nil
	})
	return err
}

// AddMenuItem validates and adds a menu item.
func (e *Engine) AddMenuItem(ctx context.Context, in mirror.MenuItemInput) (ledger.MenuItem, error) {
	return do(ctx, e, "menu-add", func(tx *Tx) (ledger.MenuItem, error) {
		item, err := tx.State.AddMenuItem(in)
		if err != nil {
			return item, err
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgMenuSaved)
		return item, nil
	})
}

// EditMenuItem validates and replaces a menu item.
func (e *Engine) EditMenuItem(ctx context.Context, id int, in mirror.MenuItemInput) (ledger.MenuItem, error) {
	return do(ctx, e, "menu-edit", func(tx *Tx) (ledger.MenuItem, error) {
		item, err := tx.State.EditMenuItem(id, in)
		if err != nil {
			return item, err
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgMenuSaved)
		return item, nil
	})
}

// DeleteMenuItem removes a menu item and its cap.
func (e *Engine) DeleteMenuItem(ctx context.Context, id int) (bool, error) {
	return do(ctx, e, "menu-delete", func(tx *Tx) (bool, error) {
		if !tx.State.DeleteMenuItem(id) {
			return false, nil
		}
		tx.Changed()
		return true, nil
	})
}

// AddExtraOption validates and adds an extra option.
func (e *Engine) AddExtraOption(ctx context.Context, in mirror.ExtraOptionInput) (ledger.ExtraOption, error) {
	return do(ctx, e, "extra-add", func(tx *Tx) (ledger.ExtraOption, error) {
		opt, err := tx.State.AddExtraOption(in)
		if err != nil {
			return opt, err
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgMenuSaved)
		return opt, nil
	})
}

// EditExtraOption validates and replaces an extra option.
func (e *Engine) EditExtraOption(ctx context.Context, id int, in mirror.ExtraOptionInput) (ledger.ExtraOption, error) {
	return do(ctx, e, "extra-edit", func(tx *Tx) (ledger.ExtraOption, error) {
		opt, err := tx.State.EditExtraOption(id, in)
		if err != nil {
			return opt, err
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgMenuSaved)
		return opt, nil
	})
}

// DeleteExtraOption removes an extra option.
func (e *Engine) DeleteExtraOption(ctx context.Context, id int) (bool, error) {
	return do(ctx, e, "extra-delete", func(tx *Tx) (bool, error) {
		if !tx.State.DeleteExtraOption(id) {
			return false, nil
		}
		tx.Changed()
		return true, nil
	})
}

// SetCap sets the inventory cap for an item and returns the stored value.
func (e *Engine) SetCap(ctx context.Context, id int, value mirror.Number) (int, error) {
	return do(ctx, e, "cap", func(tx *Tx) (int, error) {
		n, err := tx.State.SetCap(id, value)
		if err != nil {
			return 0, err
		}
		tx.Changed()
		return n, nil
	})
}

// SetIdentity updates the stand name. Empty fields keep their value.
func (e *Engine) SetIdentity(ctx context.Context, in mirror.IdentityInput) (ledger.SiteIdentity, error) {
	return do(ctx, e, "identity", func(tx *Tx) (ledger.SiteIdentity, error) {
		id := tx.State.SetIdentity(in)
		tx.Changed()
		tx.Notify(StatusSuccess, MsgIdentityUpdated)
		return id, nil
	})
}

// SetTheme switches the palette. Reports false and changes nothing for an
// unknown key.
func (e *Engine) SetTheme(ctx context.Context, key string) (bool, error) {
	return do(ctx, e, "theme", func(tx *Tx) (bool, error) {
		if !tx.State.SetTheme(key) {
			return false, nil
		}
		tx.Changed()
		tx.Notify(StatusSuccess, MsgThemeChanged)
		return true, nil
	})
}
