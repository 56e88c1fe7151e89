package mirror

import (
	"fmt"
	"time"

	"github.com/roach88/foodstand/internal/ledger"
)

// State is the local mirror of the shared document.
type State struct {
	menu        []ledger.MenuItem
	extras      []ledger.ExtraOption
	orders      []ledger.Order
	counter     int
	caps        map[int]int
	theme       string
	identity    ledger.SiteIdentity
	nextItemID  int
	nextExtraID int
	lastUpdated string

	cart []ledger.CartLine
}

// New returns a State holding the default seed document.
func New() *State {
	return FromDocument(ledger.DefaultDocument())
}

// FromDocument returns a State holding a copy of doc and an empty cart.
func FromDocument(doc ledger.Document) *State {
	s := &State{caps: map[int]int{}, theme: ledger.DefaultTheme}
	s.Apply(ledger.Full(doc))
	return s
}

// Apply overwrites local fields with the fields present in snap.
// An unknown theme key is ignored; identity fields that are empty in the
// snapshot keep their local value.
func (s *State) Apply(snap ledger.Snapshot) {
	doc := snap.Document
	if snap.Has(ledger.FieldMenuItems) {
		s.menu = append(s.menu[:0], doc.MenuItems...)
	}
	if snap.Has(ledger.FieldOrders) {
		s.orders = append(s.orders[:0], ledger.CloneOrders(doc.Orders)...)
	}
	if snap.Has(ledger.FieldOrderCounter) {
		s.counter = doc.OrderCounter
	}
	if snap.Has(ledger.FieldMaxInventory) {
		clear(s.caps)
		for id, max := range doc.MaxInventory {
			s.caps[id] = max
		}
	}
	if snap.Has(ledger.FieldCurrentTheme) {
		if _, ok := ledger.LookupTheme(doc.CurrentTheme); ok {
			s.theme = doc.CurrentTheme
		}
	}
	if snap.Has(ledger.FieldSiteName) {
		s.identity = mergeIdentity(s.identity, doc.SiteName, ledger.SiteIdentity{})
	}
	if snap.Has(ledger.FieldExtraOptions) {
		s.extras = append(s.extras[:0], doc.ExtraOptions...)
	}
	if snap.Has(ledger.FieldNextItemID) {
		s.nextItemID = doc.NextItemID
	}
	if snap.Has(ledger.FieldNextExtraOptionID) {
		s.nextExtraID = doc.NextExtraOptionID
	}
	if snap.Has(ledger.FieldLastUpdated) {
		s.lastUpdated = doc.LastUpdated
	}
	s.repairCounters()
}

// repairCounters advances id counters past every existing id.
func (s *State) repairCounters() {
	for _, item := range s.menu {
		if item.ID >= s.nextItemID {
			s.nextItemID = item.ID + 1
		}
	}
	for _, opt := range s.extras {
		if opt.ID >= s.nextExtraID {
			s.nextExtraID = opt.ID + 1
		}
	}
	if s.nextItemID < 1 {
		s.nextItemID = 1
	}
	if s.nextExtraID < 1 {
		s.nextExtraID = 1
	}
}

// Snapshot serializes the whole shared state stamped with now. The cart is
// excluded.
func (s *State) Snapshot(now time.Time) ledger.Document {
	doc := s.Document()
	doc.LastUpdated = ledger.FormatLastUpdated(now)
	return doc
}

// Document returns the shared state with the last applied lastUpdated.
func (s *State) Document() ledger.Document {
	return ledger.Document{
		MenuItems:         s.Menu(),
		Orders:            s.Orders(),
		OrderCounter:      s.counter,
		MaxInventory:      s.Caps(),
		CurrentTheme:      s.theme,
		SiteName:          s.identity,
		ExtraOptions:      s.ExtraOptions(),
		NextItemID:        s.nextItemID,
		NextExtraOptionID: s.nextExtraID,
		LastUpdated:       s.lastUpdated,
	}
}

// Menu returns a copy of the menu in display order.
func (s *State) Menu() []ledger.MenuItem {
	out := make([]ledger.MenuItem, len(s.menu))
	copy(out, s.menu)
	return out
}

// MenuItem looks up a menu item by id.
func (s *State) MenuItem(id int) (ledger.MenuItem, bool) {
	if i := s.menuIndex(id); i >= 0 {
		return s.menu[i], true
	}
	return ledger.MenuItem{}, false
}

func (s *State) menuIndex(id int) int {
	for i, item := range s.menu {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// ExtraOptions returns a copy of the extra options.
func (s *State) ExtraOptions() []ledger.ExtraOption {
	out := make([]ledger.ExtraOption, len(s.extras))
	copy(out, s.extras)
	return out
}

func (s *State) extraIndex(id int) int {
	for i, opt := range s.extras {
		if opt.ID == id {
			return i
		}
	}
	return -1
}

// Orders returns a deep copy of the ledger, newest first.
func (s *State) Orders() []ledger.Order {
	return ledger.CloneOrders(s.orders)
}

// OrderCounter returns the number of the most recently issued order.
func (s *State) OrderCounter() int { return s.counter }

// NextItemID returns the id the next new menu item will receive.
func (s *State) NextItemID() int { return s.nextItemID }

// NextExtraOptionID returns the id the next new extra option will receive.
func (s *State) NextExtraOptionID() int { return s.nextExtraID }

// LastUpdated returns the lastUpdated stamp of the last applied snapshot.
func (s *State) LastUpdated() string { return s.lastUpdated }

// Caps returns a copy of the inventory caps.
func (s *State) Caps() map[int]int {
	return ledger.CloneCaps(s.caps)
}

// Cap returns the cap for one item.
func (s *State) Cap(id int) (int, bool) {
	v, ok := s.caps[id]
	return v, ok
}

// Theme returns the active palette entry.
func (s *State) Theme() ledger.Theme {
	if t, ok := ledger.LookupTheme(s.theme); ok {
		return t
	}
	t, _ := ledger.LookupTheme(ledger.DefaultTheme)
	return t
}

// Identity returns the site identity.
func (s *State) Identity() ledger.SiteIdentity { return s.identity }

// Cart returns a copy of the cart lines.
func (s *State) Cart() []ledger.CartLine {
	return ledger.CloneLines(s.cart)
}

// CartTotal sums the frozen line prices.
func (s *State) CartTotal() int {
	return ledger.SumLines(s.cart)
}

// AddMenuItem validates in and appends a new item with the next id.
func (s *State) AddMenuItem(in MenuItemInput) (ledger.MenuItem, error) {
	in = in.cleaned()
	if err := validateInput(in); err != nil {
		return ledger.MenuItem{}, err
	}
	s.repairCounters()

	canAddDrink := true
	if in.CanAddDrink != nil {
		canAddDrink = *in.CanAddDrink
	}
	item := ledger.MenuItem{
		ID:          s.nextItemID,
		Emoji:       in.Emoji,
		NameLocal:   in.NameLocal,
		NameAlt:     in.NameAlt,
		Price:       in.Price.Int(),
		CanAddDrink: canAddDrink,
	}
	s.nextItemID++
	s.menu = append(s.menu, item)
	s.caps[item.ID] = capOrDefault(in.MaxInventory)
	return item, nil
}

// EditMenuItem validates in and replaces the item's fields and cap.
// Existing cart lines and orders keep their frozen prices.
func (s *State) EditMenuItem(id int, in MenuItemInput) (ledger.MenuItem, error) {
	i := s.menuIndex(id)
	if i < 0 {
		return ledger.MenuItem{}, fmt.Errorf("menu item %d: %w", id, ErrNotFound)
	}
	in = in.cleaned()
	if err := validateInput(in); err != nil {
		return ledger.MenuItem{}, err
	}

	item := &s.menu[i]
	item.Emoji = in.Emoji
	item.NameLocal = in.NameLocal
	item.NameAlt = in.NameAlt
	item.Price = in.Price.Int()
	if in.CanAddDrink != nil {
		item.CanAddDrink = *in.CanAddDrink
	}
	s.caps[id] = capOrDefault(in.MaxInventory)
	return *item, nil
}

// DeleteMenuItem removes the item and its cap. Orders that reference it are
// left as they are. Reports whether the item existed.
func (s *State) DeleteMenuItem(id int) bool {
	i := s.menuIndex(id)
	if i < 0 {
		return false
	}
	s.menu = append(s.menu[:i], s.menu[i+1:]...)
	delete(s.caps, id)
	return true
}

func capOrDefault(n Number) int {
	if n <= 0 {
		return defaultItemCap
	}
	return n.Int()
}

// AddExtraOption validates in and appends a new option with the next id.
func (s *State) AddExtraOption(in ExtraOptionInput) (ledger.ExtraOption, error) {
	in = in.cleaned()
	if err := validateInput(in); err != nil {
		return ledger.ExtraOption{}, err
	}
	s.repairCounters()

	opt := ledger.ExtraOption{
		ID:        s.nextExtraID,
		NameLocal: in.NameLocal,
		NameAlt:   in.NameAlt,
		Price:     in.Price.Int(),
	}
	s.nextExtraID++
	s.extras = append(s.extras, opt)
	return opt, nil
}

// EditExtraOption validates in and replaces the option's fields.
func (s *State) EditExtraOption(id int, in ExtraOptionInput) (ledger.ExtraOption, error) {
	i := s.extraIndex(id)
	if i < 0 {
		return ledger.ExtraOption{}, fmt.Errorf("extra option %d: %w", id, ErrNotFound)
	}
	in = in.cleaned()
	if err := validateInput(in); err != nil {
		return ledger.ExtraOption{}, err
	}
	opt := &s.extras[i]
	opt.NameLocal = in.NameLocal
	opt.NameAlt = in.NameAlt
	opt.Price = in.Price.Int()
	return *opt, nil
}

// DeleteExtraOption removes an option. Reports whether it existed.
func (s *State) DeleteExtraOption(id int) bool {
	i := s.extraIndex(id)
	if i < 0 {
		return false
	}
	s.extras = append(s.extras[:i], s.extras[i+1:]...)
	return true
}

// SetCap sets the inventory cap of a menu item; negative values become 0.
func (s *State) SetCap(id int, value Number) (int, error) {
	if s.menuIndex(id) < 0 {
		return 0, fmt.Errorf("menu item %d: %w", id, ErrNotFound)
	}
	v := value.Int()
	if v < 0 {
		v = 0
	}
	s.caps[id] = v
	return v, nil
}

// SetIdentity updates the site identity field by field. An empty field
// keeps the current value, or the default when there is none.
func (s *State) SetIdentity(in IdentityInput) ledger.SiteIdentity {
	next := ledger.SiteIdentity{
		Emoji:     cleanText(in.Emoji),
		NameLocal: cleanText(in.NameLocal),
		NameAlt:   cleanText(in.NameAlt),
	}
	s.identity = mergeIdentity(s.identity, next, ledger.DefaultDocument().SiteName)
	return s.identity
}

func mergeIdentity(current, next, fallback ledger.SiteIdentity) ledger.SiteIdentity {
	pick := func(n, c, f string) string {
		switch {
		case n != "":
			return n
		case c != "":
			return c
		default:
			return f
		}
	}
	return ledger.SiteIdentity{
		Emoji:     pick(next.Emoji, current.Emoji, fallback.Emoji),
		NameLocal: pick(next.NameLocal, current.NameLocal, fallback.NameLocal),
		NameAlt:   pick(next.NameAlt, current.NameAlt, fallback.NameAlt),
	}
}

// SetTheme switches the palette. Unknown keys are ignored and reported as
// false.
func (s *State) SetTheme(key string) bool {
	if _, ok := ledger.LookupTheme(key); !ok {
		return false
	}
	s.theme = key
	return true
}

// AddToCart appends a line for quantity units of item id. A quantity of
// zero or less adds nothing and reports false. AddDrink is forced off when
// the item cannot add a drink. The line price is frozen now.
func (s *State) AddToCart(id int, quantity Number, addDrink bool) (ledger.CartLine, bool, error) {
	item, ok := s.MenuItem(id)
	if !ok {
		return ledger.CartLine{}, false, fmt.Errorf("menu item %d: %w", id, ErrNotFound)
	}
	qty := quantity.Int()
	if qty <= 0 {
		return ledger.CartLine{}, false, nil
	}
	addDrink = addDrink && item.CanAddDrink
	line := ledger.CartLine{
		ItemID:     item.ID,
		Emoji:      item.Emoji,
		NameLocal:  item.NameLocal,
		NameAlt:    item.NameAlt,
		Quantity:   qty,
		AddDrink:   addDrink,
		TotalPrice: ledger.LineTotal(item.Price, addDrink, ledger.DrinkSurcharge, qty),
	}
	s.cart = append(s.cart, line)
	return line, true, nil
}

// ClearCart empties the cart.
func (s *State) ClearCart() {
	s.cart = s.cart[:0]
}

// TakeCart returns the cart lines and empties the cart.
func (s *State) TakeCart() []ledger.CartLine {
	lines := ledger.CloneLines(s.cart)
	s.ClearCart()
	return lines
}

// IssueOrderNumber increments the order counter and returns the new value.
func (s *State) IssueOrderNumber() int {
	s.counter++
	return s.counter
}

// ResetOrderCounter sets the counter back to zero. Existing orders keep
// their numbers.
func (s *State) ResetOrderCounter() {
	s.counter = 0
}

// PrependOrder inserts o at the front of the ledger.
func (s *State) PrependOrder(o ledger.Order) {
	s.orders = append(s.orders, ledger.Order{})
	copy(s.orders[1:], s.orders)
	s.orders[0] = o.Clone()
}

// MarkCompleted sets Completed on the first order with number n.
// Reports whether such an order exists.
func (s *State) MarkCompleted(n int) bool {
	for i := range s.orders {
		if s.orders[i].OrderNumber == n {
			s.orders[i].Completed = true
			return true
		}
	}
	return false
}

// RetainOrders keeps the orders for which keep returns true, preserving
// their relative order, and returns how many were removed.
func (s *State) RetainOrders(keep func(ledger.Order) bool) int {
	kept := s.orders[:0]
	for _, o := range s.orders {
		if keep(o) {
			kept = append(kept, o)
		}
	}
	removed := len(s.orders) - len(kept)
	for i := len(kept); i < len(s.orders); i++ {
		s.orders[i] = ledger.Order{}
	}
	s.orders = kept
	return removed
}
