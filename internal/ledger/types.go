package ledger

import "math"

// MenuItem is a sellable item. IDs are assigned from Document.NextItemID
// and never reused.
type MenuItem struct {
	ID          int    `json:"id"`
	Emoji       string `json:"emoji"`
	NameLocal   string `json:"nameCh"`
	NameAlt     string `json:"nameEn"`
	Price       int    `json:"price"`
	CanAddDrink bool   `json:"canAddDrink"`
}

// ExtraOption is an add-on priced separately from the drink flag.
type ExtraOption struct {
	ID        int    `json:"id"`
	NameLocal string `json:"nameCh"`
	NameAlt   string `json:"nameEn"`
	Price     int    `json:"price"`
}

// CartLine is one line of a cart. TotalPrice is computed when the line is
// added and is not recomputed if the menu price changes later.
type CartLine struct {
	ItemID     int    `json:"id"`
	Emoji      string `json:"emoji"`
	NameLocal  string `json:"nameCh"`
	NameAlt    string `json:"nameEn"`
	Quantity   int    `json:"quantity"`
	AddDrink   bool   `json:"addDrink"`
	TotalPrice int    `json:"totalPrice"`
}

// Order is a submitted cart. Items and Total never change after creation;
// Completed only moves from false to true.
type Order struct {
	OrderNumber int        `json:"orderNumber"`
	Items       []CartLine `json:"items"`
	Total       int        `json:"total"`
	CreatedAt   Timestamp  `json:"timestamp"`
	Completed   bool       `json:"completed"`
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	dup := o
	dup.Items = CloneLines(o.Items)
	return dup
}

// SiteIdentity is the single global name of the stand.
type SiteIdentity struct {
	Emoji     string `json:"emoji"`
	NameLocal string `json:"chinese"`
	NameAlt   string `json:"english"`
}

// Document is the full snapshot stored at the ledger path.
type Document struct {
	MenuItems         []MenuItem    `json:"menuItems"`
	Orders            []Order       `json:"orders"`
	OrderCounter      int           `json:"orderCounter"`
	MaxInventory      map[int]int   `json:"maxInventory"`
	CurrentTheme      string        `json:"currentTheme"`
	SiteName          SiteIdentity  `json:"siteName"`
	ExtraOptions      []ExtraOption `json:"extraOptions"`
	NextItemID        int           `json:"nextItemId"`
	NextExtraOptionID int           `json:"nextExtraOptionId"`
	LastUpdated       string        `json:"lastUpdated"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	dup := d
	dup.MenuItems = make([]MenuItem, len(d.MenuItems))
	copy(dup.MenuItems, d.MenuItems)
	dup.ExtraOptions = make([]ExtraOption, len(d.ExtraOptions))
	copy(dup.ExtraOptions, d.ExtraOptions)
	dup.Orders = CloneOrders(d.Orders)
	dup.MaxInventory = CloneCaps(d.MaxInventory)
	return dup
}

// CloneLines deep-copies cart lines. Returns an empty (non-nil) slice for
// empty input so documents always serialize arrays, never null.
func CloneLines(lines []CartLine) []CartLine {
	dup := make([]CartLine, len(lines))
	copy(dup, lines)
	return dup
}

// CloneOrders deep-copies a slice of orders.
func CloneOrders(orders []Order) []Order {
	dup := make([]Order, len(orders))
	for i, o := range orders {
		dup[i] = o.Clone()
	}
	return dup
}

// CloneCaps copies an inventory cap map.
func CloneCaps(caps map[int]int) map[int]int {
	dup := make(map[int]int, len(caps))
	for k, v := range caps {
		dup[k] = v
	}
	return dup
}

// LineTotal computes the frozen price of a cart line. The result
// saturates instead of wrapping.
func LineTotal(price int, addDrink bool, drinkSurcharge, quantity int) int {
	unit := price
	if addDrink {
		unit = addSat(unit, drinkSurcharge)
	}
	return mulSat(unit, quantity)
}

// SumLines returns the sum of TotalPrice over lines, saturating at the int
// range.
func SumLines(lines []CartLine) int {
	total := 0
	for _, l := range lines {
		total = addSat(total, l.TotalPrice)
	}
	return total
}

func addSat(a, b int) int {
	sum := a + b
	switch {
	case a > 0 && b > 0 && sum < 0:
		return math.MaxInt
	case a < 0 && b < 0 && sum >= 0:
		return math.MinInt
	}
	return sum
}

func mulSat(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/b == a && !(a == -1 && b == math.MinInt) && !(b == -1 && a == math.MinInt) {
		return p
	}
	if (a > 0) == (b > 0) {
		return math.MaxInt
	}
	return math.MinInt
}
