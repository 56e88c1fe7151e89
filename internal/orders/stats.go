package orders

import (
	"github.com/roach88/foodstand/internal/ledger"
)

// Level classifies how close an item is to its inventory cap.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

const (
	warningPercent = 70
	dangerPercent  = 90
)

// ItemStat is the sales summary of one menu item. Caps only warn; they
// never block an order.
type ItemStat struct {
	ItemID    int     `json:"itemId"`
	Emoji     string  `json:"emoji"`
	NameLocal string  `json:"nameCh"`
	NameAlt   string  `json:"nameEn"`
	Sold      int     `json:"sold"`
	Cap       int     `json:"max"`
	Percent   float64 `json:"percent"`
	Level     Level   `json:"level"`
}

// Statistics reports units sold per current menu item across all orders,
// pending and completed.
func (m *Manager) Statistics() []ItemStat {
	return Statistics(m.state.Menu(), m.state.Caps(), m.state.Orders())
}

// Statistics computes per-item stats from explicit inputs.
func Statistics(menu []ledger.MenuItem, caps map[int]int, orders []ledger.Order) []ItemStat {
	sold := make(map[int]int, len(menu))
	for _, o := range orders {
		for _, line := range o.Items {
			sold[line.ItemID] += line.Quantity
		}
	}

	stats := make([]ItemStat, 0, len(menu))
	for _, item := range menu {
		st := ItemStat{
			ItemID:    item.ID,
			Emoji:     item.Emoji,
			NameLocal: item.NameLocal,
			NameAlt:   item.NameAlt,
			Sold:      sold[item.ID],
			Cap:       caps[item.ID],
			Level:     LevelOK,
		}
		if st.Cap > 0 {
			st.Percent = float64(st.Sold) / float64(st.Cap) * 100
		}
		switch {
		case st.Percent >= dangerPercent:
			st.Level = LevelDanger
		case st.Percent >= warningPercent:
			st.Level = LevelWarning
		}
		stats = append(stats, st)
	}
	return stats
}
