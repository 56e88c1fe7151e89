package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/foodstand/internal/ledger"
)

func TestStatisticsLevels(t *testing.T) {
	menu := []ledger.MenuItem{
		{ID: 1, Emoji: "🥘", NameLocal: "a", NameAlt: "A"},
		{ID: 2, Emoji: "🌭", NameLocal: "b", NameAlt: "B"},
		{ID: 3, Emoji: "🍎", NameLocal: "c", NameAlt: "C"},
		{ID: 4, Emoji: "🍊", NameLocal: "d", NameAlt: "D"},
	}
	caps := map[int]int{1: 10, 2: 10, 3: 10}
	orders := []ledger.Order{
		{Items: []ledger.CartLine{{ItemID: 1, Quantity: 6}, {ItemID: 2, Quantity: 7}}, Completed: true},
		{Items: []ledger.CartLine{{ItemID: 3, Quantity: 9}, {ItemID: 4, Quantity: 2}, {ItemID: 99, Quantity: 5}}},
	}

	stats := Statistics(menu, caps, orders)
	require.Len(t, stats, 4)

	tests := []struct {
		sold    int
		percent float64
		level   Level
	}{
		{6, 60, LevelOK},
		{7, 70, LevelWarning},
		{9, 90, LevelDanger},
		{2, 0, LevelOK},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.sold, stats[i].Sold, "item %d", i+1)
		assert.InDelta(t, tt.percent, stats[i].Percent, 0.001, "item %d", i+1)
		assert.Equal(t, tt.level, stats[i].Level, "item %d", i+1)
	}
}

func TestStatisticsFromManager(t *testing.T) {
	m, s := setupManager(t)
	addLine(t, s, 3, 27, false)
	_, ok := m.Submit()
	require.True(t, ok)

	var apple ItemStat
	for _, st := range m.Statistics() {
		if st.ItemID == 3 {
			apple = st
		}
	}
	assert.Equal(t, 27, apple.Sold)
	assert.Equal(t, 30, apple.Cap)
	assert.Equal(t, LevelDanger, apple.Level)
}
