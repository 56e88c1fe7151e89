package ledger

// DefaultTheme is the palette key used by a fresh document.
const DefaultTheme = "orange"

// Theme is one entry of the fixed color palette.
type Theme struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

var palette = []Theme{
	{Key: "orange", Name: "橙色主題 | Orange", Primary: "#FF6B35", Secondary: "#F7931E", Accent: "#FDC830"},
	{Key: "blue", Name: "藍色主題 | Blue", Primary: "#3B82F6", Secondary: "#60A5FA", Accent: "#93C5FD"},
	{Key: "green", Name: "綠色主題 | Green", Primary: "#10B981", Secondary: "#34D399", Accent: "#6EE7B7"},
	{Key: "purple", Name: "紫色主題 | Purple", Primary: "#8B5CF6", Secondary: "#A78BFA", Accent: "#C4B5FD"},
	{Key: "red", Name: "紅色主題 | Red", Primary: "#EF4444", Secondary: "#F87171", Accent: "#FCA5A5"},
}

// Palette returns the themes in display order.
func Palette() []Theme {
	out := make([]Theme, len(palette))
	copy(out, palette)
	return out
}

// LookupTheme finds a theme by key.
func LookupTheme(key string) (Theme, bool) {
	for _, t := range palette {
		if t.Key == key {
			return t, true
		}
	}
	return Theme{}, false
}
