package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/foodstand/internal/ledger"
)

// Fixed status colors; the theme only tints headings and accents.
const (
	colorSuccess = "#22C55E"
	colorWarning = "#F59E0B"
	colorDanger  = "#EF4444"
	colorMuted   = "#9CA3AF"
)

// Styles are the lipgloss styles for text output, tinted with the stand's
// current theme.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Accent  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles returns styles for theme t.
func NewStyles(t ledger.Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Primary)).
			Bold(true),

		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Secondary)).
			Underline(true),

		Accent: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted)),

		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess)).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorWarning)),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorDanger)).
			Bold(true),
	}
}

// defaultStyles uses the default theme, for output produced before any
// document is loaded.
func defaultStyles() Styles {
	t, _ := ledger.LookupTheme(ledger.DefaultTheme)
	return NewStyles(t)
}
