package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/thenoetrevino/dealflow/internal/config/colors"
	"github.com/thenoetrevino/dealflow/internal/kanban"
)

// styles are derived once from the configured color scheme
type styles struct {
	title     lipgloss.Style
	subtle    lipgloss.Style
	info      lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
	statusBar lipgloss.Style
}

func newStyles(c colors.ColorScheme) styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Accent)),
		subtle:    lipgloss.NewStyle().Foreground(lipgloss.Color(c.Subtle)),
		info:      lipgloss.NewStyle().Foreground(lipgloss.Color(c.InfoFg)),
		warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(c.WarningFg)),
		err:       lipgloss.NewStyle().Foreground(lipgloss.Color(c.ErrorFg)),
		statusBar: lipgloss.NewStyle().Foreground(lipgloss.Color(c.StatusBarText)).Background(lipgloss.Color(c.StatusBarBg)).Padding(0, 1),
	}
}

// PaletteFrom maps a color scheme onto the board renderer's palette
func PaletteFrom(c colors.ColorScheme) kanban.Palette {
	return kanban.Palette{
		ColumnBorder: c.ColumnBorder,
		CardBorder:   c.CardBorder,
		Focus:        c.SelectedBorder,
		Drag:         c.DragBorder,
		Locked:       c.LockedBorder,
		Subtle:       c.Subtle,
	}
}
