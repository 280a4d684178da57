package kanban

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	defaultColumnWidth = 32
	defaultEmptyText   = "Nothing here"
)

// Palette holds the colors Render uses. Empty fields fall back to
// DefaultPalette.
type Palette struct {
	ColumnBorder string
	CardBorder   string
	Focus        string
	Drag         string
	Locked       string
	Subtle       string
}

// DefaultPalette is the 256-color scheme used when no theme is configured
var DefaultPalette = Palette{
	ColumnBorder: "62",
	CardBorder:   "240",
	Focus:        "170",
	Drag:         "214",
	Locked:       "244",
	Subtle:       "241",
}

func (p Palette) withDefaults() Palette {
	d := DefaultPalette
	if p.ColumnBorder == "" {
		p.ColumnBorder = d.ColumnBorder
	}
	if p.CardBorder == "" {
		p.CardBorder = d.CardBorder
	}
	if p.Focus == "" {
		p.Focus = d.Focus
	}
	if p.Drag == "" {
		p.Drag = d.Drag
	}
	if p.Locked == "" {
		p.Locked = d.Locked
	}
	if p.Subtle == "" {
		p.Subtle = d.Subtle
	}
	return p
}

// View identifies the cursor and viewport for Render
type View struct {
	// FocusColumn and FocusItem mark the cursor. Empty means no cursor.
	FocusColumn string
	FocusItem   string
	// Offsets is the index of the first visible card per column
	Offsets map[string]int
	// MaxCards limits the cards drawn per column; 0 draws all of them
	MaxCards    int
	ColumnWidth int
	EmptyText   string
	// Locked marks items with a move in flight
	Locked  map[string]bool
	Palette Palette
}

// Render draws a board snapshot. It is a pure function of its arguments.
//
// Layout per column:
//
//	{Name} ({loaded}/{total})
//	{summary, if the renderer supplies one}
//	▲ more above
//	{cards}
//	▼ more below / ↓ scroll for more
func Render[T any](snap Snapshot[T], src interface{ ItemID(T) string }, r Renderer[T], view View) string {
	columns := make([]string, 0, len(snap.Columns))
	for _, col := range snap.Columns {
		columns = append(columns, RenderColumn(col, snap.Drag, src, r, view))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

// RenderColumn draws one column of a snapshot
func RenderColumn[T any](col ColumnSnapshot[T], drag *DragSession, src interface{ ItemID(T) string }, r Renderer[T], view View) string {
	width := view.ColumnWidth
	if width <= 0 {
		width = defaultColumnWidth
	}
	emptyText := view.EmptyText
	if emptyText == "" {
		emptyText = defaultEmptyText
	}

	p := view.Palette.withDefaults()
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.CardBorder)).
		Padding(0, 1)
	columnStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.ColumnBorder)).
		Padding(0, 1)
	indicatorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Subtle))
	emptyStyle := indicatorStyle.Italic(true).Padding(1, 0)

	state := col.State
	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true)
	if col.Column.Color != "" {
		title = title.Foreground(lipgloss.Color(col.Column.Color))
	}
	b.WriteString(title.Render(fmt.Sprintf("%s (%d/%d)", col.Column.Name, len(state.Items), state.Total)))

	if summary, ok := r.RenderColumnSummary(col.Column.ID, state.Items, state.Total); ok {
		b.WriteString("\n")
		b.WriteString(indicatorStyle.Render(summary))
	}
	if drag != nil && drag.TargetColumnID == col.Column.ID && drag.SourceColumnID != col.Column.ID {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(p.Drag)).Render("⇣ drop here"))
	}

	if len(state.Items) == 0 {
		text := emptyText
		if state.Loading {
			text = "Loading…"
		}
		b.WriteString("\n")
		b.WriteString(emptyStyle.Render(text))
		return columnStyle.Width(width).Render(b.String())
	}

	offset := min(max(view.Offsets[col.Column.ID], 0), len(state.Items)-1)
	end := len(state.Items)
	if view.MaxCards > 0 {
		end = min(offset+view.MaxCards, end)
	}

	if offset > 0 {
		b.WriteString("\n")
		b.WriteString(indicatorStyle.Render("▲ more above"))
	}

	cardWidth := max(width-4, 8)
	for _, item := range state.Items[offset:end] {
		id := src.ItemID(item)
		style := cardStyle.Width(cardWidth)
		switch {
		case drag != nil && drag.ItemID == id:
			style = style.BorderForeground(lipgloss.Color(p.Drag))
		case view.FocusColumn == col.Column.ID && view.FocusItem == id:
			style = style.BorderForeground(lipgloss.Color(p.Focus))
		case view.Locked[id]:
			style = style.BorderForeground(lipgloss.Color(p.Locked)).Faint(true)
		}
		b.WriteString("\n")
		b.WriteString(style.Render(r.RenderCard(item)))
	}

	switch {
	case end < len(state.Items):
		b.WriteString("\n")
		b.WriteString(indicatorStyle.Render("▼ more below"))
	case state.Loading:
		b.WriteString("\n")
		b.WriteString(indicatorStyle.Render("Loading…"))
	case state.HasMore:
		b.WriteString("\n")
		b.WriteString(indicatorStyle.Render(fmt.Sprintf("↓ %d more", state.Total-len(state.Items))))
	}

	return columnStyle.Width(width).Render(b.String())
}

// View renders the board's current state with r
func (b *Board[T]) View(r Renderer[T], view View) string {
	snap := b.Snapshot()
	if view.EmptyText == "" {
		view.EmptyText = b.emptyText
	}
	if view.Locked == nil {
		b.mu.Lock()
		view.Locked = make(map[string]bool, len(b.locked))
		for id := range b.locked {
			view.Locked[id] = true
		}
		b.mu.Unlock()
	}
	return Render(snap, b.src, r, view)
}
