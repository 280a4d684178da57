package tui

import (
	"fmt"
	"strings"

	"github.com/thenoetrevino/dealflow/internal/kanban"
)

const (
	// rows taken by the header, status line and short help
	chromeHeight = 6

	// a bordered one-line card
	cardHeight = 3

	minColumnWidth = 22
	maxColumnWidth = 40
)

// View implements tea.Model
func (m Model[T]) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n")

	view := kanban.View{
		Offsets:     m.offsets,
		MaxCards:    m.maxCards(),
		ColumnWidth: m.columnWidth(),
		Palette:     m.palette,
	}
	if colID, ok := m.focusedColumnID(); ok {
		view.FocusColumn = colID
		view.FocusItem, _ = m.focusedItemID()
	}
	b.WriteString(m.board.View(m.renderer, view))
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model[T]) header() string {
	title := m.title
	if title == "" {
		title = "Board"
	}
	out := m.styles.title.Render(title)

	if m.mode == searchMode {
		return out + "  " + m.search.View()
	}
	if q := m.board.Query(); q != "" {
		out += "  " + m.styles.subtle.Render(fmt.Sprintf("filter: %q (esc to clear)", q))
	}
	return out
}

func (m Model[T]) statusLine() string {
	snap := m.board.Snapshot()
	var parts []string

	if snap.Drag != nil {
		parts = append(parts, m.styles.warning.Render(fmt.Sprintf("dragging %s → %s",
			snap.Drag.ItemID, m.columnName(snap.Drag.TargetColumnID))))
	}
	if snap.PendingMoves > 0 {
		parts = append(parts, m.styles.info.Render(fmt.Sprintf("%d pending", snap.PendingMoves)))
	}
	if f := snap.LastFailure; f != nil {
		reason := "rejected"
		if f.Err != nil {
			reason = f.Err.Error()
		}
		parts = append(parts, m.styles.err.Render(fmt.Sprintf("last failed move: %s to %s (%s)",
			f.ItemID, m.columnName(f.To), reason)))
	}
	if m.notice != "" {
		style := m.styles.info
		if m.noticeErr {
			style = m.styles.err
		}
		parts = append(parts, style.Render(m.notice))
	}
	if len(parts) == 0 {
		parts = append(parts, m.styles.subtle.Render("ready"))
	}

	line := strings.Join(parts, "  ")
	if m.width > 0 {
		return m.styles.statusBar.Width(m.width).Render(line)
	}
	return m.styles.statusBar.Render(line)
}

// maxCards is the number of cards that fit vertically, 0 when the
// terminal size is unknown
func (m Model[T]) maxCards() int {
	if m.height <= 0 {
		return 0
	}
	return max((m.height-chromeHeight)/cardHeight-1, 1)
}

func (m Model[T]) columnWidth() int {
	n := len(m.board.Columns())
	if m.width <= 0 || n == 0 {
		return 0
	}
	return min(max(m.width/n-2, minColumnWidth), maxColumnWidth)
}
