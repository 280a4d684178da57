package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thenoetrevino/dealflow/internal/kanban"
)

// Update implements tea.Model
func (m Model[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.clamp()
		return m, nil

	case boardChangedMsg:
		m.clamp()
		return m, m.waitForChange()

	case moveSettledMsg:
		if msg.ok {
			m.setNotice(fmt.Sprintf("moved %s to %s", msg.itemID, m.columnName(msg.to)), false)
		} else {
			reason := "rejected"
			if msg.err != nil {
				reason = msg.err.Error()
			}
			m.setNotice(fmt.Sprintf("move of %s failed: %s", msg.itemID, reason), true)
		}
		m.clamp()
		return m, nil

	case refreshedMsg:
		m.clamp()
		return m, nil

	case pageLoadedMsg:
		m.clamp()
		return m, nil

	case tea.KeyMsg:
		if m.mode == searchMode {
			return m.updateSearch(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

// ============================================================================
// NORMAL MODE
// ============================================================================

func (m Model[T]) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, dragging := m.board.Drag()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.PrevColumn):
		m.focusColumn(m.col-1, dragging)

	case key.Matches(msg, m.keys.NextColumn):
		m.focusColumn(m.col+1, dragging)

	case key.Matches(msg, m.keys.PrevCard):
		if !dragging {
			m.moveCursor(-1)
		}

	case key.Matches(msg, m.keys.NextCard):
		if !dragging {
			return m, m.moveCursor(1)
		}

	case key.Matches(msg, m.keys.PickUp):
		m.pickUp()

	case key.Matches(msg, m.keys.Drop):
		return m, m.drop()

	case key.Matches(msg, m.keys.Cancel):
		if dragging {
			_ = m.board.Cancel()
			m.setNotice("drag cancelled", false)
		} else if m.board.Query() != "" {
			m.resetCursors()
			return m, m.setQuery("")
		}

	case key.Matches(msg, m.keys.Refresh):
		m.setNotice("refreshing…", false)
		return m, m.refresh()

	case key.Matches(msg, m.keys.Search):
		if dragging {
			return m, nil
		}
		m.mode = searchMode
		m.search.SetValue(m.board.Query())
		m.search.CursorEnd()
		return m, m.search.Focus()
	}
	return m, nil
}

// focusColumn moves the column cursor and, during a drag, the drop target
func (m *Model[T]) focusColumn(idx int, dragging bool) {
	columns := m.board.Columns()
	if idx < 0 || idx >= len(columns) {
		return
	}
	if dragging {
		if err := m.board.DragOver(columns[idx].ID); err != nil {
			m.setNotice(err.Error(), true)
			return
		}
	}
	m.col = idx
	m.clamp()
}

// moveCursor shifts the card cursor and requests the next page once the
// last loaded card is reached
func (m *Model[T]) moveCursor(delta int) tea.Cmd {
	colID, ok := m.focusedColumnID()
	if !ok {
		return nil
	}
	state, _ := m.board.Column(colID)
	if len(state.Items) == 0 {
		return nil
	}
	m.cursor[colID] = min(max(m.cursor[colID]+delta, 0), len(state.Items)-1)
	m.clamp()

	if delta > 0 && m.cursor[colID] == len(state.Items)-1 && state.HasMore && !state.Loading {
		return m.loadMore(colID)
	}
	return nil
}

func (m *Model[T]) pickUp() {
	colID, ok := m.focusedColumnID()
	if !ok {
		return
	}
	itemID, ok := m.focusedItemID()
	if !ok {
		return
	}
	if err := m.board.StartDrag(itemID, colID); err != nil {
		switch {
		case errors.Is(err, kanban.ErrItemLocked):
			m.setNotice("that card is still moving", true)
		case errors.Is(err, kanban.ErrDragInProgress):
			m.setNotice("already holding a card", true)
		default:
			m.setNotice(err.Error(), true)
		}
		return
	}
	m.setNotice("holding "+itemID+", choose a column and drop", false)
}

func (m *Model[T]) drop() tea.Cmd {
	pm, err := m.board.Drop(m.ctx)
	if err != nil {
		if !errors.Is(err, kanban.ErrNoDrag) {
			m.setNotice(err.Error(), true)
		}
		return nil
	}
	if pm == nil {
		m.setNotice("dropped in place", false)
		return nil
	}

	// Follow the card to the end of its new column
	if state, ok := m.board.Column(pm.To); ok {
		m.cursor[pm.To] = max(len(state.Items)-1, 0)
	}
	m.clamp()
	m.setNotice(fmt.Sprintf("moving %s to %s…", pm.ItemID, m.columnName(pm.To)), false)
	return m.waitForMove(pm)
}

// ============================================================================
// SEARCH MODE
// ============================================================================

func (m Model[T]) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = normalMode
		m.search.Blur()
		query := strings.TrimSpace(m.search.Value())
		if query == m.board.Query() {
			return m, nil
		}
		m.resetCursors()
		return m, m.setQuery(query)
	case tea.KeyEsc:
		m.mode = normalMode
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// ============================================================================
// Cursor bookkeeping
// ============================================================================

func (m *Model[T]) resetCursors() {
	clear(m.cursor)
	clear(m.offsets)
}

// clamp keeps every cursor on a loaded card and inside the viewport
func (m *Model[T]) clamp() {
	columns := m.board.Columns()
	if len(columns) == 0 {
		return
	}
	m.col = min(max(m.col, 0), len(columns)-1)

	visible := m.maxCards()
	for _, col := range columns {
		state, _ := m.board.Column(col.ID)
		n := len(state.Items)
		c := min(max(m.cursor[col.ID], 0), max(n-1, 0))
		m.cursor[col.ID] = c

		off := m.offsets[col.ID]
		if visible > 0 {
			if c < off {
				off = c
			}
			if c >= off+visible {
				off = c - visible + 1
			}
		}
		m.offsets[col.ID] = min(max(off, 0), max(n-1, 0))
	}
}

func (m *Model[T]) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m Model[T]) focusedColumnID() (string, bool) {
	columns := m.board.Columns()
	if m.col < 0 || m.col >= len(columns) {
		return "", false
	}
	return columns[m.col].ID, true
}

func (m Model[T]) focusedItemID() (string, bool) {
	colID, ok := m.focusedColumnID()
	if !ok {
		return "", false
	}
	state, _ := m.board.Column(colID)
	idx := m.cursor[colID]
	if idx < 0 || idx >= len(state.Items) {
		return "", false
	}
	return m.board.ItemID(state.Items[idx]), true
}

func (m Model[T]) columnName(id string) string {
	for _, col := range m.board.Columns() {
		if col.ID == id {
			return col.Name
		}
	}
	return id
}
