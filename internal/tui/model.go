// Package tui is the terminal front end for a kanban.Board
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thenoetrevino/dealflow/internal/config"
	"github.com/thenoetrevino/dealflow/internal/config/colors"
	"github.com/thenoetrevino/dealflow/internal/kanban"
)

type mode int

const (
	normalMode mode = iota
	searchMode
)

// Options configures a Model
type Options[T any] struct {
	Title    string
	Renderer kanban.Renderer[T]
	Keys     config.KeyMappings
	Colors   colors.ColorScheme
}

// Model is a bubbletea model over a started board. Board state lives in the
// board; the model only tracks the cursor and viewport.
type Model[T any] struct {
	ctx      context.Context
	board    *kanban.Board[T]
	renderer kanban.Renderer[T]
	title    string

	keys    keyMap
	help    help.Model
	search  textinput.Model
	styles  styles
	palette kanban.Palette

	mode    mode
	col     int
	cursor  map[string]int
	offsets map[string]int
	width   int
	height  int

	notice    string
	noticeErr bool
}

// New creates a Model. The caller owns the board's Start and Close.
func New[T any](ctx context.Context, board *kanban.Board[T], opts Options[T]) Model[T] {
	keys := opts.Keys
	if keys == (config.KeyMappings{}) {
		keys = config.DefaultKeyMappings()
	}
	scheme := opts.Colors
	scheme.ApplyDefaults()

	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "search"

	return Model[T]{
		ctx:      ctx,
		board:    board,
		renderer: opts.Renderer,
		title:    opts.Title,
		keys:     newKeyMap(keys),
		help:     help.New(),
		search:   search,
		styles:   newStyles(scheme),
		palette:  PaletteFrom(scheme),
		cursor:   make(map[string]int),
		offsets:  make(map[string]int),
	}
}

// Init starts listening for board changes
func (m Model[T]) Init() tea.Cmd {
	return m.waitForChange()
}

// Run shows the board until the user quits or ctx ends
func Run[T any](ctx context.Context, board *kanban.Board[T], opts Options[T]) error {
	p := tea.NewProgram(New(ctx, board, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// ============================================================================
// Messages
// ============================================================================

type boardChangedMsg struct{}

type moveSettledMsg struct {
	itemID string
	to     string
	ok     bool
	err    error
}

type refreshedMsg struct{}

type pageLoadedMsg struct {
	column string
	loaded bool
}

func (m Model[T]) waitForChange() tea.Cmd {
	changes := m.board.Changes()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-changes:
			return boardChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model[T]) waitForMove(pm *kanban.PendingMove) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ok, err := pm.Wait(ctx)
		return moveSettledMsg{itemID: pm.ItemID, to: pm.To, ok: ok, err: err}
	}
}

func (m Model[T]) refresh() tea.Cmd {
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		board.Refresh(ctx)
		return refreshedMsg{}
	}
}

func (m Model[T]) setQuery(q string) tea.Cmd {
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		board.SetQuery(ctx, q)
		return refreshedMsg{}
	}
}

func (m Model[T]) loadMore(columnID string) tea.Cmd {
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		_, loaded := board.LoadMore(ctx, columnID)
		return pageLoadedMsg{column: columnID, loaded: loaded}
	}
}
