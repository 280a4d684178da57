// Package kanban implements a generic, paginated kanban board: a per-column
// item cache fed by an injected Source, a drag state machine, optimistic
// moves with rollback, and a lipgloss renderer.
package kanban

import (
	"context"
	"time"
)

// DefaultPageSize is used when Config.PageSize is not positive
const DefaultPageSize = 20

// Column is one lane of the board. Columns are fixed for the life of a Board.
type Column struct {
	ID        string
	Name      string
	Color     string
	SortOrder int
}

// FetchRequest asks a Source for one page of a column. Page is 1-based.
type FetchRequest struct {
	ColumnID string
	Page     int
	PageSize int
	Query    string
}

// Page is one page of items plus the column's total item count
type Page[T any] struct {
	Items []T
	Total int
}

// Source is the data capability a board is built on
type Source[T any] interface {
	FetchItems(ctx context.Context, req FetchRequest) (Page[T], error)
	ItemID(item T) string
	ColumnOf(item T) string
	// MoveItem persists a move. false or an error means the move was
	// rejected and the board reverts its optimistic placement.
	MoveItem(ctx context.Context, item T, from, to string) (bool, error)
}

// Relocator is implemented by sources whose items carry their column
// assignment. The board uses it to keep that field in step with an
// optimistic move.
type Relocator[T any] interface {
	WithColumn(item T, columnID string) T
}

// Renderer supplies the appearance of cards and column summaries
type Renderer[T any] interface {
	RenderCard(item T) string
	// RenderColumnSummary returns false when the column has no summary
	RenderColumnSummary(columnID string, items []T, total int) (string, bool)
}

// ColumnState is the cached pagination state of one column
type ColumnState[T any] struct {
	Items       []T
	Total       int
	CurrentPage int
	HasMore     bool
	Loading     bool
}

// DragSession exists only while a card is being dragged
type DragSession struct {
	ItemID         string
	SourceColumnID string
	TargetColumnID string
}

// MoveFailure describes the most recent move that was reverted
type MoveFailure struct {
	ItemID string
	From   string
	To     string
	Err    error
	At     time.Time
}

// ColumnSnapshot pairs a column with a copy of its state
type ColumnSnapshot[T any] struct {
	Column Column
	State  ColumnState[T]
}

// Snapshot is a consistent copy of the whole board
type Snapshot[T any] struct {
	Columns      []ColumnSnapshot[T]
	Drag         *DragSession
	PendingMoves int
	LastFailure  *MoveFailure
	Query        string
}

// Column returns the snapshot of the column with the given id
func (s Snapshot[T]) Column(id string) (ColumnSnapshot[T], bool) {
	for _, c := range s.Columns {
		if c.Column.ID == id {
			return c, true
		}
	}
	return ColumnSnapshot[T]{}, false
}
