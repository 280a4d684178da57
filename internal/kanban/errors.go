package kanban

import "errors"

// Drag state machine and configuration errors. Data-plane failures (fetch,
// move) are never returned; they are logged and absorbed by the board.
var (
	ErrNoColumns       = errors.New("board needs at least one column")
	ErrDuplicateColumn = errors.New("duplicate column id")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrUnknownItem     = errors.New("item not found in column")
	ErrDragInProgress  = errors.New("a drag is already in progress")
	ErrNoDrag          = errors.New("no drag in progress")
	ErrItemLocked      = errors.New("item has a move in flight")
)
