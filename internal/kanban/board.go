package kanban

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thenoetrevino/dealflow/internal/events"
)

const defaultRefreshDebounce = 100 * time.Millisecond

// Config configures a Board
type Config struct {
	Columns   []Column
	PageSize  int
	EmptyText string
	Query     string

	// Bus and RefreshOn select the events that trigger a full reload.
	// A nil Bus disables event-driven refresh; empty RefreshOn means every event.
	Bus             *events.Bus
	RefreshOn       []events.EventType
	RefreshDebounce time.Duration

	Logger *slog.Logger
}

type columnState[T any] struct {
	items       []T
	total       int
	page        int
	hasMore     bool
	loading     bool
	loadingMore bool
	// next is a lower bound on the server offset of the first item not yet
	// loaded. Moves out of the column lower it; overlap is deduplicated.
	next int
	// generation is bumped by every page-1 load; responses carrying an older
	// generation are discarded
	generation uint64
}

// Board is a paginated kanban board over a Source. All methods are safe for
// concurrent use. Fetches and moves never hold the board lock.
type Board[T any] struct {
	src       Source[T]
	columns   []Column
	pageSize  int
	emptyText string
	logger    *slog.Logger

	bus       *events.Bus
	refreshOn []events.EventType
	debounce  time.Duration

	mu          sync.Mutex
	states      map[string]*columnState[T]
	query       string
	drag        *DragSession
	locked      map[string]string // item id -> column it was optimistically moved to
	pending     int
	lastFailure *MoveFailure
	started     bool
	closed      bool

	changed chan struct{}
	sub     *events.Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a board. Columns are ordered by SortOrder; ids must be unique.
func New[T any](src Source[T], cfg Config) (*Board[T], error) {
	if len(cfg.Columns) == 0 {
		return nil, ErrNoColumns
	}

	columns := slices.Clone(cfg.Columns)
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].SortOrder < columns[j].SortOrder
	})

	states := make(map[string]*columnState[T], len(columns))
	for _, col := range columns {
		if _, dup := states[col.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.ID)
		}
		states[col.ID] = &columnState[T]{}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	debounce := cfg.RefreshDebounce
	if debounce <= 0 {
		debounce = defaultRefreshDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board[T]{
		src:       src,
		columns:   columns,
		pageSize:  pageSize,
		emptyText: cfg.EmptyText,
		logger:    logger,
		bus:       cfg.Bus,
		refreshOn: cfg.RefreshOn,
		debounce:  debounce,
		states:    states,
		query:     cfg.Query,
		locked:    make(map[string]string),
		changed:   make(chan struct{}, 1),
	}, nil
}

// Columns returns the board's columns in display order
func (b *Board[T]) Columns() []Column {
	return slices.Clone(b.columns)
}

// PageSize returns the number of items requested per fetch
func (b *Board[T]) PageSize() int {
	return b.pageSize
}

// ItemID returns the source's id for item
func (b *Board[T]) ItemID(item T) string {
	return b.src.ItemID(item)
}

// EmptyText returns the placeholder shown for empty columns
func (b *Board[T]) EmptyText() string {
	return b.emptyText
}

// Changes receives a value whenever board state changes. Bursts of changes
// collapse into a single notification.
func (b *Board[T]) Changes() <-chan struct{} {
	return b.changed
}

func (b *Board[T]) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Start loads page 1 of every column and, when a bus is configured, begins
// refreshing on the configured events. Close stops the refresh listener.
func (b *Board[T]) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("board is closed")
	}
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("board already started")
	}
	b.started = true
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	if b.bus != nil {
		b.sub = b.bus.Subscribe(b.refreshOn...)
	}
	sub := b.sub
	b.mu.Unlock()

	b.LoadAll(ctx)

	if sub != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			events.Batch(ctx, sub.Events(), b.debounce, func(batch []events.Event) {
				b.logger.Debug("refreshing board", "events", len(batch), "last_type", batch[len(batch)-1].Type)
				b.Refresh(ctx)
			})
		}()
	}
	return nil
}

// Close stops background work and waits for in-flight moves to settle
func (b *Board[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	cancel, sub := b.cancel, b.sub
	b.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if cancel != nil {
		cancel()
	}
	b.wg.Wait()
}

// ============================================================================
// Fetch coordination
// ============================================================================

// LoadColumn fetches one page of a column. Page 1 replaces the column's
// items, later pages are appended with duplicate ids skipped. Fetch errors
// are logged and yield an empty page with the cached state left intact, as
// do responses overtaken by a newer page-1 load.
func (b *Board[T]) LoadColumn(ctx context.Context, columnID string, page int) Page[T] {
	if page < 1 {
		page = 1
	}
	return b.load(ctx, columnID, page, page == 1)
}

func (b *Board[T]) load(ctx context.Context, columnID string, page int, replace bool) Page[T] {
	b.mu.Lock()
	st, ok := b.states[columnID]
	if !ok {
		b.mu.Unlock()
		b.logger.Warn("load requested for unknown column", "column", columnID)
		return Page[T]{}
	}
	if replace {
		st.generation++
		st.loading = true
	} else {
		st.loadingMore = true
	}
	gen := st.generation
	req := FetchRequest{ColumnID: columnID, Page: page, PageSize: b.pageSize, Query: b.query}
	b.mu.Unlock()
	b.notify()

	result, err := b.src.FetchItems(ctx, req)

	b.mu.Lock()
	defer b.notify()
	defer b.mu.Unlock()

	if !replace {
		st.loadingMore = false
	}
	if st.generation != gen {
		b.logger.Debug("discarding stale page", "column", columnID, "page", page)
		return Page[T]{}
	}
	if replace {
		st.loading = false
	}
	if err != nil {
		b.logger.Error("failed to fetch column", "column", columnID, "page", page, "error", err)
		return Page[T]{}
	}

	end := (page-1)*b.pageSize + len(result.Items)
	result.Items = b.belongingTo(columnID, result.Items)
	if replace {
		b.replaceLocked(columnID, st, result)
		st.next = end
	} else {
		b.appendLocked(st, result)
		st.next = max(st.next, end)
	}
	st.page = page
	st.total = max(result.Total, len(st.items))
	st.hasMore = len(st.items) < st.total
	return result
}

// belongingTo drops items the source placed in the wrong column
func (b *Board[T]) belongingTo(columnID string, items []T) []T {
	out := items[:0:0]
	for _, item := range items {
		if col := b.src.ColumnOf(item); col != columnID {
			b.logger.Debug("skipping item from another column",
				"item", b.src.ItemID(item), "column", columnID, "item_column", col)
			continue
		}
		out = append(out, item)
	}
	return out
}

// replaceLocked installs a fresh page 1. Items with a move in flight keep
// their optimistic placement. Caller holds b.mu.
func (b *Board[T]) replaceLocked(columnID string, st *columnState[T], result Page[T]) {
	seen := make(map[string]bool, len(result.Items))
	items := make([]T, 0, len(result.Items))
	for _, item := range result.Items {
		id := b.src.ItemID(item)
		if seen[id] {
			continue
		}
		if target, moving := b.locked[id]; moving && target != columnID {
			continue
		}
		seen[id] = true
		items = append(items, item)
	}
	for _, item := range st.items {
		id := b.src.ItemID(item)
		if target, moving := b.locked[id]; moving && target == columnID && !seen[id] {
			seen[id] = true
			items = append(items, item)
		}
	}
	st.items = items
}

// appendLocked appends a later page, skipping ids already present.
// Caller holds b.mu.
func (b *Board[T]) appendLocked(st *columnState[T], result Page[T]) {
	seen := make(map[string]bool, len(st.items)+len(result.Items))
	for _, item := range st.items {
		seen[b.src.ItemID(item)] = true
	}
	for _, item := range result.Items {
		id := b.src.ItemID(item)
		if seen[id] {
			continue
		}
		if _, moving := b.locked[id]; moving {
			continue
		}
		seen[id] = true
		st.items = append(st.items, item)
	}
}

// LoadAll fetches page 1 of every column concurrently
func (b *Board[T]) LoadAll(ctx context.Context) {
	var g errgroup.Group
	for _, col := range b.columns {
		g.Go(func() error {
			b.LoadColumn(ctx, col.ID, 1)
			return nil
		})
	}
	_ = g.Wait()
}

// Refresh discards cached pages and reloads page 1 of every column
func (b *Board[T]) Refresh(ctx context.Context) {
	b.LoadAll(ctx)
}

// LoadMore appends the page holding the first item not yet loaded. After a
// card leaves the column that page may overlap what is cached; repeated ids
// are skipped. It reports false without fetching when the column has no
// more items or a load is already running.
func (b *Board[T]) LoadMore(ctx context.Context, columnID string) (Page[T], bool) {
	b.mu.Lock()
	st, ok := b.states[columnID]
	if !ok || !st.hasMore || st.loading || st.loadingMore {
		b.mu.Unlock()
		return Page[T]{}, false
	}
	page := st.next/b.pageSize + 1
	b.mu.Unlock()

	return b.load(ctx, columnID, page, false), true
}

// SetQuery changes the search filter and reloads every column
func (b *Board[T]) SetQuery(ctx context.Context, query string) {
	b.mu.Lock()
	changed := b.query != query
	b.query = query
	b.mu.Unlock()

	if changed {
		b.Refresh(ctx)
	}
}

// Query returns the active search filter
func (b *Board[T]) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// ============================================================================
// Drag session
// ============================================================================

// StartDrag picks up an item from a column
func (b *Board[T]) StartDrag(itemID, columnID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[columnID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, columnID)
	}
	if b.drag != nil {
		return ErrDragInProgress
	}
	if _, moving := b.locked[itemID]; moving {
		return fmt.Errorf("%w: %s", ErrItemLocked, itemID)
	}
	if b.indexOf(st, itemID) < 0 {
		return fmt.Errorf("%w: %s in %s", ErrUnknownItem, itemID, columnID)
	}

	b.drag = &DragSession{ItemID: itemID, SourceColumnID: columnID, TargetColumnID: columnID}
	b.notify()
	return nil
}

// DragOver sets the column the dragged item would be dropped on
func (b *Board[T]) DragOver(columnID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag == nil {
		return ErrNoDrag
	}
	if _, ok := b.states[columnID]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, columnID)
	}
	b.drag.TargetColumnID = columnID
	b.notify()
	return nil
}

// Cancel abandons the active drag without side effects
func (b *Board[T]) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag == nil {
		return ErrNoDrag
	}
	b.drag = nil
	b.notify()
	return nil
}

// Drag returns the active drag session
func (b *Board[T]) Drag() (DragSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return DragSession{}, false
	}
	return *b.drag, true
}

// Drop ends the drag. Dropping on the source column returns a nil move and
// changes nothing. Otherwise the item is moved to the end of the target
// column immediately and the source's MoveItem runs in the background; if
// it fails the item returns to its previous index. The returned
// PendingMove settles when MoveItem does.
func (b *Board[T]) Drop(ctx context.Context) (*PendingMove, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag == nil {
		return nil, ErrNoDrag
	}
	session := *b.drag
	b.drag = nil
	b.notify()

	from, to := session.SourceColumnID, session.TargetColumnID
	if from == to {
		return nil, nil
	}

	source, target := b.states[from], b.states[to]
	idx := b.indexOf(source, session.ItemID)
	if idx < 0 {
		// A refresh removed the item while it was being dragged
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownItem, session.ItemID, from)
	}

	original := source.items[idx]
	source.items = slices.Delete(source.items, idx, idx+1)
	source.total = max(source.total-1, len(source.items))
	source.next = max(source.next-1, 0)

	moved := original
	if r, ok := b.src.(Relocator[T]); ok {
		moved = r.WithColumn(original, to)
	}
	target.items = append(target.items, moved)
	target.total = max(target.total+1, len(target.items))

	b.locked[session.ItemID] = to
	b.pending++

	pm := newPendingMove(session.ItemID, from, to)
	b.wg.Add(1)
	go b.settle(ctx, pm, original, idx)
	return pm, nil
}

// settle runs the source's move and reverts the optimistic placement when
// it is rejected
func (b *Board[T]) settle(ctx context.Context, pm *PendingMove, original T, index int) {
	defer b.wg.Done()

	ok, err := b.src.MoveItem(ctx, original, pm.From, pm.To)

	b.mu.Lock()
	delete(b.locked, pm.ItemID)
	b.pending--
	if err != nil || !ok {
		b.revertLocked(pm, original, index)
		b.lastFailure = &MoveFailure{ItemID: pm.ItemID, From: pm.From, To: pm.To, Err: err, At: time.Now()}
		b.logger.Warn("move rejected, reverting",
			"item", pm.ItemID, "from", pm.From, "to", pm.To, "error", err)
	} else {
		b.logger.Debug("move settled", "item", pm.ItemID, "from", pm.From, "to", pm.To)
	}
	b.mu.Unlock()

	pm.finish(ok && err == nil, err)
	b.notify()
}

// revertLocked removes the item from the target and restores it at its
// prior index in the source. Caller holds b.mu.
func (b *Board[T]) revertLocked(pm *PendingMove, original T, index int) {
	target, source := b.states[pm.To], b.states[pm.From]

	if i := b.indexOf(target, pm.ItemID); i >= 0 {
		target.items = slices.Delete(target.items, i, i+1)
		target.total = max(target.total-1, len(target.items))
	}
	if b.indexOf(source, pm.ItemID) >= 0 {
		return
	}
	index = min(index, len(source.items))
	source.items = slices.Insert(source.items, index, original)
	source.total = max(source.total+1, len(source.items))
}

func (b *Board[T]) indexOf(st *columnState[T], itemID string) int {
	return slices.IndexFunc(st.items, func(item T) bool {
		return b.src.ItemID(item) == itemID
	})
}

// ============================================================================
// Reading state
// ============================================================================

// Column returns a copy of one column's state
func (b *Board[T]) Column(columnID string) (ColumnState[T], bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[columnID]
	if !ok {
		return ColumnState[T]{}, false
	}
	return st.export(), true
}

// IsLocked reports whether the item has a move in flight
func (b *Board[T]) IsLocked(itemID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.locked[itemID]
	return ok
}

// Snapshot returns a consistent copy of the board
func (b *Board[T]) Snapshot() Snapshot[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot[T]{
		Columns:      make([]ColumnSnapshot[T], 0, len(b.columns)),
		PendingMoves: b.pending,
		Query:        b.query,
	}
	for _, col := range b.columns {
		snap.Columns = append(snap.Columns, ColumnSnapshot[T]{Column: col, State: b.states[col.ID].export()})
	}
	if b.drag != nil {
		d := *b.drag
		snap.Drag = &d
	}
	if b.lastFailure != nil {
		f := *b.lastFailure
		snap.LastFailure = &f
	}
	return snap
}

func (st *columnState[T]) export() ColumnState[T] {
	return ColumnState[T]{
		Items:       slices.Clone(st.items),
		Total:       st.total,
		CurrentPage: st.page,
		HasMore:     st.hasMore,
		Loading:     st.loading || st.loadingMore,
	}
}
