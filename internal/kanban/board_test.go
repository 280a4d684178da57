package kanban

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/dealflow/internal/events"
)

func newBoard(t *testing.T, src *fakeSource, cfg Config) *Board[card] {
	t.Helper()
	if cfg.Columns == nil {
		cfg.Columns = openDone
	}
	b, err := New[card](src, cfg)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func column(t *testing.T, b *Board[card], id string) ColumnState[card] {
	t.Helper()
	st, ok := b.Column(id)
	require.True(t, ok, "column %s missing", id)
	return st
}

func assertColumnInvariants(t *testing.T, st ColumnState[card]) {
	t.Helper()
	assert.LessOrEqual(t, len(st.Items), st.Total)
	seen := map[string]bool{}
	for _, c := range st.Items {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

// ============================================================================
// Construction
// ============================================================================

func TestNew_Validation(t *testing.T) {
	src := newFakeSource(nil)

	_, err := New[card](src, Config{})
	assert.ErrorIs(t, err, ErrNoColumns)

	_, err = New[card](src, Config{Columns: []Column{{ID: "a"}, {ID: "a"}}})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestNew_OrdersColumnsAndDefaults(t *testing.T) {
	b := newBoard(t, newFakeSource(nil), Config{Columns: []Column{
		{ID: "later", SortOrder: 5},
		{ID: "first", SortOrder: 1},
	}})

	cols := b.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "first", cols[0].ID)
	assert.Equal(t, DefaultPageSize, b.PageSize())
}

// ============================================================================
// Fetch coordination
// ============================================================================

func TestLoadAll_PopulatesEveryColumn(t *testing.T) {
	src := newFakeSource(map[string][]card{
		"open": numberedCards("open", 5),
		"done": numberedCards("done", 1),
	})
	b := newBoard(t, src, Config{PageSize: 2})

	b.LoadAll(context.Background())

	open := column(t, b, "open")
	assert.Equal(t, []string{"open-1", "open-2"}, ids(open.Items))
	assert.Equal(t, 5, open.Total)
	assert.Equal(t, 1, open.CurrentPage)
	assert.True(t, open.HasMore)
	assertColumnInvariants(t, open)

	done := column(t, b, "done")
	assert.Len(t, done.Items, 1)
	assert.False(t, done.HasMore)
	assertColumnInvariants(t, done)
}

func TestLoadColumn_FetchErrorKeepsState(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": numberedCards("open", 3)})
	b := newBoard(t, src, Config{})
	ctx := context.Background()

	b.LoadColumn(ctx, "open", 1)
	before := column(t, b, "open")

	src.fetchFn = func(context.Context, FetchRequest) (Page[card], error) {
		return Page[card]{}, errBackend
	}
	got := b.LoadColumn(ctx, "open", 1)

	assert.Empty(t, got.Items)
	assert.Zero(t, got.Total)
	after := column(t, b, "open")
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Total, after.Total)
	assert.False(t, after.Loading)
}

func TestLoadColumn_UnknownColumnIsEmpty(t *testing.T) {
	src := newFakeSource(nil)
	b := newBoard(t, src, Config{})

	got := b.LoadColumn(context.Background(), "nope", 1)
	assert.Empty(t, got.Items)
	assert.Zero(t, src.fetchCount())
}

func TestLoadColumn_OverlappingPageDeduplicates(t *testing.T) {
	src := newFakeSource(nil)
	src.fetchFn = func(_ context.Context, req FetchRequest) (Page[card], error) {
		if req.Page == 1 {
			return Page[card]{Items: cards("open", "a", "x"), Total: 4}, nil
		}
		// An insert on the server shifted x onto page 2
		return Page[card]{Items: cards("open", "x", "b"), Total: 4}, nil
	}
	b := newBoard(t, src, Config{PageSize: 2})
	ctx := context.Background()

	b.LoadColumn(ctx, "open", 1)
	b.LoadColumn(ctx, "open", 2)

	st := column(t, b, "open")
	assert.Equal(t, []string{"a", "x", "b"}, ids(st.Items))
	assert.Equal(t, 2, st.CurrentPage)
	assertColumnInvariants(t, st)
}

func TestLoadColumn_TotalNeverBelowItemCount(t *testing.T) {
	src := newFakeSource(nil)
	src.fetchFn = func(context.Context, FetchRequest) (Page[card], error) {
		return Page[card]{Items: cards("open", "a", "b", "c"), Total: 1}, nil
	}
	b := newBoard(t, src, Config{})
	b.LoadColumn(context.Background(), "open", 1)

	st := column(t, b, "open")
	assert.Equal(t, 3, st.Total)
	assertColumnInvariants(t, st)
}

func TestLoadColumn_SkipsItemsFromOtherColumns(t *testing.T) {
	src := newFakeSource(nil)
	src.fetchFn = func(context.Context, FetchRequest) (Page[card], error) {
		items := append(cards("open", "a"), cards("done", "z")...)
		return Page[card]{Items: items, Total: 2}, nil
	}
	b := newBoard(t, src, Config{})
	b.LoadColumn(context.Background(), "open", 1)

	assert.Equal(t, []string{"a"}, ids(column(t, b, "open").Items))
}

func TestLoadColumn_DiscardsStaleResponse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	src := newFakeSource(nil)
	src.fetchFn = func(_ context.Context, req FetchRequest) (Page[card], error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return Page[card]{Items: cards("open", "old"), Total: 1}, nil
		}
		return Page[card]{Items: cards("open", "new"), Total: 1}, nil
	}
	b := newBoard(t, src, Config{})
	ctx := context.Background()

	done := make(chan Page[card])
	go func() { done <- b.LoadColumn(ctx, "open", 1) }()
	<-started

	b.LoadColumn(ctx, "open", 1)
	close(release)
	stale := <-done

	assert.Empty(t, stale.Items)
	assert.Equal(t, []string{"new"}, ids(column(t, b, "open").Items))
}

func TestLoadMore(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": numberedCards("open", 3)})
	b := newBoard(t, src, Config{PageSize: 2})
	ctx := context.Background()

	b.LoadAll(ctx)
	page, ok := b.LoadMore(ctx, "open")
	require.True(t, ok)
	assert.Equal(t, []string{"open-3"}, ids(page.Items))

	st := column(t, b, "open")
	assert.Len(t, st.Items, 3)
	assert.False(t, st.HasMore)

	fetches := src.fetchCount()
	_, ok = b.LoadMore(ctx, "open")
	assert.False(t, ok)
	_, ok = b.LoadMore(ctx, "done")
	assert.False(t, ok)
	assert.Equal(t, fetches, src.fetchCount(), "no fetch once a column is exhausted")
}

func TestLoadMore_AfterMoveOut(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": cards("open", "a", "b", "c")})
	src.moveFn = func(_ context.Context, item card, _, to string) (bool, error) {
		src.setColumn(item.ID, to)
		return true, nil
	}
	b := newBoard(t, src, Config{PageSize: 2})
	ctx := context.Background()
	b.LoadAll(ctx)

	require.NoError(t, b.StartDrag("a", "open"))
	require.NoError(t, b.DragOver("done"))
	pm, err := b.Drop(ctx)
	require.NoError(t, err)
	ok, err := pm.Wait(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	open := column(t, b, "open")
	assert.Equal(t, []string{"b"}, ids(open.Items))
	assert.True(t, open.HasMore)

	// c slid onto page 1 on the server when a left
	_, ok = b.LoadMore(ctx, "open")
	require.True(t, ok)
	assert.Equal(t, 1, src.lastFetch().Page)

	open = column(t, b, "open")
	assert.Equal(t, []string{"b", "c"}, ids(open.Items))
	assert.Equal(t, 2, open.Total)
	assert.False(t, open.HasMore)
	assertColumnInvariants(t, open)
}

func TestLoadMore_AfterMoveOutWithLaterPagesLoaded(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": numberedCards("open", 5)})
	src.moveFn = func(_ context.Context, item card, _, to string) (bool, error) {
		src.setColumn(item.ID, to)
		return true, nil
	}
	b := newBoard(t, src, Config{PageSize: 2})
	ctx := context.Background()
	b.LoadAll(ctx)
	_, ok := b.LoadMore(ctx, "open")
	require.True(t, ok)

	require.NoError(t, b.StartDrag("open-1", "open"))
	require.NoError(t, b.DragOver("done"))
	pm, err := b.Drop(ctx)
	require.NoError(t, err)
	_, err = pm.Wait(ctx)
	require.NoError(t, err)

	for column(t, b, "open").HasMore {
		_, ok := b.LoadMore(ctx, "open")
		require.True(t, ok)
	}
	open := column(t, b, "open")
	assert.Equal(t, []string{"open-2", "open-3", "open-4", "open-5"}, ids(open.Items))
	assertColumnInvariants(t, open)
}

func TestSetQuery_RefreshesWithFilter(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": cards("open", "alpha", "beta")})
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)

	b.SetQuery(ctx, "beta")

	assert.Equal(t, "beta", b.Query())
	assert.Equal(t, "beta", src.lastFetch().Query)
	assert.Equal(t, []string{"beta"}, ids(column(t, b, "open").Items))

	fetches := src.fetchCount()
	b.SetQuery(ctx, "beta")
	assert.Equal(t, fetches, src.fetchCount(), "unchanged query should not refetch")
}

// ============================================================================
// Drag session
// ============================================================================

func TestDragStateMachineErrors(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": cards("open", "t1", "t2")})
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)

	_, err := b.Drop(ctx)
	assert.ErrorIs(t, err, ErrNoDrag)
	assert.ErrorIs(t, b.DragOver("done"), ErrNoDrag)
	assert.ErrorIs(t, b.Cancel(), ErrNoDrag)

	assert.ErrorIs(t, b.StartDrag("t1", "nope"), ErrUnknownColumn)
	assert.ErrorIs(t, b.StartDrag("missing", "open"), ErrUnknownItem)

	require.NoError(t, b.StartDrag("t1", "open"))
	assert.ErrorIs(t, b.StartDrag("t2", "open"), ErrDragInProgress)
	assert.ErrorIs(t, b.DragOver("nope"), ErrUnknownColumn)

	session, ok := b.Drag()
	require.True(t, ok)
	assert.Equal(t, DragSession{ItemID: "t1", SourceColumnID: "open", TargetColumnID: "open"}, session)

	require.NoError(t, b.Cancel())
	_, ok = b.Drag()
	assert.False(t, ok)
	assert.Empty(t, src.moveCalls())
}

func TestDrop_SameColumnIsNoop(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": cards("open", "t1", "t2")})
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)
	before := b.Snapshot()

	require.NoError(t, b.StartDrag("t1", "open"))
	require.NoError(t, b.DragOver("done"))
	require.NoError(t, b.DragOver("open"))
	pm, err := b.Drop(ctx)

	require.NoError(t, err)
	assert.Nil(t, pm)
	assert.Equal(t, before.Columns, b.Snapshot().Columns)
	assert.Empty(t, src.moveCalls())
}

func TestDrop_OptimisticBeforeSettle(t *testing.T) {
	gate := make(chan struct{})
	src := newFakeSource(map[string][]card{"open": cards("open", "t1", "t2")})
	src.moveFn = func(context.Context, card, string, string) (bool, error) {
		<-gate
		return true, nil
	}
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)

	require.NoError(t, b.StartDrag("t1", "open"))
	require.NoError(t, b.DragOver("done"))
	pm, err := b.Drop(ctx)
	require.NoError(t, err)
	require.NotNil(t, pm)

	// Visible under the target before the move settles
	done := column(t, b, "done")
	assert.Equal(t, []string{"t1"}, ids(done.Items))
	assert.Equal(t, "done", done.Items[0].Column)
	assert.Equal(t, 1, done.Total)
	open := column(t, b, "open")
	assert.Equal(t, []string{"t2"}, ids(open.Items))
	assert.Equal(t, 1, open.Total)

	assert.True(t, b.IsLocked("t1"))
	assert.ErrorIs(t, b.StartDrag("t1", "done"), ErrItemLocked)
	assert.Equal(t, 1, b.Snapshot().PendingMoves)

	close(gate)
	ok, err := pm.Wait(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"t1"}, ids(column(t, b, "done").Items))
	assert.False(t, b.IsLocked("t1"))
	assert.Zero(t, b.Snapshot().PendingMoves)
	assert.Equal(t, []moveCall{{ItemID: "t1", From: "open", To: "done"}}, src.moveCalls())
}

func TestDrop_RejectedMoveRevertsToPriorIndex(t *testing.T) {
	src := newFakeSource(map[string][]card{
		"open": cards("open", "a", "b", "c"),
		"done": cards("done", "d"),
	})
	src.moveFn = func(context.Context, card, string, string) (bool, error) {
		return false, nil
	}
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)

	require.NoError(t, b.StartDrag("b", "open"))
	require.NoError(t, b.DragOver("done"))
	pm, err := b.Drop(ctx)
	require.NoError(t, err)

	ok, err := pm.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	open := column(t, b, "open")
	assert.Equal(t, []string{"a", "b", "c"}, ids(open.Items))
	assert.Equal(t, "open", open.Items[1].Column)
	assert.Equal(t, 3, open.Total)
	done := column(t, b, "done")
	assert.Equal(t, []string{"d"}, ids(done.Items))
	assert.Equal(t, 1, done.Total)

	failure := b.Snapshot().LastFailure
	require.NotNil(t, failure)
	assert.Equal(t, "b", failure.ItemID)
	assert.NoError(t, failure.Err)
}

func TestDrop_MoveErrorReverts(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": cards("open", "t1")})
	src.moveFn = func(context.Context, card, string, string) (bool, error) {
		return false, errBackend
	}
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)

	require.NoError(t, b.StartDrag("t1", "open"))
	require.NoError(t, b.DragOver("done"))
	pm, err := b.Drop(ctx)
	require.NoError(t, err)

	ok, err := pm.Wait(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errBackend)

	assert.Equal(t, []string{"t1"}, ids(column(t, b, "open").Items))
	assert.Empty(t, column(t, b, "done").Items)
	assert.ErrorIs(t, b.Snapshot().LastFailure.Err, errBackend)
}

func TestDrop_ItemRemovedByRefreshDuringDrag(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": cards("open", "t1")})
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)

	require.NoError(t, b.StartDrag("t1", "open"))
	require.NoError(t, b.DragOver("done"))
	src.setColumn("t1", "archive")
	b.Refresh(ctx)

	_, err := b.Drop(ctx)
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.Empty(t, src.moveCalls())
}

func TestRefresh_KeepsOptimisticPlacementOfLockedItems(t *testing.T) {
	gate := make(chan struct{})
	src := newFakeSource(map[string][]card{"open": cards("open", "t1", "t2")})
	src.moveFn = func(context.Context, card, string, string) (bool, error) {
		<-gate
		return true, nil
	}
	b := newBoard(t, src, Config{})
	ctx := context.Background()
	b.LoadAll(ctx)

	require.NoError(t, b.StartDrag("t1", "open"))
	require.NoError(t, b.DragOver("done"))
	pm, err := b.Drop(ctx)
	require.NoError(t, err)

	// The backend has not applied the move yet
	b.Refresh(ctx)
	assert.Equal(t, []string{"t2"}, ids(column(t, b, "open").Items))
	assert.Equal(t, []string{"t1"}, ids(column(t, b, "done").Items))
	assertColumnInvariants(t, column(t, b, "done"))

	src.setColumn("t1", "done")
	close(gate)
	_, err = pm.Wait(ctx)
	require.NoError(t, err)

	b.Refresh(ctx)
	assert.Equal(t, []string{"t1"}, ids(column(t, b, "done").Items))
}

// Mount, drag t1 open->done with the move accepted, then drag it back with
// the move rejected.
func TestScenario_OpenDone(t *testing.T) {
	accept := true
	src := newFakeSource(map[string][]card{"open": cards("open", "t1")})
	src.moveFn = func(_ context.Context, item card, from, to string) (bool, error) {
		if accept {
			src.setColumn(item.ID, to)
		}
		return accept, nil
	}
	b := newBoard(t, src, Config{EmptyText: "No tasks"})
	ctx := context.Background()
	require.NoError(t, b.Start(ctx))

	assert.Equal(t, []string{"t1"}, ids(column(t, b, "open").Items))
	assert.Empty(t, column(t, b, "done").Items)

	require.NoError(t, b.StartDrag("t1", "open"))
	require.NoError(t, b.DragOver("done"))
	pm, err := b.Drop(ctx)
	require.NoError(t, err)
	ok, err := pm.Wait(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Empty(t, column(t, b, "open").Items)
	assert.Equal(t, []string{"t1"}, ids(column(t, b, "done").Items))

	accept = false
	require.NoError(t, b.StartDrag("t1", "done"))
	require.NoError(t, b.DragOver("open"))
	pm, err = b.Drop(ctx)
	require.NoError(t, err)
	ok, err = pm.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, column(t, b, "open").Items)
	assert.Equal(t, []string{"t1"}, ids(column(t, b, "done").Items))
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestStart_RefreshesOnBusEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	src := newFakeSource(map[string][]card{"open": cards("open", "t1")})
	b := newBoard(t, src, Config{
		Bus:             bus,
		RefreshOn:       []events.EventType{events.TaskMoved},
		RefreshDebounce: 10 * time.Millisecond,
	})
	ctx := context.Background()
	require.NoError(t, b.Start(ctx))
	assert.Error(t, b.Start(ctx))

	src.setColumn("t1", "done")
	bus.Publish(events.Event{Type: events.ContactCreated})
	bus.Publish(events.Event{Type: events.TaskMoved, EntityID: 1})
	bus.Publish(events.Event{Type: events.TaskMoved, EntityID: 1})

	require.Eventually(t, func() bool {
		done, _ := b.Column("done")
		open, _ := b.Column("open")
		return len(done.Items) == 1 && len(open.Items) == 0
	}, time.Second, 5*time.Millisecond)

	b.Close()
	b.Close()
	assert.Error(t, b.Start(ctx))
}

func TestChanges_Notifies(t *testing.T) {
	src := newFakeSource(map[string][]card{"open": cards("open", "t1")})
	b := newBoard(t, src, Config{})
	b.LoadAll(context.Background())

	select {
	case <-b.Changes():
	default:
		t.Fatal("expected a change notification after load")
	}
}

func TestPendingMove_WaitHonoursContext(t *testing.T) {
	pm := newPendingMove("x", "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := pm.Wait(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)

	pm.finish(true, nil)
	pm.finish(false, errBackend)
	ok, err = pm.Wait(context.Background())
	assert.True(t, ok)
	assert.NoError(t, err)
}
