package boards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/dealflow/internal/kanban"
	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/services/opportunity"
	"github.com/thenoetrevino/dealflow/internal/services/task"
	"github.com/thenoetrevino/dealflow/internal/testutil"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{123456789, "$1,234,567.89"},
		{-250, "-$2.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCents(tt.cents))
	}
}

func TestColumns(t *testing.T) {
	cols := OpportunityColumns([]*models.Stage{{ID: 7, Name: "Lead", Color: "#fff", SortOrder: 0}})
	require.Len(t, cols, 1)
	assert.Equal(t, kanban.Column{ID: "7", Name: "Lead", Color: "#fff", SortOrder: 0}, cols[0])

	taskCols := TaskColumns()
	require.Len(t, taskCols, 3)
	assert.Equal(t, "todo", taskCols[0].ID)
	assert.Equal(t, "done", taskCols[2].ID)
}

// The pipeline board end to end over a real database: the drop is
// optimistic, the move is persisted, and a refresh agrees with it.
func TestOpportunityBoard_MovePersists(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	stages := testutil.Stages(t, repo)
	deal := testutil.CreateTestOpportunity(t, repo, "Engine order", stages[0].ID, 150000)
	svc := opportunity.NewService(repo, nil)
	src := NewOpportunitySource(svc)

	board, err := kanban.New[*models.OpportunitySummary](src, kanban.Config{Columns: OpportunityColumns(stages)})
	require.NoError(t, err)
	defer board.Close()
	ctx := context.Background()
	board.LoadAll(ctx)

	from, to := StageColumnID(stages[0].ID), StageColumnID(stages[1].ID)
	require.NoError(t, board.StartDrag(src.ItemID(&models.OpportunitySummary{ID: deal.ID}), from))
	require.NoError(t, board.DragOver(to))
	pm, err := board.Drop(ctx)
	require.NoError(t, err)
	ok, err := pm.Wait(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := repo.GetOpportunity(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, stages[1].ID, stored.StageID)

	board.Refresh(ctx)
	target, _ := board.Column(to)
	require.Len(t, target.Items, 1)
	assert.Equal(t, stages[1].ID, target.Items[0].StageID)
	source, _ := board.Column(from)
	assert.Empty(t, source.Items)
}

type failingTasks struct {
	items []*models.Task
}

func (f *failingTasks) ListByStatus(_ context.Context, status models.TaskStatus, _ string, page, pageSize int) (*models.PageResult[*models.Task], error) {
	var out []*models.Task
	for _, t := range f.items {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return &models.PageResult[*models.Task]{Items: out, Total: len(out), Page: page, PageSize: pageSize}, nil
}

func (f *failingTasks) MoveTask(context.Context, int, models.TaskStatus) error {
	return errors.New("server rejected move")
}

func TestTaskBoard_RejectedMoveReverts(t *testing.T) {
	src := NewTaskSource(&failingTasks{items: []*models.Task{
		{ID: 1, Title: "Call", Status: models.TaskStatusTodo},
		{ID: 2, Title: "Email", Status: models.TaskStatusTodo},
	}})
	board, err := kanban.New[*models.Task](src, kanban.Config{Columns: TaskColumns()})
	require.NoError(t, err)
	defer board.Close()
	ctx := context.Background()
	board.LoadAll(ctx)

	require.NoError(t, board.StartDrag("1", "todo"))
	require.NoError(t, board.DragOver("done"))
	pm, err := board.Drop(ctx)
	require.NoError(t, err)
	ok, err := pm.Wait(ctx)
	assert.False(t, ok)
	assert.Error(t, err)

	todo, _ := board.Column("todo")
	require.Len(t, todo.Items, 2)
	assert.Equal(t, 1, todo.Items[0].ID)
	assert.Equal(t, models.TaskStatusTodo, todo.Items[0].Status)
}

func TestTaskSource_AlreadyInColumnCountsAsAccepted(t *testing.T) {
	repo := testutil.SetupTestRepo(t)
	created := testutil.CreateTestTask(t, repo, "Call", models.TaskStatusDone)
	src := NewTaskSource(task.NewService(repo, nil))

	ok, err := src.MoveItem(context.Background(), created, "todo", "done")
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestRenderers(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	r := TaskRenderer{Now: func() time.Time { return now }}

	card := r.RenderCard(&models.Task{Title: "Renew contract", Status: models.TaskStatusTodo, DueDate: &past})
	assert.Contains(t, card, "Renew contract")
	assert.Contains(t, card, "overdue")

	summary, ok := r.RenderColumnSummary("todo", []*models.Task{{Status: models.TaskStatusTodo, DueDate: &past}}, 1)
	assert.True(t, ok)
	assert.Equal(t, "1 overdue", summary)
	_, ok = r.RenderColumnSummary("done", nil, 0)
	assert.False(t, ok)

	opp := OpportunityRenderer{}
	card = opp.RenderCard(&models.OpportunitySummary{Title: "Deal", ContactName: "Ada Lovelace", AmountCents: 1000000})
	assert.Contains(t, card, "Ada Lovelace")
	assert.Contains(t, card, "$10,000.00")

	summary, ok = opp.RenderColumnSummary("1", []*models.OpportunitySummary{{AmountCents: 100}, {AmountCents: 250}}, 2)
	assert.True(t, ok)
	assert.Equal(t, "2 deals · $3.50", summary)
}
