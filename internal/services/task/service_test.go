package task

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/testutil"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func setupService(t *testing.T) (Service, *database.Repository, *testutil.RecordingPublisher) {
	t.Helper()
	repo := testutil.SetupTestRepo(t)
	pub := &testutil.RecordingPublisher{}
	return NewService(repo, pub), repo, pub
}

// ============================================================================
// CREATE
// ============================================================================

func TestCreateTask_Validation(t *testing.T) {
	svc, _, pub := setupService(t)
	ctx := context.Background()
	missing := 77

	tests := []struct {
		name    string
		req     CreateTaskRequest
		wantErr error
	}{
		{"empty title", CreateTaskRequest{}, ErrEmptyTitle},
		{"title too long", CreateTaskRequest{Title: strings.Repeat("t", 256)}, ErrTitleTooLong},
		{"bad status", CreateTaskRequest{Title: "Call", Status: "archived"}, ErrInvalidStatus},
		{"unknown contact", CreateTaskRequest{Title: "Call", ContactID: &missing}, ErrUnknownContact},
		{"unknown opportunity", CreateTaskRequest{Title: "Call", OpportunityID: &missing}, ErrUnknownOpportunity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, pub.Events())
}

func TestCreateTask_DefaultsToTodo(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	contact := testutil.CreateTestContact(t, repo, "Ada", "Lovelace")
	due := time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC)

	task, err := svc.CreateTask(ctx, CreateTaskRequest{Title: "Follow up", DueDate: &due, ContactID: &contact.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
	require.NotNil(t, task.ContactID)
	assert.Equal(t, contact.ID, *task.ContactID)

	ev, ok := pub.Last()
	require.True(t, ok)
	assert.Equal(t, events.TaskCreated, ev.Type)
}

// ============================================================================
// MOVE
// ============================================================================

func TestMoveTask(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	task := testutil.CreateTestTask(t, repo, "Call back", models.TaskStatusTodo)

	require.NoError(t, svc.MoveTask(ctx, task.ID, models.TaskStatusInProgress))

	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, got.Status)

	ev, _ := pub.Last()
	assert.Equal(t, events.TaskMoved, ev.Type)
	assert.Equal(t, events.MoveData{From: "todo", To: "in_progress"}, ev.Data)

	assert.ErrorIs(t, svc.MoveTask(ctx, task.ID, models.TaskStatusInProgress), ErrTaskAlreadyInTargetColumn)
	assert.ErrorIs(t, svc.MoveTask(ctx, task.ID, "archived"), ErrInvalidStatus)
	assert.ErrorIs(t, svc.MoveTask(ctx, 999, models.TaskStatusDone), ErrTaskNotFound)
	assert.ErrorIs(t, svc.MoveTask(ctx, -1, models.TaskStatusDone), ErrInvalidTaskID)
}

// ============================================================================
// READ / UPDATE / DELETE
// ============================================================================

func TestListByStatus(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()
	testutil.CreateTestTask(t, repo, "Email proposal", models.TaskStatusTodo)
	testutil.CreateTestTask(t, repo, "Book demo", models.TaskStatusTodo)
	testutil.CreateTestTask(t, repo, "Send invoice", models.TaskStatusDone)

	todo, err := svc.ListByStatus(ctx, models.TaskStatusTodo, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, todo.Total)
	assert.Equal(t, "Email proposal", todo.Items[0].Title)

	filtered, err := svc.ListByStatus(ctx, models.TaskStatusTodo, "demo", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)

	_, err = svc.ListByStatus(ctx, "nope", "", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.Len(t, svc.ListStatuses(), 3)
}

func TestUpdateTask(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	due := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	task, err := svc.CreateTask(ctx, CreateTaskRequest{Title: "Draft", DueDate: &due})
	require.NoError(t, err)

	title := "Final draft"
	updated, err := svc.UpdateTask(ctx, UpdateTaskRequest{TaskID: task.ID, Title: &title, ClearDueDate: true})
	require.NoError(t, err)
	assert.Equal(t, "Final draft", updated.Title)
	assert.Nil(t, updated.DueDate)

	stored, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.DueDate)

	empty := ""
	_, err = svc.UpdateTask(ctx, UpdateTaskRequest{TaskID: task.ID, Title: &empty})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = svc.UpdateTask(ctx, UpdateTaskRequest{TaskID: 999, Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.Equal(t, []events.EventType{events.TaskCreated, events.TaskUpdated}, pub.Types())
}

func TestDeleteTask(t *testing.T) {
	svc, repo, pub := setupService(t)
	ctx := context.Background()
	task := testutil.CreateTestTask(t, repo, "Obsolete", models.TaskStatusDone)

	require.NoError(t, svc.DeleteTask(ctx, task.ID))
	assert.ErrorIs(t, svc.DeleteTask(ctx, task.ID), ErrTaskNotFound)
	assert.Equal(t, []events.EventType{events.TaskDeleted}, pub.Types())
}

func TestNilPublisherIsAllowed(t *testing.T) {
	svc := NewService(testutil.SetupTestRepo(t), nil)
	_, err := svc.CreateTask(context.Background(), CreateTaskRequest{Title: "Quiet"})
	assert.NoError(t, err)
}
