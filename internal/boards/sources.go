package boards

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/thenoetrevino/dealflow/internal/kanban"
	"github.com/thenoetrevino/dealflow/internal/models"
)

// OpportunityBackend is what the pipeline board reads and moves through.
// Implemented by the opportunity service and by the HTTP client.
type OpportunityBackend interface {
	ListByStage(ctx context.Context, stageID int, query string, page, pageSize int) (*models.PageResult[*models.OpportunitySummary], error)
	MoveOpportunity(ctx context.Context, id, stageID int) error
}

// TaskBackend is what the task board reads and moves through
type TaskBackend interface {
	ListByStatus(ctx context.Context, status models.TaskStatus, query string, page, pageSize int) (*models.PageResult[*models.Task], error)
	MoveTask(ctx context.Context, taskID int, status models.TaskStatus) error
}

// settled converts a backend move error into the board's move result. A
// move to the column the item already occupies counts as accepted.
func settled(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrAlreadyInColumn):
		return true, nil
	default:
		return false, err
	}
}

// ============================================================================
// Opportunity pipeline
// ============================================================================

// OpportunitySource serves pipeline columns from an OpportunityBackend
type OpportunitySource struct {
	backend OpportunityBackend
}

var (
	_ kanban.Source[*models.OpportunitySummary]    = (*OpportunitySource)(nil)
	_ kanban.Relocator[*models.OpportunitySummary] = (*OpportunitySource)(nil)
)

// NewOpportunitySource creates a source over backend
func NewOpportunitySource(backend OpportunityBackend) *OpportunitySource {
	return &OpportunitySource{backend: backend}
}

// FetchItems loads one page of a stage
func (s *OpportunitySource) FetchItems(ctx context.Context, req kanban.FetchRequest) (kanban.Page[*models.OpportunitySummary], error) {
	stageID, err := ParseStageColumnID(req.ColumnID)
	if err != nil {
		return kanban.Page[*models.OpportunitySummary]{}, fmt.Errorf("invalid stage column %q: %w", req.ColumnID, err)
	}
	result, err := s.backend.ListByStage(ctx, stageID, req.Query, req.Page, req.PageSize)
	if err != nil {
		return kanban.Page[*models.OpportunitySummary]{}, err
	}
	return kanban.Page[*models.OpportunitySummary]{Items: result.Items, Total: result.Total}, nil
}

// ItemID returns the opportunity id as a string
func (s *OpportunitySource) ItemID(o *models.OpportunitySummary) string {
	return strconv.Itoa(o.ID)
}

// ColumnOf returns the column of the opportunity's stage
func (s *OpportunitySource) ColumnOf(o *models.OpportunitySummary) string {
	return StageColumnID(o.StageID)
}

// WithColumn returns a copy of o assigned to another stage
func (s *OpportunitySource) WithColumn(o *models.OpportunitySummary, columnID string) *models.OpportunitySummary {
	moved := *o
	if stageID, err := ParseStageColumnID(columnID); err == nil {
		moved.StageID = stageID
	}
	return &moved
}

// MoveItem persists a stage change
func (s *OpportunitySource) MoveItem(ctx context.Context, o *models.OpportunitySummary, _, to string) (bool, error) {
	stageID, err := ParseStageColumnID(to)
	if err != nil {
		return false, fmt.Errorf("invalid stage column %q: %w", to, err)
	}
	return settled(s.backend.MoveOpportunity(ctx, o.ID, stageID))
}

// ============================================================================
// Task board
// ============================================================================

// TaskSource serves status columns from a TaskBackend
type TaskSource struct {
	backend TaskBackend
}

var (
	_ kanban.Source[*models.Task]    = (*TaskSource)(nil)
	_ kanban.Relocator[*models.Task] = (*TaskSource)(nil)
)

// NewTaskSource creates a source over backend
func NewTaskSource(backend TaskBackend) *TaskSource {
	return &TaskSource{backend: backend}
}

// FetchItems loads one page of a status column
func (s *TaskSource) FetchItems(ctx context.Context, req kanban.FetchRequest) (kanban.Page[*models.Task], error) {
	result, err := s.backend.ListByStatus(ctx, models.TaskStatus(req.ColumnID), req.Query, req.Page, req.PageSize)
	if err != nil {
		return kanban.Page[*models.Task]{}, err
	}
	return kanban.Page[*models.Task]{Items: result.Items, Total: result.Total}, nil
}

// ItemID returns the task id as a string
func (s *TaskSource) ItemID(t *models.Task) string {
	return strconv.Itoa(t.ID)
}

// ColumnOf returns the task's status
func (s *TaskSource) ColumnOf(t *models.Task) string {
	return string(t.Status)
}

// WithColumn returns a copy of t with another status
func (s *TaskSource) WithColumn(t *models.Task, columnID string) *models.Task {
	moved := *t
	moved.Status = models.TaskStatus(columnID)
	return &moved
}

// MoveItem persists a status change
func (s *TaskSource) MoveItem(ctx context.Context, t *models.Task, _, to string) (bool, error) {
	return settled(s.backend.MoveTask(ctx, t.ID, models.TaskStatus(to)))
}
