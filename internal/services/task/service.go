package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
)

const (
	maxTitleLength       = 255
	maxDescriptionLength = 10000
)

// Repository is the persistence this service needs
type Repository interface {
	database.TaskRepository
	GetContact(ctx context.Context, id int) (*models.Contact, error)
	GetOpportunity(ctx context.Context, id int) (*models.Opportunity, error)
}

// Service defines all task-related business operations
type Service interface {
	// Read operations
	ListStatuses() []models.TaskStatusInfo
	GetTask(ctx context.Context, taskID int) (*models.Task, error)
	ListByStatus(ctx context.Context, status models.TaskStatus, query string, page, pageSize int) (*models.PageResult[*models.Task], error)

	// Write operations
	CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, req UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID int) error

	// Task movements
	MoveTask(ctx context.Context, taskID int, status models.TaskStatus) error
}

// CreateTaskRequest encapsulates all data needed to create a task
type CreateTaskRequest struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Status        models.TaskStatus `json:"status"` // Optional: empty means todo
	DueDate       *time.Time        `json:"dueDate"`
	ContactID     *int              `json:"contactId"`
	OpportunityID *int              `json:"opportunityId"`
}

// UpdateTaskRequest encapsulates all data needed to update a task
// Fields with pointers are optional - nil means don't update
type UpdateTaskRequest struct {
	TaskID        int        `json:"-"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	DueDate       *time.Time `json:"dueDate"`
	ClearDueDate  bool       `json:"clearDueDate"`
	ContactID     *int       `json:"contactId"`
	OpportunityID *int       `json:"opportunityId"`
}

// service implements Service interface
type service struct {
	repo      Repository
	publisher events.Publisher
}

// NewService creates a new task service
func NewService(repo Repository, publisher events.Publisher) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
	}
}

// ListStatuses returns the fixed task board columns
func (s *service) ListStatuses() []models.TaskStatusInfo {
	return models.TaskStatuses()
}

// GetTask retrieves a single task
func (s *service) GetTask(ctx context.Context, taskID int) (*models.Task, error) {
	if taskID <= 0 {
		return nil, ErrInvalidTaskID
	}
	t, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return t, nil
}

// ListByStatus returns one page of a status column
func (s *service) ListByStatus(ctx context.Context, status models.TaskStatus, query string, page, pageSize int) (*models.PageResult[*models.Task], error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	page, pageSize = models.NormalizePage(page, pageSize)

	items, total, err := s.repo.ListTasksByStatus(ctx, status, strings.TrimSpace(query), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if items == nil {
		items = []*models.Task{}
	}
	return &models.PageResult[*models.Task]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// CreateTask handles task creation with validation and business rules
func (s *service) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	t := &models.Task{
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Status:        req.Status,
		DueDate:       req.DueDate,
		ContactID:     req.ContactID,
		OpportunityID: req.OpportunityID,
	}
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	if err := validateTask(t); err != nil {
		return nil, err
	}
	if err := s.checkLinks(ctx, t.ContactID, t.OpportunityID); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateTask(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.publish(events.TaskCreated, created.ID, created)
	return created, nil
}

// UpdateTask handles task updates with validation
func (s *service) UpdateTask(ctx context.Context, req UpdateTaskRequest) (*models.Task, error) {
	t, err := s.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	switch {
	case req.ClearDueDate:
		t.DueDate = nil
	case req.DueDate != nil:
		t.DueDate = req.DueDate
	}
	if req.ContactID != nil {
		t.ContactID = req.ContactID
	}
	if req.OpportunityID != nil {
		t.OpportunityID = req.OpportunityID
	}
	if err := validateTask(t); err != nil {
		return nil, err
	}
	if err := s.checkLinks(ctx, req.ContactID, req.OpportunityID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", mapNotFound(err))
	}

	s.publish(events.TaskUpdated, t.ID, t)
	return t, nil
}

// DeleteTask removes a task
func (s *service) DeleteTask(ctx context.Context, taskID int) error {
	if taskID <= 0 {
		return ErrInvalidTaskID
	}
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", mapNotFound(err))
	}

	s.publish(events.TaskDeleted, taskID, nil)
	return nil
}

// MoveTask appends the task to the end of another status column
func (s *service) MoveTask(ctx context.Context, taskID int, status models.TaskStatus) error {
	if taskID <= 0 {
		return ErrInvalidTaskID
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	from, err := s.repo.MoveTask(ctx, taskID, status)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyInColumn) {
			return ErrTaskAlreadyInTargetColumn
		}
		return fmt.Errorf("failed to move task: %w", mapNotFound(err))
	}

	s.publish(events.TaskMoved, taskID, events.MoveData{From: string(from), To: string(status)})
	return nil
}

func (s *service) checkLinks(ctx context.Context, contactID, opportunityID *int) error {
	if contactID != nil {
		if _, err := s.repo.GetContact(ctx, *contactID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownContact, *contactID)
			}
			return fmt.Errorf("failed to get contact: %w", err)
		}
	}
	if opportunityID != nil {
		if _, err := s.repo.GetOpportunity(ctx, *opportunityID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownOpportunity, *opportunityID)
			}
			return fmt.Errorf("failed to get opportunity: %w", err)
		}
	}
	return nil
}

func validateTask(t *models.Task) error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if len(t.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}

// publish sends a task event if a publisher exists
func (s *service) publish(eventType events.EventType, taskID int, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Event{Type: eventType, EntityID: taskID, Data: data})
}
