package opportunity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
)

const (
	maxTitleLength = 255
	maxNotesLength = 10000
)

// Repository is the persistence this service needs
type Repository interface {
	database.OpportunityRepository
	database.StageRepository
	GetContact(ctx context.Context, id int) (*models.Contact, error)
}

// Service defines all opportunity and pipeline business operations
type Service interface {
	// Pipeline
	ListStages(ctx context.Context) ([]*models.Stage, error)
	PipelineTotals(ctx context.Context) (map[int]database.StageTotals, error)

	// Read operations
	GetOpportunity(ctx context.Context, id int) (*models.Opportunity, error)
	ListByStage(ctx context.Context, stageID int, query string, page, pageSize int) (*models.PageResult[*models.OpportunitySummary], error)

	// Write operations
	CreateOpportunity(ctx context.Context, req CreateOpportunityRequest) (*models.Opportunity, error)
	UpdateOpportunity(ctx context.Context, req UpdateOpportunityRequest) (*models.Opportunity, error)
	DeleteOpportunity(ctx context.Context, id int) error

	// Movement
	MoveOpportunity(ctx context.Context, id, stageID int) error
}

// CreateOpportunityRequest encapsulates all data needed to create an opportunity
type CreateOpportunityRequest struct {
	Title       string `json:"title"`
	ContactID   *int   `json:"contactId"`
	AmountCents int64  `json:"amountCents"`
	StageID     int    `json:"stageId"` // Optional: 0 means the first stage
	Notes       string `json:"notes"`
}

// UpdateOpportunityRequest encapsulates all data needed to update an opportunity
// Fields with pointers are optional - nil means don't update
type UpdateOpportunityRequest struct {
	ID           int     `json:"-"`
	Title        *string `json:"title"`
	ContactID    *int    `json:"contactId"`
	ClearContact bool    `json:"clearContact"`
	AmountCents  *int64  `json:"amountCents"`
	Notes        *string `json:"notes"`
}

// service implements Service interface
type service struct {
	repo      Repository
	publisher events.Publisher
}

// NewService creates a new opportunity service
func NewService(repo Repository, publisher events.Publisher) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
	}
}

// ListStages returns the pipeline stages in board order
func (s *service) ListStages(ctx context.Context) ([]*models.Stage, error) {
	stages, err := s.repo.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return stages, nil
}

// PipelineTotals returns the opportunity count and value per stage
func (s *service) PipelineTotals(ctx context.Context) (map[int]database.StageTotals, error) {
	totals, err := s.repo.OpenPipelineTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pipeline totals: %w", err)
	}
	return totals, nil
}

// GetOpportunity retrieves a single opportunity
func (s *service) GetOpportunity(ctx context.Context, id int) (*models.Opportunity, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	o, err := s.repo.GetOpportunity(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return o, nil
}

// ListByStage returns one page of a stage's opportunities
func (s *service) ListByStage(ctx context.Context, stageID int, query string, page, pageSize int) (*models.PageResult[*models.OpportunitySummary], error) {
	if err := s.checkStage(ctx, stageID); err != nil {
		return nil, err
	}
	page, pageSize = models.NormalizePage(page, pageSize)

	items, total, err := s.repo.ListOpportunitiesByStage(ctx, stageID, strings.TrimSpace(query), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	if items == nil {
		items = []*models.OpportunitySummary{}
	}
	return &models.PageResult[*models.OpportunitySummary]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// CreateOpportunity handles opportunity creation with validation
func (s *service) CreateOpportunity(ctx context.Context, req CreateOpportunityRequest) (*models.Opportunity, error) {
	o := &models.Opportunity{
		Title:       strings.TrimSpace(req.Title),
		ContactID:   req.ContactID,
		AmountCents: req.AmountCents,
		StageID:     req.StageID,
		Notes:       req.Notes,
	}
	if err := validateOpportunity(o); err != nil {
		return nil, err
	}

	if o.StageID == 0 {
		stages, err := s.repo.ListStages(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stages: %w", err)
		}
		if len(stages) == 0 {
			return nil, ErrInvalidStageID
		}
		o.StageID = stages[0].ID
	} else if err := s.checkStage(ctx, o.StageID); err != nil {
		return nil, err
	}
	if err := s.checkContact(ctx, o.ContactID); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateOpportunity(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	s.publish(events.OpportunityCreated, created.ID, created)
	return created, nil
}

// UpdateOpportunity applies the non-nil fields of req
func (s *service) UpdateOpportunity(ctx context.Context, req UpdateOpportunityRequest) (*models.Opportunity, error) {
	o, err := s.GetOpportunity(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		o.Title = strings.TrimSpace(*req.Title)
	}
	if req.AmountCents != nil {
		o.AmountCents = *req.AmountCents
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
	switch {
	case req.ClearContact:
		o.ContactID = nil
	case req.ContactID != nil:
		if err := s.checkContact(ctx, req.ContactID); err != nil {
			return nil, err
		}
		o.ContactID = req.ContactID
	}
	if err := validateOpportunity(o); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateOpportunity(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to update opportunity: %w", mapNotFound(err))
	}

	s.publish(events.OpportunityUpdated, o.ID, o)
	return o, nil
}

// DeleteOpportunity removes an opportunity
func (s *service) DeleteOpportunity(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if err := s.repo.DeleteOpportunity(ctx, id); err != nil {
		return fmt.Errorf("failed to delete opportunity: %w", mapNotFound(err))
	}

	s.publish(events.OpportunityDeleted, id, nil)
	return nil
}

// MoveOpportunity appends the opportunity to the end of another stage
func (s *service) MoveOpportunity(ctx context.Context, id, stageID int) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if err := s.checkStage(ctx, stageID); err != nil {
		return err
	}

	from, err := s.repo.MoveOpportunity(ctx, id, stageID)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyInColumn) {
			return ErrAlreadyInTargetStage
		}
		return fmt.Errorf("failed to move opportunity: %w", mapNotFound(err))
	}

	s.publish(events.OpportunityMoved, id, events.MoveData{
		From: strconv.Itoa(from),
		To:   strconv.Itoa(stageID),
	})
	return nil
}

func (s *service) checkStage(ctx context.Context, stageID int) error {
	if stageID <= 0 {
		return ErrInvalidStageID
	}
	if _, err := s.repo.GetStage(ctx, stageID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrInvalidStageID, stageID)
		}
		return fmt.Errorf("failed to get stage: %w", err)
	}
	return nil
}

func (s *service) checkContact(ctx context.Context, contactID *int) error {
	if contactID == nil {
		return nil
	}
	if _, err := s.repo.GetContact(ctx, *contactID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrUnknownContact, *contactID)
		}
		return fmt.Errorf("failed to get contact: %w", err)
	}
	return nil
}

func validateOpportunity(o *models.Opportunity) error {
	if o.Title == "" {
		return ErrEmptyTitle
	}
	if len(o.Title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if o.AmountCents < 0 {
		return ErrNegativeAmount
	}
	if o.StageID < 0 {
		return ErrInvalidStageID
	}
	if len(o.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrOpportunityNotFound
	}
	return err
}

// publish sends an event if a publisher exists
func (s *service) publish(eventType events.EventType, id int, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Event{Type: eventType, EntityID: id, Data: data})
}
