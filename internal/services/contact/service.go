package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
)

const maxFieldLength = 255

// Service defines all contact-related business operations
type Service interface {
	CreateContact(ctx context.Context, req CreateContactRequest) (*models.Contact, error)
	GetContact(ctx context.Context, id int) (*models.Contact, error)
	UpdateContact(ctx context.Context, req UpdateContactRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, id int) error
	ListContacts(ctx context.Context, query string, page, pageSize int) (*models.PageResult[*models.Contact], error)
	CountContacts(ctx context.Context) (int, error)
}

// CreateContactRequest encapsulates all data needed to create a contact
type CreateContactRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

// UpdateContactRequest encapsulates all data needed to update a contact
// Fields with pointers are optional - nil means don't update
type UpdateContactRequest struct {
	ID        int     `json:"-"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
}

// service implements Service interface
type service struct {
	repo      database.ContactRepository
	publisher events.Publisher
}

// NewService creates a new contact service
func NewService(repo database.ContactRepository, publisher events.Publisher) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
	}
}

// CreateContact validates and stores a new contact
func (s *service) CreateContact(ctx context.Context, req CreateContactRequest) (*models.Contact, error) {
	c := &models.Contact{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
	}
	if err := validateContact(c); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateContact(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.publish(events.ContactCreated, created.ID, created)
	return created, nil
}

// GetContact retrieves a single contact
func (s *service) GetContact(ctx context.Context, id int) (*models.Contact, error) {
	if id <= 0 {
		return nil, ErrInvalidContactID
	}
	c, err := s.repo.GetContact(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return c, nil
}

// UpdateContact applies the non-nil fields of req
func (s *service) UpdateContact(ctx context.Context, req UpdateContactRequest) (*models.Contact, error) {
	c, err := s.GetContact(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		c.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		c.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		c.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Company != nil {
		c.Company = strings.TrimSpace(*req.Company)
	}
	if err := validateContact(c); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", mapNotFound(err))
	}

	s.publish(events.ContactUpdated, c.ID, c)
	return c, nil
}

// DeleteContact removes a contact; linked opportunities and tasks keep existing
func (s *service) DeleteContact(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidContactID
	}
	if err := s.repo.DeleteContact(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contact: %w", mapNotFound(err))
	}

	s.publish(events.ContactDeleted, id, nil)
	return nil
}

// ListContacts searches contacts by name, email or company
func (s *service) ListContacts(ctx context.Context, query string, page, pageSize int) (*models.PageResult[*models.Contact], error) {
	page, pageSize = models.NormalizePage(page, pageSize)
	items, total, err := s.repo.SearchContacts(ctx, strings.TrimSpace(query), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	if items == nil {
		items = []*models.Contact{}
	}
	return &models.PageResult[*models.Contact]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// CountContacts returns the number of stored contacts
func (s *service) CountContacts(ctx context.Context) (int, error) {
	return s.repo.CountContacts(ctx)
}

func validateContact(c *models.Contact) error {
	if c.FirstName == "" {
		return ErrEmptyName
	}
	if len(c.FirstName) > maxFieldLength || len(c.LastName) > maxFieldLength || len(c.Company) > maxFieldLength {
		return ErrNameTooLong
	}
	if c.Email != "" && (!strings.Contains(c.Email, "@") || len(c.Email) > maxFieldLength) {
		return ErrInvalidEmail
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrContactNotFound
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
