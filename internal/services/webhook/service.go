package webhook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/thenoetrevino/dealflow/internal/database"
	"github.com/thenoetrevino/dealflow/internal/events"
	"github.com/thenoetrevino/dealflow/internal/models"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

// Service defines webhook subscription management
type Service interface {
	CreateWebhook(ctx context.Context, req CreateWebhookRequest) (*models.Webhook, error)
	GetWebhook(ctx context.Context, id int) (*models.Webhook, error)
	ListWebhooks(ctx context.Context) ([]*models.Webhook, error)
	SetActive(ctx context.Context, id int, active bool) error
	DeleteWebhook(ctx context.Context, id int) error
	ListDeliveries(ctx context.Context, webhookID, limit int) ([]*models.WebhookDelivery, error)
}

// CreateWebhookRequest encapsulates all data needed to register a webhook
type CreateWebhookRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"` // Optional: generated when empty
	Events []string `json:"events"`
}

// service implements Service interface
type service struct {
	repo database.WebhookRepository
}

// NewService creates a new webhook service
func NewService(repo database.WebhookRepository) Service {
	return &service{repo: repo}
}

// CreateWebhook validates and registers a webhook. The returned webhook
// carries the secret so it can be shown to the caller once.
func (s *service) CreateWebhook(ctx context.Context, req CreateWebhookRequest) (*models.Webhook, error) {
	target := strings.TrimSpace(req.URL)
	if err := validateURL(target); err != nil {
		return nil, err
	}
	eventTypes, err := normalizeEvents(req.Events)
	if err != nil {
		return nil, err
	}

	secret := req.Secret
	if secret == "" {
		secret, err = generateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret: %w", err)
		}
	}

	w, err := s.repo.CreateWebhook(ctx, &models.Webhook{
		URL:    target,
		Secret: secret,
		Events: eventTypes,
		Active: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return w, nil
}

// GetWebhook retrieves a single webhook
func (s *service) GetWebhook(ctx context.Context, id int) (*models.Webhook, error) {
	if id <= 0 {
		return nil, ErrInvalidWebhookID
	}
	w, err := s.repo.GetWebhook(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return w, nil
}

// ListWebhooks returns every registered webhook
func (s *service) ListWebhooks(ctx context.Context) ([]*models.Webhook, error) {
	hooks, err := s.repo.ListWebhooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	if hooks == nil {
		hooks = []*models.Webhook{}
	}
	return hooks, nil
}

// SetActive pauses or resumes deliveries to a webhook
func (s *service) SetActive(ctx context.Context, id int, active bool) error {
	if id <= 0 {
		return ErrInvalidWebhookID
	}
	if err := s.repo.SetWebhookActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to update webhook: %w", mapNotFound(err))
	}
	return nil
}

// DeleteWebhook removes a webhook and its delivery log
func (s *service) DeleteWebhook(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidWebhookID
	}
	if err := s.repo.DeleteWebhook(ctx, id); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", mapNotFound(err))
	}
	return nil
}

// ListDeliveries returns recent deliveries, newest first
func (s *service) ListDeliveries(ctx context.Context, webhookID, limit int) ([]*models.WebhookDelivery, error) {
	if _, err := s.GetWebhook(ctx, webhookID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultDeliveryLimit
	}
	limit = min(limit, maxDeliveryLimit)

	deliveries, err := s.repo.ListDeliveries(ctx, webhookID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	if deliveries == nil {
		deliveries = []*models.WebhookDelivery{}
	}
	return deliveries, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// normalizeEvents trims, de-duplicates and checks event names. "*" subscribes
// to every event.
func normalizeEvents(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		if e != "*" && !events.EventType(e).Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e)
		}
		seen[e] = true
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, ErrNoEvents
	}
	return out, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func mapNotFound(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return ErrWebhookNotFound
	}
	return err
}
