// Package database defines repository interfaces for data access
package database

import (
	"context"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// ContactRepository defines contact persistence.
type ContactRepository interface {
	CreateContact(ctx context.Context, c *models.Contact) (*models.Contact, error)
	GetContact(ctx context.Context, id int) (*models.Contact, error)
	UpdateContact(ctx context.Context, c *models.Contact) error
	DeleteContact(ctx context.Context, id int) error
	SearchContacts(ctx context.Context, query string, page, pageSize int) ([]*models.Contact, int, error)
	CountContacts(ctx context.Context) (int, error)
}

// StageRepository defines pipeline stage lookups.
type StageRepository interface {
	ListStages(ctx context.Context) ([]*models.Stage, error)
	GetStage(ctx context.Context, id int) (*models.Stage, error)
	OpenPipelineTotals(ctx context.Context) (map[int]StageTotals, error)
}

// OpportunityRepository defines opportunity persistence.
type OpportunityRepository interface {
	CreateOpportunity(ctx context.Context, o *models.Opportunity) (*models.Opportunity, error)
	GetOpportunity(ctx context.Context, id int) (*models.Opportunity, error)
	UpdateOpportunity(ctx context.Context, o *models.Opportunity) error
	MoveOpportunity(ctx context.Context, id, stageID int) (int, error)
	DeleteOpportunity(ctx context.Context, id int) error
	ListOpportunitiesByStage(ctx context.Context, stageID int, query string, page, pageSize int) ([]*models.OpportunitySummary, int, error)
}

// TaskRepository defines task persistence.
type TaskRepository interface {
	CreateTask(ctx context.Context, t *models.Task) (*models.Task, error)
	GetTask(ctx context.Context, id int) (*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	MoveTask(ctx context.Context, id int, status models.TaskStatus) (models.TaskStatus, error)
	DeleteTask(ctx context.Context, id int) error
	ListTasksByStatus(ctx context.Context, status models.TaskStatus, query string, page, pageSize int) ([]*models.Task, int, error)
}

// WebhookRepository defines webhook persistence and the delivery log.
type WebhookRepository interface {
	CreateWebhook(ctx context.Context, w *models.Webhook) (*models.Webhook, error)
	GetWebhook(ctx context.Context, id int) (*models.Webhook, error)
	ListWebhooks(ctx context.Context) ([]*models.Webhook, error)
	ListActiveWebhooksForEvent(ctx context.Context, eventType string) ([]*models.Webhook, error)
	SetWebhookActive(ctx context.Context, id int, active bool) error
	DeleteWebhook(ctx context.Context, id int) error
	RecordDelivery(ctx context.Context, d *models.WebhookDelivery) error
	ListDeliveries(ctx context.Context, webhookID, limit int) ([]*models.WebhookDelivery, error)
}
