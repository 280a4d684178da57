package webhook

import (
	"errors"
	"fmt"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// Webhook-related errors
var (
	// Validation errors
	ErrInvalidURL       = errors.New("webhook URL must be an absolute http or https URL")
	ErrNoEvents         = errors.New("webhook must subscribe to at least one event")
	ErrUnknownEvent     = errors.New("unknown event type")
	ErrInvalidWebhookID = errors.New("invalid webhook ID")

	// Business logic errors
	ErrWebhookNotFound = fmt.Errorf("webhook %w", models.ErrNotFound)
)
