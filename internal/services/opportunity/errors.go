package opportunity

import (
	"errors"
	"fmt"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// Opportunity-related errors
var (
	// Validation errors
	ErrEmptyTitle     = errors.New("opportunity title cannot be empty")
	ErrTitleTooLong   = errors.New("opportunity title cannot exceed 255 characters")
	ErrNegativeAmount = errors.New("opportunity amount cannot be negative")
	ErrInvalidID      = errors.New("invalid opportunity ID")
	ErrInvalidStageID = errors.New("invalid stage ID")
	ErrUnknownContact = errors.New("linked contact does not exist")
	ErrNotesTooLong   = errors.New("opportunity notes cannot exceed 10000 characters")

	// Business logic errors
	ErrOpportunityNotFound  = fmt.Errorf("opportunity %w", models.ErrNotFound)
	ErrAlreadyInTargetStage = fmt.Errorf("opportunity: %w", models.ErrAlreadyInColumn)
)
