package task

import (
	"errors"
	"fmt"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// Task-related errors
var (
	// Validation errors
	ErrEmptyTitle         = errors.New("task title cannot be empty")
	ErrTitleTooLong       = errors.New("task title cannot exceed 255 characters")
	ErrDescriptionTooLong = errors.New("task description cannot exceed 10000 characters")
	ErrInvalidTaskID      = errors.New("invalid task ID")
	ErrInvalidStatus      = errors.New("invalid task status")
	ErrUnknownContact     = errors.New("linked contact does not exist")
	ErrUnknownOpportunity = errors.New("linked opportunity does not exist")

	// Business logic errors
	ErrTaskNotFound              = fmt.Errorf("task %w", models.ErrNotFound)
	ErrTaskAlreadyInTargetColumn = fmt.Errorf("task: %w", models.ErrAlreadyInColumn)
)
