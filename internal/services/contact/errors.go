package contact

import (
	"errors"
	"fmt"

	"github.com/thenoetrevino/dealflow/internal/models"
)

// Contact-related errors
var (
	// Validation errors
	ErrEmptyName        = errors.New("contact first name cannot be empty")
	ErrNameTooLong      = errors.New("contact name cannot exceed 255 characters")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidContactID = errors.New("invalid contact ID")

	// Business logic errors
	ErrContactNotFound = fmt.Errorf("contact %w", models.ErrNotFound)
)
