package models

import "errors"

// Domain-specific errors shared by the repository and service layers
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyInColumn indicates a move to the column the item already sits in
	ErrAlreadyInColumn = errors.New("item is already in the target column")
)
