package cli

import (
	"errors"
	"net/http"

	"github.com/thenoetrevino/dealflow/internal/api"
	"github.com/thenoetrevino/dealflow/internal/client"
	"github.com/thenoetrevino/dealflow/internal/models"
)

// Exit codes for CLI commands.
// These codes follow Unix conventions and provide consistent error reporting
// across all CLI commands.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitError indicates a general error occurred.
	// Use for: Database errors, network errors, unexpected failures,
	// or any error that doesn't fit the specific categories below.
	ExitError = 1

	// ExitUsage indicates incorrect command usage.
	// Use for: Missing required flags, invalid flag combinations,
	// or when the user needs to provide different arguments.
	ExitUsage = 2

	// ExitNotFound indicates a requested resource was not found.
	// Use for: Contact, opportunity, task, stage or webhook ids that don't exist.
	ExitNotFound = 3

	// ExitDataErr indicates invalid or malformed data.
	// Use for: Unparseable amounts or dates, bad JSON from a server.
	ExitDataErr = 4

	// ExitValidation indicates a validation error.
	// Use for: Empty titles, unknown task statuses, invalid webhook URLs,
	// or a move to the column the item is already in.
	ExitValidation = 5
)

// CommandError carries the process exit code for a failed command. The
// formatter has already reported it to the user.
type CommandError struct {
	Code int
	Err  error
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a command to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *CommandError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var apiErr *client.APIError
	switch {
	case errors.Is(err, models.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, models.ErrAlreadyInColumn), api.IsValidationError(err):
		return ExitValidation
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest:
		return ExitValidation
	}
	return ExitError
}
