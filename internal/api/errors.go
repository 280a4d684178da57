package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/dealflow/internal/assistant"
	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/services/contact"
	"github.com/thenoetrevino/dealflow/internal/services/opportunity"
	"github.com/thenoetrevino/dealflow/internal/services/task"
	"github.com/thenoetrevino/dealflow/internal/services/webhook"
)

// errServiceUnavailable is returned by routes whose service was not wired
var errServiceUnavailable = errors.New("service unavailable")

// IsValidationError reports whether err is an input validation failure
// from one of the services
func IsValidationError(err error) bool {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// badRequestErrors are validation failures reported back to the caller
var badRequestErrors = []error{
	contact.ErrEmptyName, contact.ErrNameTooLong, contact.ErrInvalidEmail, contact.ErrInvalidContactID,
	opportunity.ErrEmptyTitle, opportunity.ErrTitleTooLong, opportunity.ErrNegativeAmount,
	opportunity.ErrInvalidID, opportunity.ErrInvalidStageID, opportunity.ErrUnknownContact, opportunity.ErrNotesTooLong,
	task.ErrEmptyTitle, task.ErrTitleTooLong, task.ErrDescriptionTooLong, task.ErrInvalidTaskID,
	task.ErrInvalidStatus, task.ErrUnknownContact, task.ErrUnknownOpportunity,
	webhook.ErrInvalidURL, webhook.ErrNoEvents, webhook.ErrUnknownEvent, webhook.ErrInvalidWebhookID,
	assistant.ErrEmptyConversation, assistant.ErrTooManyMessages, assistant.ErrInvalidRole,
	assistant.ErrEmptyMessage, assistant.ErrLastMessageNotUser,
}

// statusFor maps a service error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyInColumn):
		return http.StatusConflict
	case errors.Is(err, assistant.ErrNotConfigured), errors.Is(err, errServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, assistant.ErrEmptyReply):
		return http.StatusBadGateway
	}
	if IsValidationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleError writes {"message": ...}. Internal errors are logged and hidden.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		code = statusFor(err)
		if code == http.StatusInternalServerError {
			s.logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err)
		} else {
			message = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"message": message})
	}
	if err != nil {
		s.logger.Error("failed to write error response", "error", err)
	}
}
