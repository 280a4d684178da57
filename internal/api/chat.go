package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/dealflow/internal/assistant"
	"github.com/thenoetrevino/dealflow/internal/models"
)

// ChatRequest is the conversation so far, oldest message first
type ChatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

// ChatResponse carries the assistant's next message
type ChatResponse struct {
	Message *models.ChatMessage `json:"message"`
}

func (s *Server) chat(c echo.Context) error {
	if s.svc.Assistant == nil {
		return assistant.ErrNotConfigured
	}
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	reply, err := s.svc.Assistant.Chat(c.Request().Context(), req.Messages)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ChatResponse{Message: reply})
}
