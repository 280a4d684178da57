package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/services/webhook"
)

func (s *Server) registerWebhooks(g *echo.Group) {
	g.GET("/webhooks", s.listWebhooks)
	g.POST("/webhooks", s.createWebhook)
	g.GET("/webhooks/:id", s.getWebhook)
	g.PATCH("/webhooks/:id", s.patchWebhook)
	g.DELETE("/webhooks/:id", s.deleteWebhook)
	g.GET("/webhooks/:id/deliveries", s.listDeliveries)
}

// WebhookCreatedResponse is the only response that carries the signing secret
type WebhookCreatedResponse struct {
	*models.Webhook
	Secret string `json:"secret"`
}

type patchWebhookRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) webhooks() (webhook.Service, error) {
	if s.svc.Webhooks == nil {
		return nil, errServiceUnavailable
	}
	return s.svc.Webhooks, nil
}

func (s *Server) listWebhooks(c echo.Context) error {
	svc, err := s.webhooks()
	if err != nil {
		return err
	}
	hooks, err := svc.ListWebhooks(c.Request().Context())
	if err != nil {
		return err
	}
	if hooks == nil {
		hooks = []*models.Webhook{}
	}
	return c.JSON(http.StatusOK, hooks)
}

func (s *Server) createWebhook(c echo.Context) error {
	svc, err := s.webhooks()
	if err != nil {
		return err
	}
	var req webhook.CreateWebhookRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	created, err := svc.CreateWebhook(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, WebhookCreatedResponse{Webhook: created, Secret: created.Secret})
}

func (s *Server) getWebhook(c echo.Context) error {
	svc, err := s.webhooks()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	hook, err := svc.GetWebhook(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hook)
}

func (s *Server) patchWebhook(c echo.Context) error {
	svc, err := s.webhooks()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req patchWebhookRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if req.Active != nil {
		if err := svc.SetActive(ctx, id, *req.Active); err != nil {
			return err
		}
	}
	hook, err := svc.GetWebhook(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hook)
}

func (s *Server) deleteWebhook(c echo.Context) error {
	svc, err := s.webhooks()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteWebhook(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listDeliveries(c echo.Context) error {
	svc, err := s.webhooks()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	deliveries, err := svc.ListDeliveries(c.Request().Context(), id, limit)
	if err != nil {
		return err
	}
	if deliveries == nil {
		deliveries = []*models.WebhookDelivery{}
	}
	return c.JSON(http.StatusOK, deliveries)
}
