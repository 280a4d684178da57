package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/services/opportunity"
)

func (s *Server) registerPipeline(g *echo.Group) {
	g.GET("/stages", s.listStages)
	g.GET("/opportunities", s.listOpportunities)
	g.POST("/opportunities", s.createOpportunity)
	g.GET("/opportunities/:id", s.getOpportunity)
	g.PATCH("/opportunities/:id", s.patchOpportunity)
	g.DELETE("/opportunities/:id", s.deleteOpportunity)
}

// StageResponse is a stage with the count and value of its opportunities
type StageResponse struct {
	models.Stage
	Count       int   `json:"count"`
	AmountCents int64 `json:"amountCents"`
}

// PatchOpportunityRequest updates fields and/or moves the opportunity.
// A move is applied after the field update.
type PatchOpportunityRequest struct {
	opportunity.UpdateOpportunityRequest
	StageID *int `json:"stageId"`
}

func (r PatchOpportunityRequest) hasFieldUpdates() bool {
	u := r.UpdateOpportunityRequest
	return u.Title != nil || u.ContactID != nil || u.ClearContact || u.AmountCents != nil || u.Notes != nil
}

func (s *Server) opportunities() (opportunity.Service, error) {
	if s.svc.Opportunities == nil {
		return nil, errServiceUnavailable
	}
	return s.svc.Opportunities, nil
}

func (s *Server) listStages(c echo.Context) error {
	svc, err := s.opportunities()
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	stages, err := svc.ListStages(ctx)
	if err != nil {
		return err
	}
	totals, err := svc.PipelineTotals(ctx)
	if err != nil {
		return err
	}

	resp := make([]StageResponse, 0, len(stages))
	for _, st := range stages {
		t := totals[st.ID]
		resp = append(resp, StageResponse{Stage: *st, Count: t.Count, AmountCents: t.AmountCents})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listOpportunities(c echo.Context) error {
	svc, err := s.opportunities()
	if err != nil {
		return err
	}
	stageID, err := queryInt(c, "stageId")
	if err != nil {
		return err
	}
	if stageID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "stageId is required")
	}
	p, err := parsePage(c)
	if err != nil {
		return err
	}
	result, err := svc.ListByStage(c.Request().Context(), stageID, p.Query, p.Page, p.PageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) createOpportunity(c echo.Context) error {
	svc, err := s.opportunities()
	if err != nil {
		return err
	}
	var req opportunity.CreateOpportunityRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	created, err := svc.CreateOpportunity(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getOpportunity(c echo.Context) error {
	svc, err := s.opportunities()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	found, err := svc.GetOpportunity(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, found)
}

func (s *Server) patchOpportunity(c echo.Context) error {
	svc, err := s.opportunities()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req PatchOpportunityRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if req.hasFieldUpdates() {
		req.ID = id
		if _, err := svc.UpdateOpportunity(ctx, req.UpdateOpportunityRequest); err != nil {
			return err
		}
	}
	if req.StageID != nil {
		if err := svc.MoveOpportunity(ctx, id, *req.StageID); err != nil {
			return err
		}
	}

	updated, err := svc.GetOpportunity(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteOpportunity(c echo.Context) error {
	svc, err := s.opportunities()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteOpportunity(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
