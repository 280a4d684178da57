package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/dealflow/internal/models"
	"github.com/thenoetrevino/dealflow/internal/services/task"
)

func (s *Server) registerTasks(g *echo.Group) {
	g.GET("/task-statuses", s.listTaskStatuses)
	g.GET("/tasks", s.listTasks)
	g.POST("/tasks", s.createTask)
	g.GET("/tasks/:id", s.getTask)
	g.PATCH("/tasks/:id", s.patchTask)
	g.DELETE("/tasks/:id", s.deleteTask)
}

// PatchTaskRequest updates fields and/or moves the task to another status
type PatchTaskRequest struct {
	task.UpdateTaskRequest
	Status *models.TaskStatus `json:"status"`
}

func (r PatchTaskRequest) hasFieldUpdates() bool {
	u := r.UpdateTaskRequest
	return u.Title != nil || u.Description != nil || u.DueDate != nil || u.ClearDueDate ||
		u.ContactID != nil || u.OpportunityID != nil
}

func (s *Server) tasks() (task.Service, error) {
	if s.svc.Tasks == nil {
		return nil, errServiceUnavailable
	}
	return s.svc.Tasks, nil
}

func (s *Server) listTaskStatuses(c echo.Context) error {
	svc, err := s.tasks()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc.ListStatuses())
}

func (s *Server) listTasks(c echo.Context) error {
	svc, err := s.tasks()
	if err != nil {
		return err
	}
	status := models.TaskStatus(c.QueryParam("status"))
	if status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	p, err := parsePage(c)
	if err != nil {
		return err
	}
	result, err := svc.ListByStatus(c.Request().Context(), status, p.Query, p.Page, p.PageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) createTask(c echo.Context) error {
	svc, err := s.tasks()
	if err != nil {
		return err
	}
	var req task.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	created, err := svc.CreateTask(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getTask(c echo.Context) error {
	svc, err := s.tasks()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	found, err := svc.GetTask(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, found)
}

func (s *Server) patchTask(c echo.Context) error {
	svc, err := s.tasks()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req PatchTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	if req.hasFieldUpdates() {
		req.TaskID = id
		if _, err := svc.UpdateTask(ctx, req.UpdateTaskRequest); err != nil {
			return err
		}
	}
	if req.Status != nil {
		if err := svc.MoveTask(ctx, id, *req.Status); err != nil {
			return err
		}
	}

	updated, err := svc.GetTask(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteTask(c echo.Context) error {
	svc, err := s.tasks()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteTask(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
