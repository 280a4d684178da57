package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/dealflow/internal/services/contact"
)

func (s *Server) registerContacts(g *echo.Group) {
	g.GET("/contacts", s.listContacts)
	g.POST("/contacts", s.createContact)
	g.GET("/contacts/:id", s.getContact)
	g.PATCH("/contacts/:id", s.updateContact)
	g.DELETE("/contacts/:id", s.deleteContact)
}

func (s *Server) contacts() (contact.Service, error) {
	if s.svc.Contacts == nil {
		return nil, errServiceUnavailable
	}
	return s.svc.Contacts, nil
}

func (s *Server) listContacts(c echo.Context) error {
	svc, err := s.contacts()
	if err != nil {
		return err
	}
	p, err := parsePage(c)
	if err != nil {
		return err
	}
	result, err := svc.ListContacts(c.Request().Context(), p.Query, p.Page, p.PageSize)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) createContact(c echo.Context) error {
	svc, err := s.contacts()
	if err != nil {
		return err
	}
	var req contact.CreateContactRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	created, err := svc.CreateContact(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getContact(c echo.Context) error {
	svc, err := s.contacts()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	found, err := svc.GetContact(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, found)
}

func (s *Server) updateContact(c echo.Context) error {
	svc, err := s.contacts()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req contact.UpdateContactRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	req.ID = id
	updated, err := svc.UpdateContact(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteContact(c echo.Context) error {
	svc, err := s.contacts()
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteContact(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
