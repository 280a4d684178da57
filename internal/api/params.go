package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; missing means 0
func queryInt(c echo.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

type pageParams struct {
	Query    string
	Page     int
	PageSize int
}

func parsePage(c echo.Context) (pageParams, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return pageParams{}, err
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		return pageParams{}, err
	}
	return pageParams{Query: c.QueryParam("q"), Page: page, PageSize: pageSize}, nil
}
