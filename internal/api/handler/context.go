package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/islandman/hotel-listing/internal/api/middleware"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

// unitOfWork returns the request's unit of work. Its absence means the
// route was registered without the UnitOfWork middleware.
func unitOfWork(c echo.Context) (ports.UnitOfWork, error) {
	u := middleware.UnitOfWorkFrom(c)
	if u == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "storage session unavailable")
	}
	return u, nil
}

// pathID parses the ":id" parameter; identities start at 1.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
