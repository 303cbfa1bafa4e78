package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/query"
)

// CountryHandler exposes country CRUD over the request's unit of work.
type CountryHandler struct{}

func NewCountryHandler() *CountryHandler {
	return &CountryHandler{}
}

func (h *CountryHandler) List(c echo.Context) error {
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	countries, err := u.Countries().GetAll(c.Request().Context(), query.OrderBy("name", false))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCountryResponses(countries))
}

// Get returns one country with its hotels.
func (h *CountryHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	country, err := u.Countries().Get(c.Request().Context(), query.ByID(id), domain.RelationHotels)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCountryResponse(country))
}

func (h *CountryHandler) Create(c echo.Context) error {
	var req countryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	var country domain.Country
	req.apply(&country)
	if err := u.Countries().Insert(c.Request().Context(), &country); err != nil {
		return err
	}
	if err := save(c, u, "country"); err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("countries.get", country.ID))
	return c.JSON(http.StatusCreated, toCountryResponse(&country))
}

func (h *CountryHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req countryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	country, err := u.Countries().Get(ctx, query.ByID(id))
	if err != nil {
		return err
	}
	req.apply(country)
	if err := u.Countries().Update(ctx, country); err != nil {
		return err
	}
	if err := save(c, u, "country"); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the country and, through the foreign key, its hotels.
func (h *CountryHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := u.Countries().Get(ctx, query.ByID(id)); err != nil {
		return err
	}
	if err := u.Countries().Delete(ctx, id); err != nil {
		return err
	}
	if err := save(c, u, "country"); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
