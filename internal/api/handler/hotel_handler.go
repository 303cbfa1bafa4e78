package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/islandman/hotel-listing/internal/api/metrics"
	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
	"github.com/islandman/hotel-listing/internal/core/query"
)

// HotelHandler exposes hotel CRUD over the request's unit of work.
type HotelHandler struct{}

func NewHotelHandler() *HotelHandler {
	return &HotelHandler{}
}

// List returns hotels, optionally filtered by country, minimum rating and
// name fragment.
func (h *HotelHandler) List(c echo.Context) error {
	var q hotelListQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	var filters []query.Predicate
	if q.CountryID > 0 {
		filters = append(filters, query.Eq("country_id", q.CountryID))
	}
	if q.MinRating > 0 {
		filters = append(filters, query.Gte("rating", q.MinRating))
	}
	if q.Name != "" {
		filters = append(filters, query.Contains("name", q.Name))
	}

	opts := []query.Option{query.Limit(q.Limit)}
	if len(filters) > 0 {
		opts = append(opts, query.Where(query.And(filters...)))
	}
	if q.Sort != "" {
		opts = append(opts, query.OrderBy(q.Sort, q.Desc))
	}

	hotels, err := u.Hotels().GetAll(c.Request().Context(), opts...)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHotelResponses(hotels))
}

// Get returns one hotel with its country.
func (h *HotelHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	hotel, err := u.Hotels().Get(c.Request().Context(), query.ByID(id), domain.RelationCountry)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHotelResponse(hotel))
}

func (h *HotelHandler) Create(c echo.Context) error {
	var req hotelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	var hotel domain.Hotel
	req.apply(&hotel)
	ctx := c.Request().Context()
	if err := u.Hotels().Insert(ctx, &hotel); err != nil {
		return err
	}
	if err := save(c, u, "hotel"); err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("hotels.get", hotel.ID))
	return c.JSON(http.StatusCreated, toHotelResponse(&hotel))
}

func (h *HotelHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req hotelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	hotel, err := u.Hotels().Get(ctx, query.ByID(id))
	if err != nil {
		return err
	}
	req.apply(hotel)
	if err := u.Hotels().Update(ctx, hotel); err != nil {
		return err
	}
	if err := save(c, u, "hotel"); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HotelHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := unitOfWork(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := u.Hotels().Get(ctx, query.ByID(id)); err != nil {
		return err
	}
	if err := u.Hotels().Delete(ctx, id); err != nil {
		return err
	}
	if err := save(c, u, "hotel"); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// save commits the unit and records the outcome.
func save(c echo.Context, u ports.UnitOfWork, entity string) error {
	n, err := u.Save(c.Request().Context())
	if err != nil {
		metrics.UnitOfWorkSavesTotal.WithLabelValues(entity, "failed").Inc()
		return err
	}
	metrics.UnitOfWorkSavesTotal.WithLabelValues(entity, "committed").Inc()
	metrics.RowsAffectedTotal.WithLabelValues(entity).Add(float64(n))
	return nil
}
