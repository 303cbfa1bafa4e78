package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/islandman/hotel-listing/internal/api/middleware"
	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
	"github.com/islandman/hotel-listing/internal/core/query"
)

// stubHotelRepo answers Get from a map and records mutations.
type stubHotelRepo struct {
	hotels  map[int64]*domain.Hotel
	deleted []int64
	updated []domain.Hotel
	nextID  int64
	lastGet query.Predicate
	lastInc []domain.Relation
}

func (r *stubHotelRepo) GetAll(context.Context, ...query.Option) ([]*domain.Hotel, error) {
	out := make([]*domain.Hotel, 0, len(r.hotels))
	for _, h := range r.hotels {
		out = append(out, h)
	}
	return out, nil
}

func (r *stubHotelRepo) Get(_ context.Context, p query.Predicate, includes ...domain.Relation) (*domain.Hotel, error) {
	r.lastGet, r.lastInc = p, includes
	id, _ := p.Value().(int64)
	h, ok := r.hotels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (r *stubHotelRepo) Insert(_ context.Context, h *domain.Hotel) error {
	r.nextID++
	h.ID = r.nextID
	return nil
}

func (r *stubHotelRepo) Update(_ context.Context, h *domain.Hotel) error {
	r.updated = append(r.updated, *h)
	return nil
}

func (r *stubHotelRepo) Delete(_ context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	return nil
}

type stubUnit struct {
	hotels  *stubHotelRepo
	saves   int
	saveErr error
}

func (u *stubUnit) Countries() ports.Repository[domain.Country] { return nil }
func (u *stubUnit) Hotels() ports.Repository[domain.Hotel]      { return u.hotels }
func (u *stubUnit) Close() error                                { return nil }

func (u *stubUnit) Save(context.Context) (int64, error) {
	u.saves++
	if u.saveErr != nil {
		return 0, u.saveErr
	}
	return 1, nil
}

func newStubUnit() *stubUnit {
	return &stubUnit{hotels: &stubHotelRepo{
		hotels: map[int64]*domain.Hotel{
			7: {ID: 7, Name: "Sandals", Address: "Negril", Rating: 4.5, CountryID: 1},
		},
		nextID: 7,
	}}
}

func hotelContext(u ports.UnitOfWork, method, target, body, id string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newJSONContext(method, target, body)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	if u != nil {
		c.Set(middleware.ContextKeyUnitOfWork, u)
	}
	return c, rec
}

func TestHotelHandler_Get_IncludesCountry(t *testing.T) {
	u := newStubUnit()
	c, rec := hotelContext(u, http.MethodGet, "/api/hotels/7", "", "7")

	if err := NewHotelHandler().Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(u.hotels.lastInc) != 1 || u.hotels.lastInc[0] != domain.RelationCountry {
		t.Fatalf("expected Country include, got %v", u.hotels.lastInc)
	}
	var resp hotelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != 7 || resp.Name != "Sandals" {
		t.Fatalf("unexpected hotel: %+v", resp)
	}
}

func TestHotelHandler_RejectsNonPositiveID(t *testing.T) {
	for _, id := range []string{"0", "-3", "x"} {
		c, _ := hotelContext(newStubUnit(), http.MethodGet, "/api/hotels/"+id, "", id)
		if code := httpCode(t, NewHotelHandler().Get(c)); code != http.StatusBadRequest {
			t.Fatalf("id %q: expected 400, got %d", id, code)
		}
	}
}

func TestHotelHandler_Delete_PrechecksExistence(t *testing.T) {
	u := newStubUnit()
	c, _ := hotelContext(u, http.MethodDelete, "/api/hotels/99", "", "99")

	if err := NewHotelHandler().Delete(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(u.hotels.deleted) != 0 || u.saves != 0 {
		t.Fatalf("nothing may be staged or saved for a missing hotel")
	}
}

func TestHotelHandler_Delete_Success(t *testing.T) {
	u := newStubUnit()
	c, rec := hotelContext(u, http.MethodDelete, "/api/hotels/7", "", "7")

	if err := NewHotelHandler().Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(u.hotels.deleted) != 1 || u.hotels.deleted[0] != 7 || u.saves != 1 {
		t.Fatalf("expected one delete and one save, got %v / %d", u.hotels.deleted, u.saves)
	}
}

func TestHotelHandler_Update_AppliesFields(t *testing.T) {
	u := newStubUnit()
	c, rec := hotelContext(u, http.MethodPut, "/api/hotels/7",
		`{"name":"Sandals Royal","address":"Montego Bay","rating":5,"country_id":1}`, "7")

	if err := NewHotelHandler().Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(u.hotels.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(u.hotels.updated))
	}
	got := u.hotels.updated[0]
	if got.ID != 7 || got.Name != "Sandals Royal" || got.Address != "Montego Bay" || got.Rating != 5 {
		t.Fatalf("unexpected update: %+v", got)
	}
}

func TestHotelHandler_Create_SaveFailure(t *testing.T) {
	u := newStubUnit()
	u.saveErr = domain.ErrCommitFailed
	c, _ := hotelContext(u, http.MethodPost, "/api/hotels",
		`{"name":"Couples","address":"Ocho Rios","rating":4,"country_id":1}`, "")

	if err := NewHotelHandler().Create(c); !errors.Is(err, domain.ErrCommitFailed) {
		t.Fatalf("expected ErrCommitFailed, got %v", err)
	}
}

func TestHotelHandler_MissingUnitOfWork(t *testing.T) {
	c, _ := hotelContext(nil, http.MethodGet, "/api/hotels/7", "", "7")
	if code := httpCode(t, NewHotelHandler().Get(c)); code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
}
