package handler

import "github.com/islandman/hotel-listing/internal/core/domain"

// --- Request → Domain ---

func (r hotelRequest) apply(h *domain.Hotel) {
	h.Name = r.Name
	h.Address = r.Address
	h.Rating = r.Rating
	h.CountryID = r.CountryID
}

func (r countryRequest) apply(c *domain.Country) {
	c.Name = r.Name
	c.ShortName = r.ShortName
}

// --- Domain → Response ---

func toHotelResponse(h *domain.Hotel) hotelResponse {
	out := hotelResponse{
		ID:        h.ID,
		Name:      h.Name,
		Address:   h.Address,
		Rating:    h.Rating,
		CountryID: h.CountryID,
	}
	if h.Country != nil {
		c := toCountryResponse(h.Country)
		out.Country = &c
	}
	return out
}

func toHotelResponses(hs []*domain.Hotel) []hotelResponse {
	out := make([]hotelResponse, len(hs))
	for i, h := range hs {
		out[i] = toHotelResponse(h)
	}
	return out
}

func toCountryResponse(c *domain.Country) countryResponse {
	out := countryResponse{ID: c.ID, Name: c.Name, ShortName: c.ShortName}
	if c.Hotels != nil {
		out.Hotels = make([]hotelResponse, len(c.Hotels))
		for i := range c.Hotels {
			out.Hotels[i] = toHotelResponse(&c.Hotels[i])
		}
	}
	return out
}

func toCountryResponses(cs []*domain.Country) []countryResponse {
	out := make([]countryResponse, len(cs))
	for i, c := range cs {
		out[i] = toCountryResponse(c)
	}
	return out
}
