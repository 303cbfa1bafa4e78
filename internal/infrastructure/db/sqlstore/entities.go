package sqlstore

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

var countryTable = &table[domain.Country]{
	name:    "countries",
	columns: []string{"name", "short_name"},
	id:      func(c *domain.Country) int64 { return c.ID },
	setID:   func(c *domain.Country, id int64) { c.ID = id },
	values:  func(c *domain.Country) []any { return []any{c.Name, c.ShortName} },
	scan: func(s scanner) (*domain.Country, error) {
		var c domain.Country
		if err := s.Scan(&c.ID, &c.Name, &c.ShortName); err != nil {
			return nil, err
		}
		return &c, nil
	},
}

var hotelTable = &table[domain.Hotel]{
	name:    "hotels",
	columns: []string{"name", "address", "rating", "country_id"},
	id:      func(h *domain.Hotel) int64 { return h.ID },
	setID:   func(h *domain.Hotel, id int64) { h.ID = id },
	values:  func(h *domain.Hotel) []any { return []any{h.Name, h.Address, h.Rating, h.CountryID} },
	scan: func(s scanner) (*domain.Hotel, error) {
		var h domain.Hotel
		if err := s.Scan(&h.ID, &h.Name, &h.Address, &h.Rating, &h.CountryID); err != nil {
			return nil, err
		}
		return &h, nil
	},
}

// Relations refer to the other table, so they are wired here rather than
// in the declarations above to avoid an initialisation cycle.
func init() {
	countryTable.relations = map[domain.Relation]relationLoader[domain.Country]{
		domain.RelationHotels: loadCountryHotels,
	}
	hotelTable.relations = map[domain.Relation]relationLoader[domain.Hotel]{
		domain.RelationCountry: loadHotelCountry,
	}
}

func loadHotelCountry(ctx context.Context, tx *sql.Tx, qb sq.StatementBuilderType, hotels []*domain.Hotel) error {
	ids := make([]int64, 0, len(hotels))
	seen := make(map[int64]struct{}, len(hotels))
	for _, h := range hotels {
		if _, ok := seen[h.CountryID]; ok {
			continue
		}
		seen[h.CountryID] = struct{}{}
		ids = append(ids, h.CountryID)
	}

	countries, err := countryTable.queryAll(ctx, tx, countryTable.selectFrom(qb).Where(sq.Eq{"id": ids}))
	if err != nil {
		return err
	}
	byID := make(map[int64]*domain.Country, len(countries))
	for _, c := range countries {
		byID[c.ID] = c
	}
	for _, h := range hotels {
		if c, ok := byID[h.CountryID]; ok {
			country := *c
			h.Country = &country
		}
	}
	return nil
}

func loadCountryHotels(ctx context.Context, tx *sql.Tx, qb sq.StatementBuilderType, countries []*domain.Country) error {
	ids := make([]int64, len(countries))
	byID := make(map[int64]*domain.Country, len(countries))
	for i, c := range countries {
		ids[i] = c.ID
		byID[c.ID] = c
		c.Hotels = []domain.Hotel{}
	}

	hotels, err := hotelTable.queryAll(ctx, tx, hotelTable.selectFrom(qb).Where(sq.Eq{"country_id": ids}).OrderBy("id ASC"))
	if err != nil {
		return err
	}
	for _, h := range hotels {
		if c, ok := byID[h.CountryID]; ok {
			c.Hotels = append(c.Hotels, *h)
		}
	}
	return nil
}
