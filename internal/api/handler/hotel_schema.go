package handler

// --- Request / Response types ---

type hotelRequest struct {
	Name      string  `json:"name"       validate:"required,max=150"`
	Address   string  `json:"address"    validate:"required,max=50"`
	Rating    float64 `json:"rating"     validate:"gte=1,lte=5"`
	CountryID int64   `json:"country_id" validate:"required,gt=0"`
}

type countryRequest struct {
	Name      string `json:"name"       validate:"required,max=50"`
	ShortName string `json:"short_name" validate:"max=2"`
}

type hotelResponse struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	Rating    float64          `json:"rating"`
	CountryID int64            `json:"country_id"`
	Country   *countryResponse `json:"country,omitempty"`
}

type countryResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	ShortName string          `json:"short_name"`
	Hotels    []hotelResponse `json:"hotels,omitempty"`
}

type hotelListQuery struct {
	CountryID int64   `query:"country_id" validate:"gte=0"`
	MinRating float64 `query:"min_rating" validate:"gte=0,lte=5"`
	Name      string  `query:"name"       validate:"max=150"`
	Sort      string  `query:"sort"       validate:"omitempty,oneof=id name rating"`
	Desc      bool    `query:"desc"`
	Limit     uint64  `query:"limit"      validate:"lte=500"`
}
