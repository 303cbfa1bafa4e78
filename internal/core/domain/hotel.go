package domain

// Relation names an association that can be eagerly loaded with an entity.
type Relation string

const (
	// RelationCountry attaches Hotel.Country.
	RelationCountry Relation = "Country"
	// RelationHotels attaches Country.Hotels.
	RelationHotels Relation = "Hotels"
)

// Country groups hotels.
type Country struct {
	ID        int64
	Name      string
	ShortName string
	Hotels    []Hotel
}

// Hotel belongs to exactly one Country.
type Hotel struct {
	ID        int64
	Name      string
	Address   string
	Rating    float64
	CountryID int64
	Country   *Country
}
