package types

import "github.com/google/uuid"

// CityRef matches the cities table structure.
type CityRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	State   *string   `json:"state,omitempty"`
	Country *string   `json:"country,omitempty"`
	Lat     *float64  `json:"lat,omitempty"`
	Lng     *float64  `json:"lng,omitempty"`
}

// CityLookup is the resolver input: a name plus optional disambiguators.
type CityLookup struct {
	Name    string
	State   string
	Country string
	Lat     *float64
	Lng     *float64
}
