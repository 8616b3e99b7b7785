package types

import (
	"time"

	"github.com/google/uuid"
)

// PlaceRecord matches the places table columns read and written by the enrichment pipeline.
type PlaceRecord struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Address         *string    `json:"address,omitempty"`
	ExternalPlaceID *string    `json:"externalPlaceId,omitempty"`
	Lat             *float64   `json:"lat,omitempty"`
	Lng             *float64   `json:"lng,omitempty"`
	CityID          *uuid.UUID `json:"cityId,omitempty"`
	CityName        *string    `json:"city,omitempty"`
	OwnerID         uuid.UUID  `json:"ownerId"`
	Link            *string    `json:"link,omitempty"`
	CoverImageURL   *string    `json:"coverImageUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// PlaceSummary is the minimal projection used for duplicate reporting.
type PlaceSummary struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// PhotoRecord is one row of place_photos. IsCover is true iff SortIndex == 0.
type PhotoRecord struct {
	ID         uuid.UUID `json:"id"`
	PlaceID    uuid.UUID `json:"placeId"`
	UploaderID uuid.UUID `json:"uploaderId"`
	URL        string    `json:"url"`
	SortIndex  int       `json:"sortIndex"`
	IsCover    bool      `json:"isCover"`
}

// NewPlaceParams holds the columns of a create-branch insert.
type NewPlaceParams struct {
	Title           string
	Description     *string
	Address         *string
	ExternalPlaceID string
	Lat             *float64
	Lng             *float64
	Link            *string
	CityID          *uuid.UUID
	CityName        *string
	OwnerID         uuid.UUID
}

// UpdatePlaceParams is a partial update; nil fields are left untouched.
type UpdatePlaceParams struct {
	Title           *string
	Description     *string
	Address         *string
	ExternalPlaceID *string
	Lat             *float64
	Lng             *float64
	Link            *string
	CityID          *uuid.UUID
	CityName        *string
}

// IsEmpty reports whether the update would change nothing.
func (p UpdatePlaceParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Address == nil &&
		p.ExternalPlaceID == nil && p.Lat == nil && p.Lng == nil && p.Link == nil &&
		p.CityID == nil && p.CityName == nil
}
