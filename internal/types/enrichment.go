package types

import "github.com/google/uuid"

// AiContext is the normalized, transient view of an external place handed to the prompt builder.
type AiContext struct {
	Name             string   `json:"name"`
	Types            []string `json:"types,omitempty"`
	FormattedAddress string   `json:"formattedAddress,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	RatingCount      *int     `json:"ratingCount,omitempty"`
	EditorialSummary string   `json:"editorialSummary,omitempty"`
	ReviewSnippets   []string `json:"reviewSnippets,omitempty"`
}

// Prompt is a (system, user) instruction pair.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// SelectedPhoto is one caller-chosen photo; URL points into object storage.
type SelectedPhoto struct {
	URL string `json:"url"`
}

// SelectedFields lists what the caller picked from the external place.
// Coordinates, link and city are applied whenever present.
type SelectedFields struct {
	Title           bool            `json:"title,omitempty"`
	TitleData       string          `json:"titleData,omitempty"`
	Address         bool            `json:"address,omitempty"`
	AddressData     string          `json:"addressData,omitempty"`
	Description     bool            `json:"description,omitempty"`
	DescriptionData string          `json:"descriptionData,omitempty"`
	Photos          []SelectedPhoto `json:"photos,omitempty"`
	Lat             *float64        `json:"lat,omitempty"`
	Lng             *float64        `json:"lng,omitempty"`
	Link            string          `json:"link,omitempty"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	Country         string          `json:"country,omitempty"`
}

// ImportRequest is the body of POST /enrich/import.
type ImportRequest struct {
	ExternalPlaceID string         `json:"externalPlaceId"`
	TargetPlaceID   string         `json:"targetPlaceId,omitempty"`
	SelectedFields  SelectedFields `json:"selectedFields"`
	// Description is direct user input and wins over selected import data.
	Description string `json:"description,omitempty"`
	Credential  string `json:"credential,omitempty"`
}

// ImportResult is returned on a successful import.
type ImportResult struct {
	PlaceID  uuid.UUID `json:"placeId"`
	Created  bool      `json:"created"`
	Updated  bool      `json:"updated"`
	Enriched bool      `json:"enriched"`
}

// GenerateDescriptionRequest is the body of POST /enrich/generate-description.
type GenerateDescriptionRequest struct {
	PlaceID         string `json:"placeId,omitempty"`
	ExternalPlaceID string `json:"externalPlaceId,omitempty"`
	Credential      string `json:"credential,omitempty"`
	Save            bool   `json:"save,omitempty"`
}

// GenerateDescriptionResult is returned by the on-demand generation flow.
type GenerateDescriptionResult struct {
	PlaceID         *uuid.UUID `json:"placeId"`
	ExternalPlaceID string     `json:"externalPlaceId"`
	Description     string     `json:"description"`
	Saved           bool       `json:"saved"`
}
