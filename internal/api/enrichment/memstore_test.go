package enrichment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

// memoryPlaces is an in-memory places/place_photos store with the same
// uniqueness rules as the schema.
type memoryPlaces struct {
	mu     sync.Mutex
	places map[uuid.UUID]types.PlaceRecord
	photos map[uuid.UUID][]types.PhotoRecord
	writes int
}

func newMemoryPlaces() *memoryPlaces {
	return &memoryPlaces{
		places: make(map[uuid.UUID]types.PlaceRecord),
		photos: make(map[uuid.UUID][]types.PhotoRecord),
	}
}

func (m *memoryPlaces) seed(p types.PlaceRecord, photoURLs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places[p.ID] = p
	for i, u := range photoURLs {
		m.photos[p.ID] = append(m.photos[p.ID], types.PhotoRecord{
			ID: uuid.New(), PlaceID: p.ID, UploaderID: p.OwnerID, URL: u, SortIndex: i, IsCover: i == 0,
		})
	}
}

func (m *memoryPlaces) place(id uuid.UUID) types.PlaceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.places[id]
}

func (m *memoryPlaces) photosOf(id uuid.UUID) []types.PhotoRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.PhotoRecord(nil), m.photos[id]...)
}

func (m *memoryPlaces) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.places)
}

func (m *memoryPlaces) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memoryPlaces) GetPlace(_ context.Context, placeID uuid.UUID) (*types.PlaceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.places[placeID]
	if !ok {
		return nil, fmt.Errorf("place %s: %w", placeID, types.ErrNotFound)
	}
	return &p, nil
}

func (m *memoryPlaces) findLocked(externalPlaceID string, exclude *uuid.UUID) *types.PlaceSummary {
	var found *types.PlaceRecord
	for id, p := range m.places {
		if p.ExternalPlaceID == nil || *p.ExternalPlaceID != externalPlaceID {
			continue
		}
		if exclude != nil && id == *exclude {
			continue
		}
		candidate := p
		if found == nil || candidate.CreatedAt.Before(found.CreatedAt) {
			found = &candidate
		}
	}
	if found == nil {
		return nil
	}
	return &types.PlaceSummary{ID: found.ID, Title: found.Title}
}

func (m *memoryPlaces) FindByExternalID(_ context.Context, externalPlaceID string, exclude *uuid.UUID) (*types.PlaceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(externalPlaceID, exclude), nil
}

func (m *memoryPlaces) CreatePlace(_ context.Context, params types.NewPlaceParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findLocked(params.ExternalPlaceID, nil) != nil {
		return uuid.Nil, types.ErrDuplicatePlace
	}
	ext := params.ExternalPlaceID
	now := time.Now()
	p := types.PlaceRecord{
		ID:              uuid.New(),
		Title:           params.Title,
		Description:     params.Description,
		Address:         params.Address,
		ExternalPlaceID: &ext,
		Lat:             params.Lat,
		Lng:             params.Lng,
		CityID:          params.CityID,
		CityName:        params.CityName,
		OwnerID:         params.OwnerID,
		Link:            params.Link,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.places[p.ID] = p
	m.writes++
	return p.ID, nil
}

func (m *memoryPlaces) UpdatePlace(_ context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.places[placeID]
	if !ok {
		return types.ErrNotFound
	}
	if params.ExternalPlaceID != nil && m.findLocked(*params.ExternalPlaceID, &placeID) != nil {
		return types.ErrDuplicatePlace
	}
	if params.Title != nil {
		p.Title = *params.Title
	}
	if params.Description != nil {
		p.Description = params.Description
	}
	if params.Address != nil {
		p.Address = params.Address
	}
	if params.ExternalPlaceID != nil {
		p.ExternalPlaceID = params.ExternalPlaceID
	}
	if params.Lat != nil {
		p.Lat = params.Lat
	}
	if params.Lng != nil {
		p.Lng = params.Lng
	}
	if params.Link != nil {
		p.Link = params.Link
	}
	if params.CityID != nil {
		p.CityID = params.CityID
	}
	if params.CityName != nil {
		p.CityName = params.CityName
	}
	p.UpdatedAt = time.Now()
	m.places[placeID] = p
	m.writes++
	return nil
}

func (m *memoryPlaces) ReplacePhotos(_ context.Context, placeID, uploaderID uuid.UUID, urls []string, clearExisting bool) ([]types.PhotoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if clearExisting {
		delete(m.photos, placeID)
	}
	photos := make([]types.PhotoRecord, 0, len(urls))
	for i, u := range urls {
		photos = append(photos, types.PhotoRecord{
			ID: uuid.New(), PlaceID: placeID, UploaderID: uploaderID, URL: u, SortIndex: i, IsCover: i == 0,
		})
	}
	m.photos[placeID] = photos
	if p, ok := m.places[placeID]; ok && len(urls) > 0 {
		cover := urls[0]
		p.CoverImageURL = &cover
		m.places[placeID] = p
	}
	m.writes++
	return photos, nil
}

// memoryCities mimics get_or_create_city.
type memoryCities struct {
	mu     sync.Mutex
	cities map[string]types.CityRef
	err    error
}

func newMemoryCities() *memoryCities {
	return &memoryCities{cities: make(map[string]types.CityRef)}
}

func (m *memoryCities) GetOrCreate(_ context.Context, lookup types.CityLookup) (*types.CityRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	name := strings.TrimSpace(lookup.Name)
	key := strings.ToLower(name + "|" + strings.TrimSpace(lookup.State) + "|" + strings.TrimSpace(lookup.Country))
	if ref, ok := m.cities[key]; ok {
		return &ref, nil
	}
	ref := types.CityRef{ID: uuid.New(), Name: name, Lat: lookup.Lat, Lng: lookup.Lng}
	m.cities[key] = ref
	return &ref, nil
}
