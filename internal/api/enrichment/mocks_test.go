package enrichment

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) ResolveCaller(ctx context.Context, credential string) (*types.Identity, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Identity), args.Error(1)
}

func (m *MockGuard) LoadProfile(ctx context.Context, identity *types.Identity) (*types.Profile, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

type MockPOIRepository struct {
	mock.Mock
}

func (m *MockPOIRepository) GetPlace(ctx context.Context, placeID uuid.UUID) (*types.PlaceRecord, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceRecord), args.Error(1)
}

func (m *MockPOIRepository) FindByExternalID(ctx context.Context, externalPlaceID string, exclude *uuid.UUID) (*types.PlaceSummary, error) {
	args := m.Called(ctx, externalPlaceID, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceSummary), args.Error(1)
}

func (m *MockPOIRepository) CreatePlace(ctx context.Context, params types.NewPlaceParams) (uuid.UUID, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPOIRepository) UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error {
	args := m.Called(ctx, placeID, params)
	return args.Error(0)
}

func (m *MockPOIRepository) ReplacePhotos(ctx context.Context, placeID, uploaderID uuid.UUID, urls []string, clearExisting bool) ([]types.PhotoRecord, error) {
	args := m.Called(ctx, placeID, uploaderID, urls, clearExisting)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PhotoRecord), args.Error(1)
}

type MockCityRepository struct {
	mock.Mock
}

func (m *MockCityRepository) GetOrCreate(ctx context.Context, lookup types.CityLookup) (*types.CityRef, error) {
	args := m.Called(ctx, lookup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CityRef), args.Error(1)
}

type MockDescriptionSource struct {
	mock.Mock
}

func (m *MockDescriptionSource) Describe(ctx context.Context, externalPlaceID string) (string, error) {
	args := m.Called(ctx, externalPlaceID)
	return args.String(0), args.Error(1)
}

type MockContextFetcher struct {
	mock.Mock
}

func (m *MockContextFetcher) FetchContext(ctx context.Context, externalPlaceID string) (*types.AiContext, error) {
	args := m.Called(ctx, externalPlaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AiContext), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt types.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
