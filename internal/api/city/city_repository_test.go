package city

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

func setupCityRepository(t *testing.T) (*PostgresCityRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewCityRepository(mockPool, slog.New(slog.NewTextHandler(io.Discard, nil))), mockPool
}

func TestPostgresCityRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	cityID := uuid.New()
	columns := []string{"id", "name", "state", "country", "lat", "lng"}

	t.Run("trims input and returns the resolved city", func(t *testing.T) {
		repo, mockPool := setupCityRepository(t)
		state, country := "FL", "US"
		lat, lng := 25.76, -80.19
		mockPool.ExpectQuery("FROM get_or_create_city").
			WithArgs("Miami", "FL", "US", &lat, &lng).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(cityID.String(), "Miami", &state, &country, &lat, &lng))

		city, err := repo.GetOrCreate(ctx, types.CityLookup{
			Name: "  Miami ", State: " FL", Country: "US ", Lat: &lat, Lng: &lng,
		})
		require.NoError(t, err)
		assert.Equal(t, cityID, city.ID)
		assert.Equal(t, "Miami", city.Name)
		require.NotNil(t, city.State)
		assert.Equal(t, "FL", *city.State)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("same key resolves to the same id", func(t *testing.T) {
		repo, mockPool := setupCityRepository(t)
		for i := 0; i < 2; i++ {
			mockPool.ExpectQuery("FROM get_or_create_city").
				WithArgs("Lisbon", "", "", (*float64)(nil), (*float64)(nil)).
				WillReturnRows(pgxmock.NewRows(columns).
					AddRow(cityID.String(), "Lisbon", (*string)(nil), (*string)(nil), (*float64)(nil), (*float64)(nil)))
		}

		first, err := repo.GetOrCreate(ctx, types.CityLookup{Name: "Lisbon"})
		require.NoError(t, err)
		second, err := repo.GetOrCreate(ctx, types.CityLookup{Name: "Lisbon"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("empty name is rejected without a query", func(t *testing.T) {
		repo, mockPool := setupCityRepository(t)
		_, err := repo.GetOrCreate(ctx, types.CityLookup{Name: "   "})
		assert.ErrorIs(t, err, types.ErrInvalidRequest)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("procedure failure is returned", func(t *testing.T) {
		repo, mockPool := setupCityRepository(t)
		mockPool.ExpectQuery("FROM get_or_create_city").
			WithArgs("Porto", "", "PT", (*float64)(nil), (*float64)(nil)).
			WillReturnError(errors.New("function get_or_create_city does not exist"))

		_, err := repo.GetOrCreate(ctx, types.CityLookup{Name: "Porto", Country: "PT"})
		assert.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
