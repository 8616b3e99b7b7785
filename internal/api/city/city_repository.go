package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-place-enrichment/app/db"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

var _ CityRepository = (*PostgresCityRepository)(nil)

type CityRepository interface {
	// GetOrCreate returns the city for the effective key (name, state, country),
	// creating it on first use. Lookups are case-insensitive.
	GetOrCreate(ctx context.Context, lookup types.CityLookup) (*types.CityRef, error)
}

type PostgresCityRepository struct {
	logger *slog.Logger
	db     database.DB
}

func NewCityRepository(db database.DB, logger *slog.Logger) *PostgresCityRepository {
	return &PostgresCityRepository{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresCityRepository) GetOrCreate(ctx context.Context, lookup types.CityLookup) (*types.CityRef, error) {
	name := strings.TrimSpace(lookup.Name)
	state := strings.TrimSpace(lookup.State)
	country := strings.TrimSpace(lookup.Country)

	ctx, span := otel.Tracer("CityRepository").Start(ctx, "GetOrCreate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "cities"),
		attribute.String("city.name", name),
		attribute.String("city.country", country),
	))
	defer span.End()

	if name == "" {
		span.SetStatus(codes.Error, "empty city name")
		return nil, types.NewInvalidRequest("city name is required")
	}

	// get_or_create_city is the only write path for cities; calling it in FROM
	// evaluates it once.
	query := `
		SELECT c.id, c.name, c.state, c.country, c.lat, c.lng
		FROM get_or_create_city($1, $2, $3, $4, $5) AS r(id)
		JOIN cities c ON c.id = r.id`

	var city types.CityRef
	err := r.db.QueryRow(ctx, query, name, state, country, lookup.Lat, lookup.Lng).Scan(
		&city.ID, &city.Name, &city.State, &city.Country, &city.Lat, &city.Lng,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "city resolution failed")
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("city %q was not resolved: %w", name, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve city %q: %w", name, err)
	}

	r.logger.DebugContext(ctx, "City resolved",
		slog.String("cityID", city.ID.String()),
		slog.String("name", city.Name))
	span.SetAttributes(attribute.String("city.id", city.ID.String()))
	span.SetStatus(codes.Ok, "city resolved")
	return &city, nil
}
