package poi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-place-enrichment/app/db"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

var _ POIRepository = (*PostgresPOIRepository)(nil)

type POIRepository interface {
	GetPlace(ctx context.Context, placeID uuid.UUID) (*types.PlaceRecord, error)
	// FindByExternalID returns (nil, nil) when no other place references externalPlaceID.
	FindByExternalID(ctx context.Context, externalPlaceID string, exclude *uuid.UUID) (*types.PlaceSummary, error)
	CreatePlace(ctx context.Context, params types.NewPlaceParams) (uuid.UUID, error)
	UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error
	// ReplacePhotos writes urls as the ordered photo set of the place and syncs its cover image.
	ReplacePhotos(ctx context.Context, placeID, uploaderID uuid.UUID, urls []string, clearExisting bool) ([]types.PhotoRecord, error)
}

type PostgresPOIRepository struct {
	logger *slog.Logger
	db     database.DB
}

func NewPOIRepository(db database.DB, logger *slog.Logger) *PostgresPOIRepository {
	return &PostgresPOIRepository{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresPOIRepository) GetPlace(ctx context.Context, placeID uuid.UUID) (*types.PlaceRecord, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "GetPlace", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "places"),
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()

	query := `
		SELECT id, title, description, address, external_place_id, lat, lng,
		       city_id, city, owner_id, link, cover_image_url, created_at, updated_at
		FROM places
		WHERE id = $1`

	var p types.PlaceRecord
	err := r.db.QueryRow(ctx, query, placeID).Scan(
		&p.ID, &p.Title, &p.Description, &p.Address, &p.ExternalPlaceID, &p.Lat, &p.Lng,
		&p.CityID, &p.CityName, &p.OwnerID, &p.Link, &p.CoverImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "place not found")
			return nil, fmt.Errorf("place %s: %w", placeID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to load place %s: %w", placeID, err)
	}
	return &p, nil
}

func (r *PostgresPOIRepository) FindByExternalID(ctx context.Context, externalPlaceID string, exclude *uuid.UUID) (*types.PlaceSummary, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "FindByExternalID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "places"),
		attribute.String("place.external_id", externalPlaceID),
	))
	defer span.End()

	query := `
		SELECT id, title
		FROM places
		WHERE external_place_id = $1 AND ($2::uuid IS NULL OR id <> $2)
		ORDER BY created_at ASC
		LIMIT 1`

	var summary types.PlaceSummary
	err := r.db.QueryRow(ctx, query, externalPlaceID, exclude).Scan(&summary.ID, &summary.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to look up external place %s: %w", externalPlaceID, err)
	}
	span.SetAttributes(attribute.String("place.existing_id", summary.ID.String()))
	return &summary, nil
}

const (
	insertPlaceWithStatus = `
		INSERT INTO places (title, description, address, external_place_id, lat, lng, city_id, city, owner_id, link, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'published')
		RETURNING id`
	insertPlace = `
		INSERT INTO places (title, description, address, external_place_id, lat, lng, city_id, city, owner_id, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
)

func (r *PostgresPOIRepository) CreatePlace(ctx context.Context, params types.NewPlaceParams) (uuid.UUID, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "CreatePlace", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "places"),
		attribute.String("place.external_id", params.ExternalPlaceID),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "CreatePlace"), slog.String("externalPlaceID", params.ExternalPlaceID))

	args := []any{
		params.Title, params.Description, params.Address, params.ExternalPlaceID,
		params.Lat, params.Lng, params.CityID, params.CityName, params.OwnerID, params.Link,
	}

	var id uuid.UUID
	err := r.db.QueryRow(ctx, insertPlaceWithStatus, args...).Scan(&id)
	if database.IsPgError(err, database.PgUndefinedColumn) {
		// Older schemas have no status column.
		l.WarnContext(ctx, "places.status column missing, retrying insert without it")
		err = r.db.QueryRow(ctx, insertPlace, args...).Scan(&id)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if database.IsPgError(err, database.PgUniqueViolation) {
			return uuid.Nil, fmt.Errorf("external place %s: %w", params.ExternalPlaceID, types.ErrDuplicatePlace)
		}
		return uuid.Nil, fmt.Errorf("failed to insert place: %w", err)
	}

	l.InfoContext(ctx, "Place created", slog.String("placeID", id.String()))
	span.SetAttributes(attribute.String("place.id", id.String()))
	span.SetStatus(codes.Ok, "place created")
	return id, nil
}

func (r *PostgresPOIRepository) UpdatePlace(ctx context.Context, placeID uuid.UUID, params types.UpdatePlaceParams) error {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "UpdatePlace", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "places"),
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "UpdatePlace"), slog.String("placeID", placeID.String()))

	if params.IsEmpty() {
		l.DebugContext(ctx, "UpdatePlace called with no fields to update")
		span.SetStatus(codes.Ok, "no update fields")
		return nil
	}

	var setClauses []string
	var args []any
	argID := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
		span.SetAttributes(attribute.Bool("update."+column, true))
	}
	if params.Title != nil {
		set("title", *params.Title)
	}
	if params.Description != nil {
		set("description", *params.Description)
	}
	if params.Address != nil {
		set("address", *params.Address)
	}
	if params.ExternalPlaceID != nil {
		set("external_place_id", *params.ExternalPlaceID)
	}
	if params.Lat != nil {
		set("lat", *params.Lat)
	}
	if params.Lng != nil {
		set("lng", *params.Lng)
	}
	if params.Link != nil {
		set("link", *params.Link)
	}
	if params.CityID != nil {
		set("city_id", *params.CityID)
	}
	if params.CityName != nil {
		set("city", *params.CityName)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, placeID)

	query := fmt.Sprintf("UPDATE places SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argID)
	l.DebugContext(ctx, "Executing dynamic update query", slog.String("query", query), slog.Int("arg_count", len(args)))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		if database.IsPgError(err, database.PgUniqueViolation) {
			return fmt.Errorf("place %s: %w", placeID, types.ErrDuplicatePlace)
		}
		return fmt.Errorf("failed to update place %s: %w", placeID, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "place not found")
		return fmt.Errorf("place %s: %w", placeID, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "place updated")
	return nil
}

func (r *PostgresPOIRepository) ReplacePhotos(ctx context.Context, placeID, uploaderID uuid.UUID, urls []string, clearExisting bool) ([]types.PhotoRecord, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "ReplacePhotos", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "place_photos"),
		attribute.String("place.id", placeID.String()),
		attribute.Int("photos.count", len(urls)),
		attribute.Bool("photos.clear_existing", clearExisting),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "ReplacePhotos"), slog.String("placeID", placeID.String()))

	if len(urls) == 0 {
		return nil, nil
	}

	if clearExisting {
		if _, err := r.db.Exec(ctx, `DELETE FROM place_photos WHERE place_id = $1`, placeID); err != nil {
			l.WarnContext(ctx, "Failed to delete existing photos, continuing with insert", slog.Any("error", err))
			span.RecordError(err)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertPhoto := `
		INSERT INTO place_photos (place_id, uploader_id, url, sort_index, is_cover)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (place_id, sort_index)
		DO UPDATE SET url = EXCLUDED.url, uploader_id = EXCLUDED.uploader_id, is_cover = EXCLUDED.is_cover
		RETURNING id`

	photos := make([]types.PhotoRecord, 0, len(urls))
	for i, url := range urls {
		photo := types.PhotoRecord{
			PlaceID:    placeID,
			UploaderID: uploaderID,
			URL:        url,
			SortIndex:  i,
			IsCover:    i == 0,
		}
		if err := tx.QueryRow(ctx, insertPhoto, placeID, uploaderID, url, i, i == 0).Scan(&photo.ID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "photo insert failed")
			return nil, fmt.Errorf("failed to insert photo %d: %w", i, err)
		}
		photos = append(photos, photo)
	}

	// Photos past the new set are stale when the delete above failed.
	if _, err := tx.Exec(ctx, `DELETE FROM place_photos WHERE place_id = $1 AND sort_index >= $2`, placeID, len(urls)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stale photo cleanup failed")
		return nil, fmt.Errorf("failed to remove stale photos: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE places SET cover_image_url = $1, updated_at = now() WHERE id = $2`, urls[0], placeID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cover update failed")
		return nil, fmt.Errorf("failed to sync cover image: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit photos: %w", err)
	}

	l.InfoContext(ctx, "Photos written", slog.Int("count", len(photos)))
	span.SetStatus(codes.Ok, "photos written")
	return photos, nil
}
