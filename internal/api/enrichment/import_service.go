package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-enrichment/app/observability/metrics"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/auth"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/city"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/poi"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

// PlaceholderTitle is stored when a created place has no selected title.
const PlaceholderTitle = "Untitled Place"

// DescriptionSource produces a description for an external place.
type DescriptionSource interface {
	Describe(ctx context.Context, externalPlaceID string) (string, error)
}

var _ ImportService = (*ImportServiceImpl)(nil)

type ImportService interface {
	Import(ctx context.Context, req types.ImportRequest) (*types.ImportResult, error)
}

type ImportServiceImpl struct {
	logger    *slog.Logger
	guard     auth.Guard
	places    poi.POIRepository
	cities    city.CityRepository
	describer DescriptionSource
}

// NewImportService wires the import flow. describer may be nil when the AI or
// places credential is missing; enrichment is then skipped.
func NewImportService(guard auth.Guard, places poi.POIRepository, cities city.CityRepository, describer DescriptionSource, logger *slog.Logger) *ImportServiceImpl {
	return &ImportServiceImpl{
		logger:    logger,
		guard:     guard,
		places:    places,
		cities:    cities,
		describer: describer,
	}
}

// authorize resolves the caller and checks the enrichment entitlement.
func authorize(ctx context.Context, guard auth.Guard, credential string) (*types.Identity, *types.Profile, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, nil, types.ErrUnauthorized
	}
	identity, err := guard.ResolveCaller(ctx, credential)
	if err != nil {
		return nil, nil, err
	}
	profile, err := guard.LoadProfile(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	if !auth.HasEnrichmentEntitlement(profile) {
		return nil, nil, types.ErrPremiumRequired
	}
	return identity, profile, nil
}

// loadMutableTarget fetches the place and checks the caller may change it.
func loadMutableTarget(ctx context.Context, repo poi.POIRepository, rawID string, identity *types.Identity, profile *types.Profile) (*types.PlaceRecord, error) {
	placeID, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, types.NewInvalidRequest("invalid place id %q", rawID)
	}
	place, err := repo.GetPlace(ctx, placeID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrTargetNotFound
		}
		return nil, err
	}
	if !auth.CanMutate(identity, profile, place.OwnerID) {
		return nil, types.ErrForbidden
	}
	return place, nil
}

func (s *ImportServiceImpl) Import(ctx context.Context, req types.ImportRequest) (result *types.ImportResult, err error) {
	ctx, span := otel.Tracer("ImportService").Start(ctx, "Import", trace.WithAttributes(
		attribute.String("place.external_id", req.ExternalPlaceID),
		attribute.Bool("import.has_target", req.TargetPlaceID != ""),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Import"), slog.String("externalPlaceID", req.ExternalPlaceID))

	defer func() {
		outcome := "failed"
		switch {
		case err == nil && result.Created:
			outcome = "created"
		case err == nil:
			outcome = "updated"
		case errors.Is(err, types.ErrDuplicatePlace):
			outcome = "duplicate"
		}
		metrics.Get().ImportsTotal.Add(context.WithoutCancel(ctx), 1,
			metric.WithAttributes(attribute.String("result", outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}()

	// Authenticating, Entitled
	identity, profile, err := authorize(ctx, s.guard, req.Credential)
	if err != nil {
		l.InfoContext(ctx, "Import rejected at authorization", slog.Any("error", err))
		return nil, err
	}
	l = l.With(slog.String("userID", identity.ID.String()))

	externalID := strings.TrimSpace(req.ExternalPlaceID)
	if externalID == "" {
		return nil, types.NewInvalidRequest("externalPlaceId is required")
	}

	// TargetResolved
	var target *types.PlaceRecord
	var exclude *uuid.UUID
	if strings.TrimSpace(req.TargetPlaceID) != "" {
		target, err = loadMutableTarget(ctx, s.places, req.TargetPlaceID, identity, profile)
		if err != nil {
			l.InfoContext(ctx, "Import target rejected", slog.Any("error", err))
			return nil, err
		}
		exclude = &target.ID
	}

	// DuplicateChecked
	if existing, err := s.places.FindByExternalID(ctx, externalID, exclude); err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	} else if existing != nil {
		l.InfoContext(ctx, "External place already imported", slog.String("existingID", existing.ID.String()))
		return nil, &types.DuplicatePlaceError{ExistingID: existing.ID, ExistingTitle: existing.Title}
	}

	// FieldsApplied
	fields := req.SelectedFields
	description := providedDescription(req)
	cityID, cityName := s.resolveCity(ctx, l, fields)

	var placeID uuid.UUID
	created := target == nil
	if created {
		title := PlaceholderTitle
		if t := selectedText(fields.Title, fields.TitleData); t != nil {
			title = *t
		}
		placeID, err = s.places.CreatePlace(ctx, types.NewPlaceParams{
			Title:           title,
			Description:     description,
			Address:         selectedText(fields.Address, fields.AddressData),
			ExternalPlaceID: externalID,
			Lat:             fields.Lat,
			Lng:             fields.Lng,
			Link:            optionalText(fields.Link),
			CityID:          cityID,
			CityName:        cityName,
			OwnerID:         identity.ID,
		})
	} else {
		placeID = target.ID
		err = s.places.UpdatePlace(ctx, placeID, types.UpdatePlaceParams{
			Title:           selectedText(fields.Title, fields.TitleData),
			Description:     description,
			Address:         selectedText(fields.Address, fields.AddressData),
			ExternalPlaceID: &externalID,
			Lat:             fields.Lat,
			Lng:             fields.Lng,
			Link:            optionalText(fields.Link),
			CityID:          cityID,
			CityName:        cityName,
		})
	}
	if err != nil {
		if errors.Is(err, types.ErrDuplicatePlace) {
			// Lost the race against a concurrent import of the same place.
			return nil, s.duplicateFor(ctx, externalID, exclude, err)
		}
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrTargetNotFound
		}
		l.ErrorContext(ctx, "Failed to write place", slog.Any("error", err))
		return nil, fmt.Errorf("failed to write place: %w", err)
	}
	span.SetAttributes(attribute.String("place.id", placeID.String()), attribute.Bool("import.created", created))

	// PhotosApplied
	if urls := photoURLs(fields.Photos); len(urls) > 0 {
		if _, err := s.places.ReplacePhotos(ctx, placeID, identity.ID, urls, !created); err != nil {
			l.WarnContext(ctx, "Photo replacement failed, import continues", slog.Any("error", err))
		}
	}

	// EnrichmentAttempted
	enriched := false
	if description == nil && s.describer != nil {
		enriched = s.enrich(ctx, l, placeID, externalID)
	}

	l.InfoContext(ctx, "Import completed",
		slog.String("placeID", placeID.String()),
		slog.Bool("created", created),
		slog.Bool("enriched", enriched))
	span.SetStatus(codes.Ok, "import completed")
	return &types.ImportResult{
		PlaceID:  placeID,
		Created:  created,
		Updated:  !created,
		Enriched: enriched,
	}, nil
}

// enrich writes a generated description. Failures are logged only: the
// import has already succeeded.
func (s *ImportServiceImpl) enrich(ctx context.Context, l *slog.Logger, placeID uuid.UUID, externalID string) bool {
	ctx = context.WithoutCancel(ctx)

	description, err := s.describer.Describe(ctx, externalID)
	if err != nil {
		l.WarnContext(ctx, "Best-effort enrichment failed", slog.Any("error", err))
		return false
	}
	if err := s.places.UpdatePlace(ctx, placeID, types.UpdatePlaceParams{Description: &description}); err != nil {
		l.WarnContext(ctx, "Failed to store generated description", slog.Any("error", err))
		return false
	}
	return true
}

// resolveCity returns the structured reference, or only the trimmed name when
// the resolver fails.
func (s *ImportServiceImpl) resolveCity(ctx context.Context, l *slog.Logger, fields types.SelectedFields) (*uuid.UUID, *string) {
	name := strings.TrimSpace(fields.City)
	if name == "" {
		return nil, nil
	}
	ref, err := s.cities.GetOrCreate(ctx, types.CityLookup{
		Name:    name,
		State:   fields.State,
		Country: fields.Country,
		Lat:     fields.Lat,
		Lng:     fields.Lng,
	})
	if err != nil {
		l.WarnContext(ctx, "City resolution failed, storing raw city name", slog.String("city", name), slog.Any("error", err))
		return nil, &name
	}
	return &ref.ID, &ref.Name
}

func (s *ImportServiceImpl) duplicateFor(ctx context.Context, externalID string, exclude *uuid.UUID, cause error) error {
	existing, err := s.places.FindByExternalID(ctx, externalID, exclude)
	if err != nil || existing == nil {
		return cause
	}
	return &types.DuplicatePlaceError{ExistingID: existing.ID, ExistingTitle: existing.Title}
}

// providedDescription returns direct input first, then selected import data.
func providedDescription(req types.ImportRequest) *string {
	if d := strings.TrimSpace(req.Description); d != "" {
		return &d
	}
	return selectedText(req.SelectedFields.Description, req.SelectedFields.DescriptionData)
}

func selectedText(selected bool, value string) *string {
	if !selected {
		return nil
	}
	return optionalText(value)
}

func optionalText(value string) *string {
	if v := strings.TrimSpace(value); v != "" {
		return &v
	}
	return nil
}

func photoURLs(photos []types.SelectedPhoto) []string {
	var urls []string
	for _, p := range photos {
		if u := strings.TrimSpace(p.URL); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
