package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-enrichment/internal/api/auth"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/poi"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

var _ DescriptionService = (*DescriptionServiceImpl)(nil)

type DescriptionService interface {
	GenerateDescription(ctx context.Context, req types.GenerateDescriptionRequest) (*types.GenerateDescriptionResult, error)
}

type DescriptionServiceImpl struct {
	logger    *slog.Logger
	guard     auth.Guard
	places    poi.POIRepository
	describer DescriptionSource
}

func NewDescriptionService(guard auth.Guard, places poi.POIRepository, describer DescriptionSource, logger *slog.Logger) *DescriptionServiceImpl {
	return &DescriptionServiceImpl{
		logger:    logger,
		guard:     guard,
		places:    places,
		describer: describer,
	}
}

// GenerateDescription generates a description synchronously and, when
// req.Save is set, stores it on the place named by req.PlaceID.
func (s *DescriptionServiceImpl) GenerateDescription(ctx context.Context, req types.GenerateDescriptionRequest) (*types.GenerateDescriptionResult, error) {
	ctx, span := otel.Tracer("DescriptionService").Start(ctx, "GenerateDescription", trace.WithAttributes(
		attribute.String("place.id", req.PlaceID),
		attribute.String("place.external_id", req.ExternalPlaceID),
		attribute.Bool("save", req.Save),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "GenerateDescription"))

	fail := func(err error, msg string) (*types.GenerateDescriptionResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return nil, err
	}

	identity, profile, err := authorize(ctx, s.guard, req.Credential)
	if err != nil {
		l.InfoContext(ctx, "Generation rejected at authorization", slog.Any("error", err))
		return fail(err, "unauthorized")
	}
	l = l.With(slog.String("userID", identity.ID.String()))

	placeIDRaw := strings.TrimSpace(req.PlaceID)
	externalID := strings.TrimSpace(req.ExternalPlaceID)
	if placeIDRaw == "" && externalID == "" {
		return fail(types.NewInvalidRequest("placeId or externalPlaceId is required"), "invalid request")
	}
	if req.Save && placeIDRaw == "" {
		return fail(types.NewInvalidRequest("placeId is required to save the description"), "invalid request")
	}

	var place *types.PlaceRecord
	if placeIDRaw != "" {
		place, err = loadMutableTarget(ctx, s.places, placeIDRaw, identity, profile)
		if err != nil {
			l.InfoContext(ctx, "Generation target rejected", slog.Any("error", err))
			return fail(err, "target rejected")
		}
		if externalID == "" && place.ExternalPlaceID != nil {
			externalID = strings.TrimSpace(*place.ExternalPlaceID)
		}
		if externalID == "" {
			return fail(types.NewInvalidRequest("place %s has no externalPlaceId", place.ID), "invalid request")
		}
	}

	if s.describer == nil {
		return fail(types.ErrEnrichmentNotConfigured, "not configured")
	}

	description, err := s.describer.Describe(ctx, externalID)
	if err != nil {
		l.WarnContext(ctx, "Description generation failed", slog.Any("error", err))
		return fail(err, "generation failed")
	}

	result := &types.GenerateDescriptionResult{
		ExternalPlaceID: externalID,
		Description:     description,
	}
	if place != nil {
		result.PlaceID = &place.ID
	}

	if req.Save {
		err := s.places.UpdatePlace(ctx, place.ID, types.UpdatePlaceParams{Description: &description})
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return fail(types.ErrTargetNotFound, "target vanished")
			}
			l.ErrorContext(ctx, "Failed to save description", slog.Any("error", err))
			return fail(fmt.Errorf("failed to save description: %w", err), "save failed")
		}
		result.Saved = true
	}

	l.InfoContext(ctx, "Description generated", slog.Bool("saved", result.Saved))
	span.SetStatus(codes.Ok, "description generated")
	return result, nil
}
