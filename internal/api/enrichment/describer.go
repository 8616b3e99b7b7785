package enrichment

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-place-enrichment/internal/api/generative_ai"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/places"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

// Describer runs fetch, prompt, generate and normalize for one external place.
type Describer struct {
	logger    *slog.Logger
	fetcher   places.ContextFetcher
	generator generativeAI.Generator
}

func NewDescriber(fetcher places.ContextFetcher, generator generativeAI.Generator, logger *slog.Logger) *Describer {
	return &Describer{
		logger:    logger,
		fetcher:   fetcher,
		generator: generator,
	}
}

// Describe returns a normalized description. Errors from the places client
// and the generator are returned unchanged.
func (d *Describer) Describe(ctx context.Context, externalPlaceID string) (string, error) {
	ctx, span := otel.Tracer("Describer").Start(ctx, "Describe", trace.WithAttributes(
		attribute.String("place.external_id", externalPlaceID),
	))
	defer span.End()
	l := d.logger.With(slog.String("method", "Describe"), slog.String("externalPlaceID", externalPlaceID))

	aiCtx, err := d.fetcher.FetchContext(ctx, externalPlaceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context fetch failed")
		return "", err
	}

	prompt := BuildPrompt(*aiCtx)
	raw, err := d.generator.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err
	}

	description := Normalize(raw)
	if description == "" {
		span.SetStatus(codes.Error, "empty after normalization")
		return "", &types.EnrichmentError{
			Kind:    types.EnrichmentEmptyResponse,
			Message: "generated text was empty after content filtering",
		}
	}

	l.DebugContext(ctx, "Description generated", slog.Int("length", len(description)))
	span.SetStatus(codes.Ok, "description generated")
	return description, nil
}
