package enrichment

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-enrichment/internal/api"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

type Handler struct {
	importService      ImportService
	descriptionService DescriptionService
	logger             *slog.Logger
}

func NewHandler(importService ImportService, descriptionService DescriptionService, logger *slog.Logger) *Handler {
	return &Handler{
		importService:      importService,
		descriptionService: descriptionService,
		logger:             logger,
	}
}

// credential prefers the Authorization header over the body field.
func credential(r *http.Request, fromBody string) string {
	if token, ok := api.BearerToken(r); ok {
		return token
	}
	return fromBody
}

// Import godoc
// @Summary      Import External Place
// @Description  Creates a place from external data, or merges it into targetPlaceId, then tries to generate a description.
// @Tags         Enrichment
// @Accept       json
// @Produce      json
// @Param        request body types.ImportRequest true "Import request"
// @Success      200 {object} types.ImportResult
// @Failure      400 {object} api.ErrorEnvelope "Invalid Input"
// @Failure      401 {object} api.ErrorEnvelope "Unauthorized"
// @Failure      403 {object} api.ErrorEnvelope "Forbidden or premium required"
// @Failure      404 {object} api.ErrorEnvelope "Target not found"
// @Failure      409 {object} api.ErrorEnvelope "Duplicate place"
// @Failure      500 {object} api.ErrorEnvelope "Internal Server Error"
// @Security     BearerAuth
// @Router       /enrich/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("EnrichmentHandler").Start(r.Context(), "Import", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/enrich/import"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Import"))

	var req types.ImportRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.WriteError(w, r, types.NewInvalidRequest("%s", err.Error()))
		return
	}
	req.Credential = credential(r, req.Credential)

	result, err := h.importService.Import(ctx, req)
	if err != nil {
		l.InfoContext(ctx, "Import failed", slog.Any("error", err))
		api.WriteError(w, r, err)
		return
	}

	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// GenerateDescription godoc
// @Summary      Generate Place Description
// @Description  Generates a description for a place and optionally saves it.
// @Tags         Enrichment
// @Accept       json
// @Produce      json
// @Param        request body types.GenerateDescriptionRequest true "Generation request"
// @Success      200 {object} types.GenerateDescriptionResult
// @Failure      400 {object} api.ErrorEnvelope "Invalid Input"
// @Failure      401 {object} api.ErrorEnvelope "Unauthorized or invalid AI credential"
// @Failure      402 {object} api.ErrorEnvelope "AI quota exhausted"
// @Failure      403 {object} api.ErrorEnvelope "Forbidden or premium required"
// @Failure      404 {object} api.ErrorEnvelope "Target not found"
// @Failure      429 {object} api.ErrorEnvelope "AI rate limited"
// @Failure      502 {object} api.ErrorEnvelope "AI upstream error"
// @Security     BearerAuth
// @Router       /enrich/generate-description [post]
func (h *Handler) GenerateDescription(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("EnrichmentHandler").Start(r.Context(), "GenerateDescription", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/enrich/generate-description"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GenerateDescription"))

	var req types.GenerateDescriptionRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.WriteError(w, r, types.NewInvalidRequest("%s", err.Error()))
		return
	}
	req.Credential = credential(r, req.Credential)

	result, err := h.descriptionService.GenerateDescription(ctx, req)
	if err != nil {
		l.InfoContext(ctx, "Description generation failed", slog.Any("error", err))
		api.WriteError(w, r, err)
		return
	}

	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}
