package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-place-enrichment/config"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

const defaultGeminiModel = "gemini-2.0-flash"

var _ Generator = (*GeminiInvoker)(nil)

// GeminiInvoker generates text through the Gemini API.
type GeminiInvoker struct {
	logger      *slog.Logger
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func NewGeminiInvoker(ctx context.Context, cfg config.EnrichmentConfig, logger *slog.Logger) (*GeminiInvoker, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewGeminiInvoker")
	defer span.End()

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" && !strings.Contains(cfg.BaseURL, "openai.com") {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultGeminiModel
	}
	span.SetStatus(codes.Ok, "Gemini client created")
	return &GeminiInvoker{
		logger:      logger,
		client:      client,
		model:       model,
		temperature: temperatureOrDefault(cfg.Temperature),
		timeout:     timeoutOrDefault(cfg.Timeout),
	}, nil
}

func (g *GeminiInvoker) Generate(ctx context.Context, prompt types.Prompt) (text string, err error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GeminiInvoker.Generate", trace.WithAttributes(
		attribute.String("model", g.model),
		attribute.Int("prompt.length", len(prompt.System)+len(prompt.User)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observe(ctx, ProviderGemini, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			return
		}
		span.SetStatus(codes.Ok, "content generated")
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}},
		Temperature:       genai.Ptr(g.temperature),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), genCfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.logger.WarnContext(ctx, "Generation timed out", slog.Duration("timeout", g.timeout))
			return "", timeoutError(g.timeout)
		}
		ee := classifyGeminiError(err)
		g.logger.WarnContext(ctx, "Generation request rejected",
			slog.Int("status", ee.HTTPStatus),
			slog.String("kind", string(ee.Kind)))
		return "", ee
	}

	text = responseText(result)
	if text == "" {
		return "", &types.EnrichmentError{
			Kind:       types.EnrichmentEmptyResponse,
			HTTPStatus: http.StatusOK,
			Message:    "generation returned no text",
		}
	}
	return text, nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	return strings.TrimSpace(result.Text())
}

// classifyGeminiError maps Gemini API failures onto the shared error kinds.
func classifyGeminiError(err error) *types.EnrichmentError {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return &types.EnrichmentError{
			Kind:    types.EnrichmentUpstreamError,
			Message: err.Error(),
			Raw:     truncateRaw(err.Error()),
		}
	}

	ee := &types.EnrichmentError{
		Kind:       types.EnrichmentUpstreamError,
		HTTPStatus: apiErr.Code,
		Message:    apiErr.Message,
		VendorCode: apiErr.Status,
		Raw:        truncateRaw(err.Error()),
	}
	msg := strings.ToLower(apiErr.Message)
	exhausted := apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	switch {
	case exhausted && dailyQuotaViolated(apiErr.Details):
		ee.Kind = types.EnrichmentQuotaExceeded
	case exhausted:
		// Per-minute limits also say "quota" in the message; only a violated
		// daily quota is treated as exhausted billing.
		ee.Kind = types.EnrichmentRateLimited
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden ||
		strings.Contains(msg, "api key not valid") || strings.Contains(msg, "api_key_invalid"):
		ee.Kind = types.EnrichmentInvalidCredential
	}
	return ee
}

// dailyQuotaViolated reports whether a google.rpc.QuotaFailure detail names a
// per-day quota, e.g. GenerateRequestsPerDayPerProjectPerModel-FreeTier.
func dailyQuotaViolated(details []map[string]any) bool {
	for _, detail := range details {
		if t, _ := detail["@type"].(string); !strings.HasSuffix(t, "google.rpc.QuotaFailure") {
			continue
		}
		violations, _ := detail["violations"].([]any)
		for _, v := range violations {
			violation, ok := v.(map[string]any)
			if !ok {
				continue
			}
			for _, key := range []string{"quotaId", "quotaMetric"} {
				if name, _ := violation[key].(string); strings.Contains(strings.ToLower(name), "perday") {
					return true
				}
			}
		}
	}
	return false
}
