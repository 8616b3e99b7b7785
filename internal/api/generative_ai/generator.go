package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-place-enrichment/app/observability/metrics"
	"github.com/FACorreiaa/go-place-enrichment/config"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultTimeout     = 25 * time.Second
	DefaultTemperature = float32(0.7)
	maxRawLength       = 2000
)

// Generator turns a prompt into generated text. Failures are always
// *types.EnrichmentError.
type Generator interface {
	Generate(ctx context.Context, prompt types.Prompt) (string, error)
}

// NewGenerator builds the backend selected by enrichment.provider.
func NewGenerator(ctx context.Context, cfg config.EnrichmentConfig, logger *slog.Logger) (Generator, error) {
	if !cfg.Configured() {
		return nil, errors.New("enrichment API key is not configured")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIInvoker(cfg, logger), nil
	case ProviderGemini:
		return NewGeminiInvoker(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown enrichment provider %q", cfg.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

func temperatureOrDefault(t float32) float32 {
	if t <= 0 {
		return DefaultTemperature
	}
	return t
}

func truncateRaw(s string) string {
	runes := []rune(s)
	if len(runes) <= maxRawLength {
		return s
	}
	return string(runes[:maxRawLength])
}

func timeoutError(timeout time.Duration) *types.EnrichmentError {
	return &types.EnrichmentError{
		Kind:    types.EnrichmentTimeout,
		Message: fmt.Sprintf("generation did not complete within %s", timeout),
	}
}

// observe records the outcome and latency of one generation call.
func observe(ctx context.Context, provider string, start time.Time, err error) {
	outcome := "success"
	if ee, ok := types.AsEnrichmentError(err); ok {
		outcome = string(ee.Kind)
	} else if err != nil {
		outcome = "error"
	}
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("provider", provider), attribute.String("outcome", outcome))
	m.GenerationsTotal.Add(context.WithoutCancel(ctx), 1, attrs)
	m.GenerationDurationSeconds.Record(context.WithoutCancel(ctx), time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)))
}
