package generativeAI

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-place-enrichment/config"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

var _ Generator = (*OpenAIInvoker)(nil)

// OpenAIInvoker calls an OpenAI-compatible chat completions endpoint.
type OpenAIInvoker struct {
	logger      *slog.Logger
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	timeout     time.Duration
}

func NewOpenAIInvoker(cfg config.EnrichmentConfig, logger *slog.Logger) *OpenAIInvoker {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIInvoker{
		logger:      logger,
		httpClient:  &http.Client{},
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     baseURL,
		temperature: temperatureOrDefault(cfg.Temperature),
		timeout:     timeoutOrDefault(cfg.Timeout),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type vendorErrorEnvelope struct {
	Error *struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// Generate issues one chat completion request bounded by the configured timeout.
func (o *OpenAIInvoker) Generate(ctx context.Context, prompt types.Prompt) (text string, err error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "OpenAIInvoker.Generate", trace.WithAttributes(
		attribute.String("model", o.model),
		attribute.Int("prompt.length", len(prompt.System)+len(prompt.User)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observe(ctx, ProviderOpenAI, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			return
		}
		span.SetAttributes(attribute.Int("response.length", len(text)))
		span.SetStatus(codes.Ok, "content generated")
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	})
	if err != nil {
		return "", &types.EnrichmentError{Kind: types.EnrichmentUpstreamError, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &types.EnrichmentError{Kind: types.EnrichmentUpstreamError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			o.logger.WarnContext(ctx, "Generation timed out", slog.Duration("timeout", o.timeout))
			return "", timeoutError(o.timeout)
		}
		return "", &types.EnrichmentError{
			Kind:    types.EnrichmentUpstreamError,
			Message: fmt.Sprintf("generation request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", timeoutError(o.timeout)
		}
		return "", &types.EnrichmentError{
			Kind:       types.EnrichmentUpstreamError,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read generation response: %v", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ee := classifyOpenAIError(resp.StatusCode, body)
		o.logger.WarnContext(ctx, "Generation request rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("kind", string(ee.Kind)),
			slog.String("vendorCode", ee.VendorCode))
		return "", ee
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &types.EnrichmentError{
			Kind:       types.EnrichmentMalformedResponse,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected generation response: %v", err),
			Raw:        truncateRaw(string(body)),
		}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil ||
		strings.TrimSpace(*parsed.Choices[0].Message.Content) == "" {
		return "", &types.EnrichmentError{
			Kind:       types.EnrichmentEmptyResponse,
			HTTPStatus: resp.StatusCode,
			Message:    "generation returned no text",
		}
	}
	return strings.TrimSpace(*parsed.Choices[0].Message.Content), nil
}

// classifyOpenAIError maps a non-success response onto an EnrichmentError.
func classifyOpenAIError(status int, body []byte) *types.EnrichmentError {
	ee := &types.EnrichmentError{
		Kind:       types.EnrichmentUpstreamError,
		HTTPStatus: status,
		Message:    fmt.Sprintf("generation failed with status %d", status),
		Raw:        truncateRaw(string(body)),
	}

	var envelope vendorErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if envelope.Error.Message != "" {
			ee.Message = envelope.Error.Message
		}
		ee.VendorCode = vendorCode(envelope.Error.Code)
		if ee.VendorCode == "" {
			ee.VendorCode = envelope.Error.Type
		}
	}

	switch {
	case ee.VendorCode == "insufficient_quota":
		ee.Kind = types.EnrichmentQuotaExceeded
	case ee.VendorCode == "rate_limit_exceeded" || status == http.StatusTooManyRequests:
		ee.Kind = types.EnrichmentRateLimited
	case ee.VendorCode == "invalid_api_key":
		ee.Kind = types.EnrichmentInvalidCredential
	}
	return ee
}

// vendorCode reads error.code, which vendors send as a string, number or null.
func vendorCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
