package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-place-enrichment/app/observability/metrics"
	"github.com/FACorreiaa/go-place-enrichment/config"
	"github.com/FACorreiaa/go-place-enrichment/internal/textutil"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

const (
	maxTypes           = 6
	maxReviewSnippets  = 3
	maxSnippetLength   = 240
	maxRating          = 5
	maxRawErrorLength  = 2000
	defaultTimeout     = 10 * time.Second
	defaultBaseURL     = "https://places.googleapis.com/v1"
	detailsFieldMask   = "id,displayName,types,formattedAddress,rating,userRatingCount,editorialSummary,reviews"
	cacheCleanupFactor = 2
)

var _ ContextFetcher = (*Client)(nil)

// ContextFetcher loads the AI context of an external place.
type ContextFetcher interface {
	FetchContext(ctx context.Context, externalPlaceID string) (*types.AiContext, error)
}

// Client talks to the Google Places (New) details endpoint.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	cfg        config.PlacesConfig
	cache      *cache.Cache
	group      singleflight.Group
}

func NewClient(cfg config.PlacesConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, cacheCleanupFactor*cfg.CacheTTL)
	}
	return c
}

// FetchContext returns the normalized context of externalPlaceID. Concurrent
// calls for the same id share one upstream request; results are cached for
// places.cacheTTL.
func (c *Client) FetchContext(ctx context.Context, externalPlaceID string) (*types.AiContext, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "FetchContext", trace.WithAttributes(
		attribute.String("place.external_id", externalPlaceID),
	))
	defer span.End()

	externalPlaceID = strings.TrimSpace(externalPlaceID)
	if externalPlaceID == "" {
		span.SetStatus(codes.Error, "empty external place id")
		return nil, types.NewInvalidRequest("externalPlaceId is required")
	}

	if c.cache != nil {
		if cached, found := c.cache.Get(externalPlaceID); found {
			metrics.Get().ContextCacheHitsTotal.Add(ctx, 1)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			aiCtx := cached.(types.AiContext)
			return &aiCtx, nil
		}
	}

	// The shared lookup is detached from the first caller so one caller going
	// away does not fail the others; the http client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(externalPlaceID, func() (interface{}, error) {
		aiCtx, err := c.fetch(fetchCtx, externalPlaceID)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Set(externalPlaceID, *aiCtx, cache.DefaultExpiration)
		}
		return *aiCtx, nil
	})

	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "caller gave up")
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "place lookup failed")
			return nil, res.Err
		}
		span.SetAttributes(attribute.Bool("singleflight.shared", res.Shared))
		span.SetStatus(codes.Ok, "place context fetched")

		aiCtx := res.Val.(types.AiContext)
		return &aiCtx, nil
	}
}

func (c *Client) fetch(ctx context.Context, externalPlaceID string) (*types.AiContext, error) {
	l := c.logger.With(slog.String("method", "FetchContext"), slog.String("externalPlaceID", externalPlaceID))

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/places/" + url.PathEscape(externalPlaceID)
	if c.cfg.LanguageCode != "" {
		endpoint += "?languageCode=" + url.QueryEscape(c.cfg.LanguageCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", detailsFieldMask)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.WarnContext(ctx, "Places request failed", slog.Any("error", err))
		return nil, &types.EnrichmentError{
			Kind:    types.EnrichmentUpstreamError,
			Message: fmt.Sprintf("places lookup failed: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.EnrichmentError{
			Kind:       types.EnrichmentUpstreamError,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read places response: %v", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.WarnContext(ctx, "Places lookup returned non-success status", slog.Int("status", resp.StatusCode))
		return nil, &types.EnrichmentError{
			Kind:       types.EnrichmentUpstreamError,
			HTTPStatus: resp.StatusCode,
			Message:    upstreamMessage(body, resp.StatusCode),
			Raw:        textutil.Truncate(string(body), maxRawErrorLength),
		}
	}

	aiCtx, err := parseDetails(body)
	if err != nil {
		l.WarnContext(ctx, "Places payload could not be parsed", slog.Any("error", err))
		return nil, &types.EnrichmentError{
			Kind:       types.EnrichmentMalformedResponse,
			HTTPStatus: resp.StatusCode,
			Message:    err.Error(),
			Raw:        textutil.Truncate(string(body), maxRawErrorLength),
		}
	}
	l.DebugContext(ctx, "Place context fetched",
		slog.Int("types", len(aiCtx.Types)),
		slog.Int("reviews", len(aiCtx.ReviewSnippets)))
	return aiCtx, nil
}

func upstreamMessage(body []byte, status int) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return fmt.Sprintf("places lookup returned status %d", status)
}

type placeDetails struct {
	DisplayName      json.RawMessage `json:"displayName"`
	Name             json.RawMessage `json:"name"`
	Types            []string        `json:"types"`
	FormattedAddress string          `json:"formattedAddress"`
	Rating           json.RawMessage `json:"rating"`
	UserRatingCount  json.RawMessage `json:"userRatingCount"`
	EditorialSummary json.RawMessage `json:"editorialSummary"`
	Reviews          []placeReview   `json:"reviews"`
}

type placeReview struct {
	Text         json.RawMessage `json:"text"`
	OriginalText json.RawMessage `json:"originalText"`
	Comment      json.RawMessage `json:"comment"`
}

func parseDetails(body []byte) (*types.AiContext, error) {
	var details placeDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("invalid places payload: %w", err)
	}

	name, err := localizedText(details.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("displayName: %w", err)
	}
	if name == "" {
		// v1 "name" is the resource path; legacy payloads carry the title there.
		if legacy, err := localizedText(details.Name); err == nil && !strings.HasPrefix(legacy, "places/") {
			name = legacy
		}
	}

	rating, err := ratingValue(details.Rating)
	if err != nil {
		return nil, fmt.Errorf("rating: %w", err)
	}
	ratingCount, err := countValue(details.UserRatingCount)
	if err != nil {
		return nil, fmt.Errorf("userRatingCount: %w", err)
	}
	summary, err := localizedText(details.EditorialSummary)
	if err != nil {
		return nil, fmt.Errorf("editorialSummary: %w", err)
	}

	aiCtx := &types.AiContext{
		Name:             strings.TrimSpace(name),
		FormattedAddress: strings.TrimSpace(details.FormattedAddress),
		Rating:           rating,
		RatingCount:      ratingCount,
		EditorialSummary: strings.TrimSpace(summary),
	}

	for _, t := range details.Types {
		if t = strings.TrimSpace(t); t != "" {
			aiCtx.Types = append(aiCtx.Types, t)
			if len(aiCtx.Types) == maxTypes {
				break
			}
		}
	}

	for _, review := range details.Reviews {
		snippet := reviewSnippet(review)
		if snippet == "" {
			continue
		}
		aiCtx.ReviewSnippets = append(aiCtx.ReviewSnippets, snippet)
		if len(aiCtx.ReviewSnippets) == maxReviewSnippets {
			break
		}
	}
	return aiCtx, nil
}

// reviewSnippet prefers the structured text over the original-language text.
func reviewSnippet(review placeReview) string {
	for _, raw := range []json.RawMessage{review.Text, review.OriginalText, review.Comment} {
		text, err := localizedText(raw)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		cleaned := textutil.Truncate(textutil.Clean(text), maxSnippetLength)
		if cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// localizedText accepts either a plain string or a {"text": "..."} object.
func localizedText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", errors.New("expected string or localized text object")
	}
	return obj.Text, nil
}

// flexibleFloat accepts a JSON number or a numeric string.
func flexibleFloat(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("expected number or numeric string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not numeric: %q", s)
	}
	// NaN and Inf parse without error but carry no information.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	return &f, nil
}

// ratingValue keeps ratings on the 0-5 scale; anything else is absent.
func ratingValue(raw json.RawMessage) (*float64, error) {
	f, err := flexibleFloat(raw)
	if err != nil || f == nil {
		return nil, err
	}
	if *f < 0 || *f > maxRating {
		return nil, nil
	}
	return f, nil
}

// countValue keeps non-negative counts that fit in an int32; anything else is absent.
func countValue(raw json.RawMessage) (*int, error) {
	f, err := flexibleFloat(raw)
	if err != nil || f == nil {
		return nil, err
	}
	if *f < 0 || *f > math.MaxInt32 {
		return nil, nil
	}
	n := int(*f)
	return &n, nil
}
