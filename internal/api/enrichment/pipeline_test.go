package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-place-enrichment/config"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/auth"
	generativeAI "github.com/FACorreiaa/go-place-enrichment/internal/api/generative_ai"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/places"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

// staticAuthRepository serves a fixed set of users and profiles.
type staticAuthRepository struct {
	identities map[uuid.UUID]types.Identity
	profiles   map[uuid.UUID]types.Profile
}

func (s *staticAuthRepository) GetIdentity(_ context.Context, userID uuid.UUID) (*types.Identity, error) {
	identity, ok := s.identities[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &identity, nil
}

func (s *staticAuthRepository) GetProfile(_ context.Context, userID uuid.UUID) (*types.Profile, error) {
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

const pipelineGeneratedText = "Sunset Deck sits right on the water. " +
	"The bar pours cold drinks as the sky turns orange 🌅. " +
	"Book at https://booking.example.com/sunset for the best seats. " +
	"Seafood plates are simple and fresh. " +
	"Staff keep things relaxed. " +
	"Weekends get crowded after six. " +
	"Parking is limited so plan ahead."

func TestPipeline_ImportWithEnrichment(t *testing.T) {
	jwtCfg := config.JWTConfig{SecretKey: "pipeline-secret", Issuer: "places-app", Audience: "authenticated"}
	userID := uuid.New()
	authRepo := &staticAuthRepository{
		identities: map[uuid.UUID]types.Identity{userID: {ID: userID, Email: "owner@example.com"}},
		profiles:   map[uuid.UUID]types.Profile{userID: {UserID: userID, SubscriptionStatus: strPtr("active")}},
	}

	placesServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/ext-123", r.URL.Path)
		assert.Equal(t, "places-key", r.Header.Get("X-Goog-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "ext-123",
			"displayName": {"text": "Sunset Deck"},
			"types": ["bar", "restaurant"],
			"formattedAddress": "1 Ocean Dr, Key Largo, FL",
			"rating": 4.6,
			"userRatingCount": 812,
			"reviews": [{"text": {"text": "Best sunset in town!"}}]
		}`)
	}))
	defer placesServer.Close()

	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ai-key", r.Header.Get("Authorization"))
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Messages, 2) {
			assert.Contains(t, body.Messages[1].Content, "Place name: Sunset Deck")
		}
		content, _ := json.Marshal(pipelineGeneratedText)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%s}}]}`, content)
	}))
	defer aiServer.Close()

	logger := discardLogger()
	store := newMemoryPlaces()
	guard := auth.NewGuard(authRepo, nil, jwtCfg, logger)
	fetcher := places.NewClient(config.PlacesConfig{APIKey: "places-key", BaseURL: placesServer.URL, Timeout: 5 * time.Second}, logger)
	generator := generativeAI.NewOpenAIInvoker(config.EnrichmentConfig{
		Provider: "openai", APIKey: "ai-key", Model: "gpt-4o-mini", BaseURL: aiServer.URL, Timeout: 5 * time.Second,
	}, logger)
	describer := NewDescriber(fetcher, generator, logger)
	handler := NewHandler(
		NewImportService(guard, store, newMemoryCities(), describer, logger),
		NewDescriptionService(guard, store, describer, logger),
		logger,
	)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{jwtCfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}).SignedString([]byte(jwtCfg.SecretKey))
	require.NoError(t, err)

	body := `{"externalPlaceId":"ext-123","selectedFields":{"title":true,"titleData":"Sunset Deck","lat":25.1,"lng":-80.2}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enrich/import", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.Import(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result types.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Created)
	assert.True(t, result.Enriched)

	stored := store.place(result.PlaceID)
	assert.Equal(t, "Sunset Deck", stored.Title)
	assert.Equal(t, userID, stored.OwnerID)
	require.NotNil(t, stored.Lat)
	assert.Equal(t, 25.1, *stored.Lat)
	require.NotNil(t, stored.Description)

	description := *stored.Description
	sentences := splitSentences(description)
	assert.GreaterOrEqual(t, len(sentences), 3)
	assert.LessOrEqual(t, len(sentences), 5)
	assert.NotRegexp(t, regexp.MustCompile(`https?://|www\.`), description)
	assert.NotContains(t, description, "🌅")
	assert.Equal(t, description, Normalize(description))

	t.Run("second import of the same place is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/enrich/import", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.Import(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, result.PlaceID.String(), decodeEnvelope(t, rec).ExistingPlaceID)
		assert.Equal(t, 1, store.count())
	})

	t.Run("unsigned credential is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/enrich/import", strings.NewReader(`{"externalPlaceId":"ext-999"}`))
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler.Import(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
