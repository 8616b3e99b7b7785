package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-place-enrichment/internal/api/enrichment"
	"github.com/FACorreiaa/go-place-enrichment/internal/types"
)

type stubImportService struct {
	calls int
}

func (s *stubImportService) Import(_ context.Context, _ types.ImportRequest) (*types.ImportResult, error) {
	s.calls++
	return nil, types.ErrUnauthorized
}

type stubDescriptionService struct {
	calls int
}

func (s *stubDescriptionService) GenerateDescription(_ context.Context, _ types.GenerateDescriptionRequest) (*types.GenerateDescriptionResult, error) {
	s.calls++
	return nil, types.ErrUnauthorized
}

func TestSetupRouter(t *testing.T) {
	importSvc := &stubImportService{}
	descSvc := &stubDescriptionService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := SetupRouter(&Config{EnrichmentHandler: enrichment.NewHandler(importSvc, descSvc, logger)})

	t.Run("ping", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pong", rec.Body.String())
	})

	t.Run("import route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/enrich/import", strings.NewReader(`{"externalPlaceId":"ext-1"}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, 1, importSvc.calls)
	})

	t.Run("generate description route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/enrich/generate-description", strings.NewReader(`{"externalPlaceId":"ext-1"}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, 1, descSvc.calls)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/enrich/import", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/enrich/import", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
