package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-place-enrichment/internal/api/enrichment"
)

// Config contains dependencies needed for the router setup
type Config struct {
	EnrichmentHandler *enrichment.Handler
	AllowedOrigins    []string
}

// SetupRouter initializes the application routes.
// Server-wide middleware (request ID, logger, recoverer) is applied in main.go
// before this router is mounted.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Both routes authenticate from the request itself: the bearer header
		// or the credential field of the body.
		r.Route("/enrich", func(r chi.Router) {
			r.Post("/import", cfg.EnrichmentHandler.Import)
			r.Post("/generate-description", cfg.EnrichmentHandler.GenerateDescription)
		})
	})

	return r
}
