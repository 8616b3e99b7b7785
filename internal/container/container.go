package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-place-enrichment/app/db"
	"github.com/FACorreiaa/go-place-enrichment/config"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/auth"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/city"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/enrichment"
	generativeAI "github.com/FACorreiaa/go-place-enrichment/internal/api/generative_ai"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/places"
	"github.com/FACorreiaa/go-place-enrichment/internal/api/poi"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *slog.Logger
	Pool              *pgxpool.Pool
	ServicePool       *pgxpool.Pool
	EnrichmentHandler *enrichment.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		Pool:   pool,
	}

	// Profile reads fall back to the privileged connection when one is configured.
	var fallback auth.Repository
	if dsn := cfg.Repositories.Postgres.ServiceDSN; dsn != "" {
		servicePool, err := database.Init(dsn, logger)
		if err != nil {
			logger.Error("Failed to initialize service database pool", slog.Any("error", err))
			c.Close()
			return nil, err
		}
		c.ServicePool = servicePool
		fallback = auth.NewRepository(servicePool, logger)
	} else {
		logger.Warn("No service DSN configured, profile reads have no fallback")
	}

	authRepo := auth.NewRepository(pool, logger)
	guard := auth.NewGuard(authRepo, fallback, cfg.Auth.JWT, logger)

	cityRepo := city.NewCityRepository(pool, logger)
	poiRepo := poi.NewPOIRepository(pool, logger)

	var describer enrichment.DescriptionSource
	if cfg.Enrichment.Configured() && cfg.Places.Configured() {
		generator, err := generativeAI.NewGenerator(ctx, cfg.Enrichment, logger)
		if err != nil {
			logger.Error("Failed to initialize AI generator", slog.Any("error", err))
			c.Close()
			return nil, err
		}
		describer = enrichment.NewDescriber(places.NewClient(cfg.Places, logger), generator, logger)
		logger.Info("Description generation enabled", slog.String("provider", cfg.Enrichment.Provider))
	} else {
		logger.Warn("AI or places credential missing, description generation disabled")
	}

	importService := enrichment.NewImportService(guard, poiRepo, cityRepo, describer, logger)
	descriptionService := enrichment.NewDescriptionService(guard, poiRepo, describer, logger)
	c.EnrichmentHandler = enrichment.NewHandler(importService, descriptionService, logger)

	return c, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.ServicePool != nil {
		c.ServicePool.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
