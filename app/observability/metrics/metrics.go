package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	GenerationsTotal          metric.Int64Counter
	GenerationDurationSeconds metric.Float64Histogram
	ImportsTotal              metric.Int64Counter
	ContextCacheHitsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments once, from the
// globally configured MeterProvider (a no-op provider if none was installed).
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("PlaceEnrichment")
		var err error
		m := &AppMetrics{}

		m.GenerationsTotal, err = meter.Int64Counter(
			"enrichment_generations_total",
			metric.WithDescription("Description generations by outcome"),
			metric.WithUnit("{generation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create enrichment_generations_total: %v", err)
		}

		m.GenerationDurationSeconds, err = meter.Float64Histogram(
			"enrichment_generation_duration_seconds",
			metric.WithDescription("Duration of generation calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create enrichment_generation_duration_seconds: %v", err)
		}

		m.ImportsTotal, err = meter.Int64Counter(
			"place_imports_total",
			metric.WithDescription("Place imports by result"),
			metric.WithUnit("{import}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create place_imports_total: %v", err)
		}

		m.ContextCacheHitsTotal, err = meter.Int64Counter(
			"place_context_cache_hits_total",
			metric.WithDescription("Place context lookups served from cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create place_context_cache_hits_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the global AppMetrics, initializing it against the current
// MeterProvider on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
