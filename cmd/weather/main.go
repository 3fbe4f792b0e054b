// Command weather acquires a daily weather summary for every county centroid
// in a boundary GeoJSON, fanning independent fetches across a bounded worker
// pool.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/tillfield/county-feature-etl/internal/adapter/http"
	"github.com/tillfield/county-feature-etl/internal/adapter/power"
	"github.com/tillfield/county-feature-etl/internal/cache"
	"github.com/tillfield/county-feature-etl/internal/config"
	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/fetch"
	"github.com/tillfield/county-feature-etl/internal/observability"
	"github.com/tillfield/county-feature-etl/internal/regions"
)

func main() {
	geojsonPath := flag.String("geojson", "", "county boundaries GeoJSON file (required)")
	outPath := flag.String("out", "weather.csv", "weather summary CSV output")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if *geojsonPath == "" {
		logger.Error("missing required -geojson flag")
		os.Exit(2)
	}

	if err := run(cfg, logger, *geojsonPath, *outPath); err != nil {
		logger.Error("weather run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, geojsonPath, outPath string) error {
	counties, err := regions.Load(geojsonPath)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	tracker := observability.NewRunTracker(metrics)
	defer tracker.Finish()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.MetricsEnabled {
		srv = httpadapter.NewServer(cfg.HTTPAddr, tracker, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer shutdownServer(srv, logger)
	}

	client := power.NewClient(cfg.PowerBaseURL, cfg.WeatherStart, cfg.WeatherEnd,
		cfg.WeatherTimeout, logger, metrics)

	logger.Info("weather run starting",
		"counties", len(counties),
		"workers", cfg.WeatherWorkers,
		"start", cfg.WeatherStart,
		"end", cfg.WeatherEnd,
	)

	// Weather calls are independent and idempotent; failures degrade to the
	// all-zero summary rather than being retried, matching the upstream
	// zero-fallback convention for this source.
	worker := func(ctx context.Context, key domain.Coordinate) domain.AttributeVector {
		defer tracker.Step()
		vec, err := client.Fetch(ctx, key)
		if err != nil {
			logger.Warn("weather fetch failed", "lat", key.Lat, "lon", key.Lon, "error", err)
			return power.ZeroSummary()
		}
		return vec
	}

	summaries := fetch.MapOrdered(ctx, domain.Centroids(counties), cfg.WeatherWorkers, worker)

	records := make([]domain.RegionRecord, len(counties))
	for i, county := range counties {
		vec := summaries[i]
		if vec == nil {
			// Not dispatched before cancellation.
			vec = power.ZeroSummary()
		}
		records[i] = domain.RegionRecord{Key: county.Centroid, Values: vec}
	}

	store := cache.NewStore(outPath, power.SummaryFields, logger)
	if err := store.Save(records); err != nil {
		return err
	}
	logger.Info("weather summary written", "path", outPath, "rows", len(records))
	return nil
}

func shutdownServer(srv *httpadapter.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
