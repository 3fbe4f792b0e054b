// Command soil acquires soil properties for every county centroid in a
// boundary GeoJSON, reconciling against the durable soil cache so repeated
// runs only repair incomplete rows.
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
	"github.com/tillfield/county-feature-etl/internal/adapter/soilgrids"
	"github.com/tillfield/county-feature-etl/internal/cache"
	"github.com/tillfield/county-feature-etl/internal/config"
	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/fetch"
	"github.com/tillfield/county-feature-etl/internal/observability"
	"github.com/tillfield/county-feature-etl/internal/regions"
)

func main() {
	geojsonPath := flag.String("geojson", "", "county boundaries GeoJSON file (required)")
	cachePath := flag.String("cache", "soil.csv", "soil cache CSV, read and rewritten in place")
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

	if err := run(cfg, logger, *geojsonPath, *cachePath); err != nil {
		logger.Error("soil run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, geojsonPath, cachePath string) error {
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

	// One client, one pooled connection set, shared across the whole
	// sequential run and released on every exit path.
	client := soilgrids.NewClient(cfg.SoilGridsBaseURL, cfg.SoilTimeout, logger, metrics)
	defer client.Close()

	store := cache.NewStore(cachePath, domain.SoilProperties, logger)
	existing := store.Load()
	logger.Info("soil run starting", "counties", len(counties), "cached_rows", len(existing))

	fetchFn := fetch.Retrying(client.Fetch, "soil",
		len(domain.SoilProperties), cfg.SoilMaxAttempts, cfg.SoilRetryWait, logger, metrics)

	reconciler := cache.NewReconciler(fetchFn, cfg.MatchTolerance, logger, metrics)
	reconciler.SetTracker(tracker)

	result := reconciler.Reconcile(ctx, domain.Centroids(counties), existing)

	for _, key := range result.Failed {
		logger.Warn("county still missing soil data", "lat", key.Lat, "lon", key.Lon)
	}

	if err := store.Save(result.Records); err != nil {
		return err
	}
	logger.Info("soil cache written", "path", cachePath, "rows", len(result.Records))
	return nil
}

func shutdownServer(srv *httpadapter.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
