// Command merge joins the soil and weather tables onto the canonical county
// centroids by nearest-neighbor matching, appends derived features, and
// writes the final per-county feature table.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/tillfield/county-feature-etl/internal/adapter/power"
	"github.com/tillfield/county-feature-etl/internal/cache"
	"github.com/tillfield/county-feature-etl/internal/config"
	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/join"
	"github.com/tillfield/county-feature-etl/internal/observability"
	"github.com/tillfield/county-feature-etl/internal/regions"
)

func main() {
	geojsonPath := flag.String("geojson", "", "county boundaries GeoJSON file (required)")
	weatherPath := flag.String("weather", "weather.csv", "weather summary CSV")
	soilPath := flag.String("soil", "soil.csv", "soil cache CSV")
	outPath := flag.String("out", "county_features.csv", "merged feature CSV output")
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

	if err := run(cfg, logger, *geojsonPath, *weatherPath, *soilPath, *outPath); err != nil {
		logger.Error("merge run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, geojsonPath, weatherPath, soilPath, outPath string) error {
	counties, err := regions.Load(geojsonPath)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	weatherTable := cache.NewStore(weatherPath, power.SummaryFields, logger).Load()
	soilTable := cache.NewStore(soilPath, domain.SoilProperties, logger).Load()
	logger.Info("merge starting",
		"counties", len(counties),
		"weather_rows", len(weatherTable),
		"soil_rows", len(soilTable),
	)

	base := domain.Centroids(counties)
	joiner := join.New(cfg.JoinMaxDistance, logger, metrics)

	weatherJoined, err := joiner.Nearest(base, weatherTable)
	if err != nil {
		return fmt.Errorf("weather table: %w", err)
	}
	soilJoined, err := joiner.Nearest(base, soilTable)
	if err != nil {
		return fmt.Errorf("soil table: %w", err)
	}

	fields := append(append([]string{}, power.SummaryFields...), domain.SoilProperties...)
	rows := join.Concat(weatherJoined, soilJoined)
	fields, rows = derive(fields, rows)

	if err := writeFeatures(outPath, counties, fields, rows); err != nil {
		return err
	}
	logger.Info("feature table written", "path", outPath, "rows", len(rows), "columns", 3+len(fields))
	return nil
}

// derive appends the computed feature columns to every row.
func derive(fields []string, rows [][]float64) ([]string, [][]float64) {
	tempStd := fieldIndex(fields, "temp_std")
	rainSum := fieldIndex(fields, "rain_sum")
	clay := fieldIndex(fields, "clay")
	silt := fieldIndex(fields, "silt")

	out := append(fields, "temp_range", "rain_per_month", "clay_silt_ratio")
	for i, row := range rows {
		rows[i] = append(row,
			row[tempStd]*2,
			row[rainSum]/12,
			row[clay]/(row[silt]+1e-6),
		)
	}
	return out, rows
}

func fieldIndex(fields []string, name string) int {
	for i, f := range fields {
		if f == name {
			return i
		}
	}
	panic(fmt.Sprintf("unknown feature column %q", name))
}

func writeFeatures(path string, counties []domain.Region, fields []string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create feature file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"county", "centroid_lat", "centroid_lon"}, fields...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write feature header: %w", err)
	}

	for i, county := range counties {
		row := make([]string, 0, len(header))
		row = append(row, county.Name, formatCell(county.Centroid.Lat), formatCell(county.Centroid.Lon))
		for _, v := range rows[i] {
			row = append(row, formatCell(v))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write feature row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush feature file: %w", err)
	}
	return nil
}

// formatCell renders a value for CSV; missing values become empty cells.
func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
