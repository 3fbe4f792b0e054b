// Package cache owns the durable per-county attribute tables: a CSV-backed
// store and the reconciler that repairs a table against a canonical key set.
package cache

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/tillfield/county-feature-etl/internal/domain"
)

// Store loads and saves one attribute table as a CSV file with columns
// lat, lon, then the configured attribute fields. Missing values round-trip
// as empty cells.
type Store struct {
	path   string
	fields []string
	logger *slog.Logger
}

// NewStore creates a store for the table at path with the given attribute
// columns.
func NewStore(path string, fields []string, logger *slog.Logger) *Store {
	return &Store{path: path, fields: fields, logger: logger}
}

// Load reads the table. A missing, unreadable, or malformed file is treated
// as an empty table, not an error: every canonical key then becomes an
// addition on the next reconcile.
func (s *Store) Load() []domain.RegionRecord {
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("cache file unreadable, starting empty", "path", s.path, "error", err)
		}
		return nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		s.logger.Warn("cache file corrupt, starting empty", "path", s.path, "error", err)
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	// First row is the header.
	records := make([]domain.RegionRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != 2+len(s.fields) {
			s.logger.Warn("cache row has wrong column count, skipping", "path", s.path, "columns", len(row))
			continue
		}
		lat, latErr := strconv.ParseFloat(row[0], 64)
		lon, lonErr := strconv.ParseFloat(row[1], 64)
		if latErr != nil || lonErr != nil {
			s.logger.Warn("cache row has unparseable coordinates, skipping", "path", s.path)
			continue
		}
		vec := make(domain.AttributeVector, len(s.fields))
		for i, cell := range row[2:] {
			vec[i] = parseCell(cell)
		}
		records = append(records, domain.RegionRecord{
			Key:    domain.Coordinate{Lat: lat, Lon: lon},
			Values: vec,
		})
	}
	return records
}

// Save rewrites the table wholesale.
func (s *Store) Save(records []domain.RegionRecord) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"lat", "lon"}, s.fields...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write cache header: %w", err)
	}
	for _, rec := range records {
		row := make([]string, 0, len(header))
		row = append(row, formatFloat(rec.Key.Lat), formatFloat(rec.Key.Lon))
		for _, v := range rec.Values {
			row = append(row, formatCell(v))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write cache row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush cache file: %w", err)
	}
	return nil
}

// parseCell turns a CSV cell into a value; empty or unparseable cells are
// missing.
func parseCell(cell string) float64 {
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// formatCell renders a value for CSV; missing values become empty cells.
func formatCell(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return formatFloat(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
