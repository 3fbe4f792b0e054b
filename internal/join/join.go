// Package join attaches to each canonical centroid the attribute data of its
// nearest sampled point from a non-aligned coordinate grid.
package join

import (
	"errors"
	"log/slog"

	"github.com/kyroy/kdtree"

	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/observability"
)

// ErrEmptyTable is returned when a join is attempted against a table with no
// rows. Unlike remote failures this is a contract violation: the caller fed
// the joiner an attribute table that was never populated.
var ErrEmptyTable = errors.New("join: attribute table is empty")

// Joiner performs nearest-neighbor joins in degree space.
type Joiner struct {
	// maxDistance turns a match farther than this many degrees into a fully
	// missing row instead of silently pairing distant points. Zero disables
	// the cutoff.
	maxDistance float64
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates a Joiner. maxDistance <= 0 disables the distance cutoff.
func New(maxDistance float64, logger *slog.Logger, metrics *observability.Metrics) *Joiner {
	return &Joiner{maxDistance: maxDistance, logger: logger, metrics: metrics}
}

// Nearest returns, for every base point in order, the attribute vector of
// the table row sampled closest to it under Euclidean distance in (lat, lon)
// degree space. The result has exactly len(base) entries. Exact ties resolve
// to whichever nearest row the index returns first.
func (j *Joiner) Nearest(base []domain.Coordinate, table []domain.RegionRecord) ([]domain.AttributeVector, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}

	points := make([]kdtree.Point, len(table))
	for i, rec := range table {
		points[i] = &samplePoint{coord: rec.Key, row: i}
	}
	tree := kdtree.New(points)

	width := len(table[0].Values)
	out := make([]domain.AttributeVector, len(base))
	for i, b := range base {
		nearest := tree.KNN(&samplePoint{coord: b}, 1)
		p := nearest[0].(*samplePoint)
		dist := b.DistanceTo(p.coord)
		j.metrics.JoinDistance.Observe(dist)

		if j.maxDistance > 0 && dist > j.maxDistance {
			j.logger.Warn("nearest sample beyond cutoff, marking row missing",
				"lat", b.Lat, "lon", b.Lon, "distance", dist, "cutoff", j.maxDistance)
			out[i] = domain.FullyMissingVector(width)
			continue
		}
		out[i] = table[p.row].Values
	}
	return out, nil
}

// Concat column-concatenates per-source join results by base-row position.
// Every argument must have the same length.
func Concat(results ...[]domain.AttributeVector) [][]float64 {
	if len(results) == 0 {
		return nil
	}
	n := len(results[0])
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		var row []float64
		for _, res := range results {
			row = append(row, res[i]...)
		}
		rows[i] = row
	}
	return rows
}

// samplePoint adapts a table row to the k-d tree point interface. Dimension
// order is (lat, lon), matching the distance convention everywhere else.
type samplePoint struct {
	coord domain.Coordinate
	row   int
}

func (p *samplePoint) Dimensions() int { return 2 }

func (p *samplePoint) Dimension(i int) float64 {
	if i == 0 {
		return p.coord.Lat
	}
	return p.coord.Lon
}
