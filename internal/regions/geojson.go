// Package regions loads county boundary GeoJSON and derives the canonical
// centroid list the pipeline keys everything on.
package regions

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tillfield/county-feature-etl/internal/domain"
)

// Load reads a GeoJSON FeatureCollection of county polygons and returns one
// region per feature, in file order. The identifier is the upper-cased NAME
// property; features without one fall back to their index. Malformed input
// is fatal to the run — geometry is local, trusted input, unlike the remote
// attribute services.
func Load(path string) ([]domain.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("geojson %s contains no features", path)
	}

	regions := make([]domain.Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		c, err := f.Geometry.centroid()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		regions = append(regions, domain.Region{
			Name:     regionName(f.Properties, i),
			Centroid: c,
		})
	}
	return regions, nil
}

func regionName(props map[string]any, index int) string {
	if name, ok := props["NAME"].(string); ok && name != "" {
		return strings.ToUpper(name)
	}
	return strconv.Itoa(index)
}

// GeoJSON wire types. Coordinate positions are [lon, lat] per RFC 7946.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]any `json:"properties"`
	Geometry   geometry       `json:"geometry"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// centroid computes the planar area centroid of the geometry in degree
// space. Polygons use the shoelace centroid of the outer ring; multipolygon
// parts are area-weighted. Degenerate (zero-area) rings fall back to the
// vertex mean.
func (g geometry) centroid() (domain.Coordinate, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return domain.Coordinate{}, fmt.Errorf("polygon coordinates: %w", err)
		}
		if len(rings) == 0 || len(rings[0]) == 0 {
			return domain.Coordinate{}, fmt.Errorf("polygon has no outer ring")
		}
		c, _ := ringCentroid(rings[0])
		return c, nil

	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return domain.Coordinate{}, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		var sumLat, sumLon, sumArea float64
		for _, rings := range polys {
			if len(rings) == 0 || len(rings[0]) == 0 {
				continue
			}
			c, area := ringCentroid(rings[0])
			sumLat += c.Lat * area
			sumLon += c.Lon * area
			sumArea += area
		}
		if sumArea == 0 {
			return domain.Coordinate{}, fmt.Errorf("multipolygon has no usable rings")
		}
		return domain.Coordinate{Lat: sumLat / sumArea, Lon: sumLon / sumArea}, nil

	default:
		return domain.Coordinate{}, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

// ringCentroid returns the shoelace centroid and absolute area of one ring.
// Points are [lon, lat]. Zero-area rings return the vertex mean with zero
// area so multipolygon weighting skips them naturally.
func ringCentroid(ring [][]float64) (domain.Coordinate, float64) {
	var area2, cx, cy float64
	n := len(ring)
	for i := 0; i < n; i++ {
		x1, y1 := ring[i][0], ring[i][1]
		x2, y2 := ring[(i+1)%n][0], ring[(i+1)%n][1]
		cross := x1*y2 - x2*y1
		area2 += cross
		cx += (x1 + x2) * cross
		cy += (y1 + y2) * cross
	}

	if area2 == 0 {
		var sx, sy float64
		for _, p := range ring {
			sx += p[0]
			sy += p[1]
		}
		return domain.Coordinate{Lat: sy / float64(n), Lon: sx / float64(n)}, 0
	}

	return domain.Coordinate{
		Lon: cx / (3 * area2),
		Lat: cy / (3 * area2),
	}, math.Abs(area2 / 2)
}
