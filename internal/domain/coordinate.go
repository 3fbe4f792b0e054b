package domain

import "math"

// DefaultTolerance is the per-axis absolute tolerance, in degrees, under
// which two coordinates are considered the same county.
const DefaultTolerance = 1e-3

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// MatchesWithin reports whether other lies within atol of c on both axes.
// The comparison is inclusive: a difference of exactly atol matches.
func (c Coordinate) MatchesWithin(other Coordinate, atol float64) bool {
	return math.Abs(c.Lat-other.Lat) <= atol && math.Abs(c.Lon-other.Lon) <= atol
}

// DistanceTo returns the Euclidean distance to other in degree space.
// Not geodesic; the regional extents involved are small enough that plain
// coordinate distance orders neighbors correctly.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	dLat := c.Lat - other.Lat
	dLon := c.Lon - other.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}
