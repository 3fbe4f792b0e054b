package domain

// Region is one administrative unit: a stable identifier plus the centroid
// of its boundary geometry.
type Region struct {
	Name     string
	Centroid Coordinate
}

// RegionRecord is one row of a persisted attribute table: the sampling
// coordinate plus the values fetched for it.
type RegionRecord struct {
	Key    Coordinate
	Values AttributeVector
}

// Centroids extracts the coordinate list from a region set, preserving order.
func Centroids(regions []Region) []Coordinate {
	keys := make([]Coordinate, len(regions))
	for i, r := range regions {
		keys[i] = r.Centroid
	}
	return keys
}
