package domain

import "math"

// SoilProperties lists the cached soil columns in persisted order.
var SoilProperties = []string{"clay", "silt", "sand", "soc", "ph"}

// AttributeVector is a fixed-order set of numeric fields for one county from
// one source. NaN marks a missing field.
type AttributeVector []float64

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// FullyMissing reports whether every field is missing. An empty vector is
// fully missing.
func (a AttributeVector) FullyMissing() bool {
	for _, v := range a {
		if !IsMissing(v) {
			return false
		}
	}
	return true
}

// Complete reports whether no field is missing.
func (a AttributeVector) Complete() bool {
	if len(a) == 0 {
		return false
	}
	for _, v := range a {
		if IsMissing(v) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the vector.
func (a AttributeVector) Clone() AttributeVector {
	return append(AttributeVector(nil), a...)
}

// FullyMissingVector returns a vector of size fields, all missing.
func FullyMissingVector(size int) AttributeVector {
	v := make(AttributeVector, size)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}
