// Package domain models the per-county environmental feature data assembled
// by the pipeline.
//
// # Data Sources
//
// Soil properties come from the ISRIC SoilGrids v2.0 properties API
// (https://rest.isric.org/soilgrids/v2.0/properties/query). A query is keyed
// by a WGS-84 longitude/latitude pair and returns, per requested property,
// a list of depth layers each carrying a nullable mean value. The pipeline
// reduces the depth layers to a single per-property mean.
//
// Daily weather comes from the NASA POWER temporal API
// (https://power.larc.nasa.gov/api/temporal/daily/point), keyed by coordinate
// and date range, returning one value per day per parameter (T2M temperature,
// PRECTOT precipitation). The daily series is reduced to summary statistics
// before joining.
//
// # Coordinate Keys
//
// County centroids are recomputed from boundary geometry on every run, so the
// same county can yield coordinates that differ by floating-point noise across
// runs. Two coordinates therefore identify the same county when they agree
// within an absolute per-axis tolerance (default 1e-3 degrees), never by exact
// equality. See [Coordinate.MatchesWithin].
//
// # Missing Values
//
// Any soil property can be absent upstream: the property may be missing from
// the response, all of its depth layers may carry null means, or the fetch may
// fail outright after retries. Absence is represented structurally as NaN in
// an [AttributeVector], never as zero — zero is a valid soil measurement.
// A vector with every field NaN records a known failure; such rows are still
// persisted so a later run can repair them in place instead of re-adding
// duplicates.
//
// The weather source deliberately differs: an absent rainfall parameter is
// zero-filled, matching the upstream convention that POWER omits PRECTOT
// (rather than nulling it) for regions without precipitation records. The two
// policies are intentionally not unified.
package domain
