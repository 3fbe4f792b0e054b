package cache

import (
	"context"
	"log/slog"
	"math"

	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/fetch"
	"github.com/tillfield/county-feature-etl/internal/observability"
)

// Result summarizes one reconciliation run.
type Result struct {
	// Records is the full updated table: every prior row (repaired in place
	// where possible) plus one appended row per previously unknown key.
	Records []domain.RegionRecord
	// Failed lists the canonical keys still fully missing at the end of the
	// run, for operator visibility.
	Failed []domain.Coordinate

	Complete int // matched rows that needed no fetch
	Repaired int
	Added    int
}

// Reconciler repairs a cached attribute table against a canonical key set,
// fetching only for keys that are absent or incomplete.
//
// Reconciliation is strictly sequential: each key's classification depends on
// the table state left by the keys before it, so there is no concurrent
// variant of this loop.
type Reconciler struct {
	fetchFn   fetch.Func
	tolerance float64
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracker   *observability.RunTracker
}

// NewReconciler creates a reconciler around a fetch function (normally a
// fetch.Retrying wrapper, which never errors). tolerance is the per-axis
// key-matching tolerance in degrees.
func NewReconciler(fetchFn fetch.Func, tolerance float64, logger *slog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		fetchFn:   fetchFn,
		tolerance: tolerance,
		logger:    logger,
		metrics:   metrics,
	}
}

// SetTracker attaches a run tracker stepped once per canonical key.
func (r *Reconciler) SetTracker(t *observability.RunTracker) {
	r.tracker = t
}

// Reconcile classifies each canonical key against the existing table and
// returns the updated table. Guarantees:
//
//   - a key whose matched row is already complete is never fetched;
//   - a matched incomplete row is repaired in place, never duplicated;
//   - an unmatched key is appended exactly once, even when the fetch comes
//     back fully missing, so the failure is durable and repairable later.
//
// The input slice is not mutated; the returned records share no backing
// array with it.
func (r *Reconciler) Reconcile(ctx context.Context, canonical []domain.Coordinate, existing []domain.RegionRecord) Result {
	res := Result{Records: cloneRecords(existing)}

	for _, key := range canonical {
		r.reconcileKey(ctx, key, &res)
		if r.tracker != nil {
			r.tracker.Step()
		}
	}

	r.logger.Info("reconcile finished",
		"keys", len(canonical),
		"complete", res.Complete,
		"repaired", res.Repaired,
		"added", res.Added,
		"failed", len(res.Failed),
	)
	return res
}

func (r *Reconciler) reconcileKey(ctx context.Context, key domain.Coordinate, res *Result) {
	idx := r.matchIndex(res.Records, key)

	if idx >= 0 && res.Records[idx].Values.Complete() {
		res.Complete++
		r.metrics.ReconcileOutcomes.WithLabelValues("complete").Inc()
		return
	}

	vec, err := r.fetchFn(ctx, key)
	if err != nil {
		// A retrying fetch never errors; a bare one might. Either way the
		// failure representation is the same.
		r.logger.Warn("fetch failed", "lat", key.Lat, "lon", key.Lon, "error", err)
		vec = domain.FullyMissingVector(vectorSize(res.Records, vec))
	}

	if idx >= 0 {
		if vec.FullyMissing() {
			// Leave the prior still-failing row untouched.
			res.Failed = append(res.Failed, key)
			r.metrics.ReconcileOutcomes.WithLabelValues("failed").Inc()
			return
		}
		res.Records[idx].Values = vec
		res.Repaired++
		r.metrics.ReconcileOutcomes.WithLabelValues("repaired").Inc()
		return
	}

	res.Records = append(res.Records, domain.RegionRecord{Key: key, Values: vec})
	if vec.FullyMissing() {
		res.Failed = append(res.Failed, key)
		r.metrics.ReconcileOutcomes.WithLabelValues("failed").Inc()
		return
	}
	res.Added++
	r.metrics.ReconcileOutcomes.WithLabelValues("added").Inc()
}

// matchIndex returns the index of the record nearest to key among those
// within tolerance on both axes, or -1. Nearest-within-tolerance (rather
// than first-match-wins) keeps the choice deterministic when drifted rows
// cluster; ties go to the lowest index.
func (r *Reconciler) matchIndex(records []domain.RegionRecord, key domain.Coordinate) int {
	best := -1
	bestDist := math.Inf(1)
	for i, rec := range records {
		if !rec.Key.MatchesWithin(key, r.tolerance) {
			continue
		}
		if d := rec.Key.DistanceTo(key); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func cloneRecords(records []domain.RegionRecord) []domain.RegionRecord {
	out := make([]domain.RegionRecord, len(records))
	for i, rec := range records {
		out[i] = domain.RegionRecord{Key: rec.Key, Values: rec.Values.Clone()}
	}
	return out
}

// vectorSize picks a width for a synthesized fully-missing vector: the
// fetched vector's own width when present, else the table's row width.
func vectorSize(records []domain.RegionRecord, vec domain.AttributeVector) int {
	if len(vec) > 0 {
		return len(vec)
	}
	if len(records) > 0 {
		return len(records[0].Values)
	}
	return len(domain.SoilProperties)
}
