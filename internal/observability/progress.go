package observability

import (
	"context"
	"errors"
	"sync/atomic"
)

// RunTracker reports acquisition-run progress for readiness checks.
// A run is considered ready once it has processed at least one key.
type RunTracker struct {
	metrics *Metrics
	done    atomic.Int64
}

// NewRunTracker creates a tracker bound to the run metrics.
func NewRunTracker(metrics *Metrics) *RunTracker {
	metrics.RunActive.Set(1)
	return &RunTracker{metrics: metrics}
}

// Step records one processed key.
func (t *RunTracker) Step() {
	t.done.Add(1)
	t.metrics.KeysProcessed.Inc()
}

// Finish marks the run inactive.
func (t *RunTracker) Finish() {
	t.metrics.RunActive.Set(0)
}

// CheckReadiness returns nil once the run has processed at least one key.
func (t *RunTracker) CheckReadiness(_ context.Context) error {
	if t.done.Load() == 0 {
		return errors.New("run has not processed any keys yet")
	}
	return nil
}
