// Package fetch provides the two access patterns over a coordinate-keyed
// fetch primitive: a fixed-wait retry wrapper for stateful sequential
// workloads, and an order-preserving bounded worker pool for independent
// ones.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/observability"
)

// Func fetches the attribute vector for one coordinate key. A transport
// failure returns an error; a well-formed but empty result returns a fully
// missing vector.
type Func func(ctx context.Context, key domain.Coordinate) (domain.AttributeVector, error)

// Retrying wraps fn with a retry budget: up to maxAttempts calls per key,
// sleeping a fixed wait between attempts. An attempt counts as failed on any
// error or on a fully-missing result. The returned Func never errors — an
// exhausted budget yields a fully-missing vector of the given size, so
// downstream code has one uniform failure representation.
//
// The wait is intentionally fixed rather than exponential: upstream rate
// limits here are long-window, and a handful of evenly spaced attempts is
// the behavior operators expect from the cache-repair runs.
func Retrying(fn Func, source string, size, maxAttempts int, wait time.Duration, logger *slog.Logger, metrics *observability.Metrics) Func {
	return func(ctx context.Context, key domain.Coordinate) (domain.AttributeVector, error) {
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			vec, err := fn(ctx, key)
			if err == nil && !vec.FullyMissing() {
				return vec, nil
			}
			if err != nil {
				logger.Warn("fetch attempt failed",
					"source", source,
					"lat", key.Lat,
					"lon", key.Lon,
					"attempt", attempt,
					"error", err,
				)
			} else {
				logger.Warn("fetch attempt returned no data",
					"source", source,
					"lat", key.Lat,
					"lon", key.Lon,
					"attempt", attempt,
				)
			}
			if attempt < maxAttempts && !sleep(ctx, wait) {
				break
			}
		}
		metrics.RetryExhausted.WithLabelValues(source).Inc()
		return domain.FullyMissingVector(size), nil
	}
}

// sleep waits for d on the package clock. Returns false if the context was
// cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-clock.After(d):
		return true
	}
}
