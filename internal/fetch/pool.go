package fetch

import (
	"context"
	"sync"

	"github.com/tillfield/county-feature-etl/internal/domain"
)

// Worker produces the attribute vector for one key. Workers must degrade
// failures to a vector themselves (zero-fill or missing markers); the pool
// has no retry or error channel.
type Worker func(ctx context.Context, key domain.Coordinate) domain.AttributeVector

// MapOrdered fans keys out across at most workers goroutines and returns one
// result per key, in input order regardless of completion order. Keys not
// dispatched before ctx is cancelled get a nil vector.
//
// Only suitable for workloads with no shared mutable state between calls;
// cache reconciliation must stay sequential because each key's classification
// depends on the results of the keys before it.
func MapOrdered(ctx context.Context, keys []domain.Coordinate, workers int, fn Worker) []domain.AttributeVector {
	results := make([]domain.AttributeVector, len(keys))
	if len(keys) == 0 {
		return results
	}
	if workers > len(keys) {
		workers = len(keys)
	}

	type job struct {
		idx int
		key domain.Coordinate
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = fn(ctx, j.key)
			}
		}()
	}

	for i, key := range keys {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case jobs <- job{idx: i, key: key}:
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
