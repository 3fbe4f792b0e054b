package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/observability"
)

var testKey = domain.Coordinate{Lat: 40, Lon: -95}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrying_SuccessFirstAttempt(t *testing.T) {
	var calls int
	stub := func(_ context.Context, _ domain.Coordinate) (domain.AttributeVector, error) {
		calls++
		return domain.AttributeVector{1, 2, 3}, nil
	}

	fn := Retrying(stub, "soil", 3, 5, time.Second, discardLogger(), observability.NewMetricsForTesting())
	vec, err := fn(context.Background(), testKey)

	require.NoError(t, err)
	assert.Equal(t, domain.AttributeVector{1, 2, 3}, vec)
	assert.Equal(t, 1, calls, "no retries after a usable result")
}

func TestRetrying_TransportErrorThenSuccess(t *testing.T) {
	var calls int
	stub := func(_ context.Context, _ domain.Coordinate) (domain.AttributeVector, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return domain.AttributeVector{7, 8, 9}, nil
	}

	fn := Retrying(stub, "soil", 3, 5, 0, discardLogger(), observability.NewMetricsForTesting())
	vec, err := fn(context.Background(), testKey)

	require.NoError(t, err)
	assert.Equal(t, domain.AttributeVector{7, 8, 9}, vec)
	assert.Equal(t, 3, calls)
}

func TestRetrying_AllMissingResultIsRetried(t *testing.T) {
	var calls int
	stub := func(_ context.Context, _ domain.Coordinate) (domain.AttributeVector, error) {
		calls++
		return domain.FullyMissingVector(3), nil
	}

	fn := Retrying(stub, "soil", 3, 4, 0, discardLogger(), observability.NewMetricsForTesting())
	vec, err := fn(context.Background(), testKey)

	require.NoError(t, err, "exhaustion is not an error")
	assert.True(t, vec.FullyMissing())
	assert.Len(t, vec, 3)
	assert.Equal(t, 4, calls, "exactly maxAttempts calls, no more, no fewer")
}

func TestRetrying_FixedWaitBetweenAttempts(t *testing.T) {
	fc := clockwork.NewFakeClock()
	SetClock(fc)
	defer SetClock(nil)

	const (
		maxAttempts = 4
		wait        = 2 * time.Second
	)

	var calls int
	stub := func(_ context.Context, _ domain.Coordinate) (domain.AttributeVector, error) {
		calls++
		return nil, errors.New("timeout")
	}

	fn := Retrying(stub, "soil", 3, maxAttempts, wait, discardLogger(), observability.NewMetricsForTesting())

	done := make(chan domain.AttributeVector, 1)
	go func() {
		vec, _ := fn(context.Background(), testKey)
		done <- vec
	}()

	// maxAttempts calls are separated by maxAttempts-1 waits of exactly
	// the configured duration; each BlockUntil proves the wrapper is
	// actually sleeping rather than spinning.
	for i := 0; i < maxAttempts-1; i++ {
		fc.BlockUntil(1)
		fc.Advance(wait)
	}

	vec := <-done
	assert.True(t, vec.FullyMissing())
	assert.Equal(t, maxAttempts, calls)
}

func TestRetrying_ContextCancelledDuringWait(t *testing.T) {
	fc := clockwork.NewFakeClock()
	SetClock(fc)
	defer SetClock(nil)

	var calls int
	stub := func(_ context.Context, _ domain.Coordinate) (domain.AttributeVector, error) {
		calls++
		return nil, errors.New("unreachable host")
	}

	ctx, cancel := context.WithCancel(context.Background())
	fn := Retrying(stub, "soil", 3, 10, time.Minute, discardLogger(), observability.NewMetricsForTesting())

	done := make(chan domain.AttributeVector, 1)
	go func() {
		vec, _ := fn(ctx, testKey)
		done <- vec
	}()

	fc.BlockUntil(1)
	cancel()

	vec := <-done
	assert.True(t, vec.FullyMissing(), "cancellation degrades to the uniform failure shape")
	assert.Equal(t, 1, calls)
}
