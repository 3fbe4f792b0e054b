package join

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/observability"
)

func testJoiner(maxDistance float64) *Joiner {
	return New(maxDistance,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func TestNearest_PicksCloserPoint(t *testing.T) {
	base := []domain.Coordinate{{Lat: 0, Lon: 0}}
	a := domain.RegionRecord{Key: domain.Coordinate{Lat: 0, Lon: 0.01}, Values: domain.AttributeVector{1}}
	b := domain.RegionRecord{Key: domain.Coordinate{Lat: 5, Lon: 5}, Values: domain.AttributeVector{2}}

	for name, table := range map[string][]domain.RegionRecord{
		"near first": {a, b},
		"near last":  {b, a},
	} {
		out, err := testJoiner(0).Nearest(base, table)
		require.NoError(t, err, name)
		require.Len(t, out, 1, name)
		assert.Equal(t, domain.AttributeVector{1}, out[0], "%s: must match the closer sample", name)
	}
}

func TestNearest_PreservesBaseOrderAndLength(t *testing.T) {
	base := []domain.Coordinate{
		{Lat: 10, Lon: 10},
		{Lat: 0, Lon: 0},
		{Lat: 20, Lon: 20},
	}
	table := []domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 0.1, Lon: 0.1}, Values: domain.AttributeVector{100}},
		{Key: domain.Coordinate{Lat: 19.9, Lon: 19.9}, Values: domain.AttributeVector{300}},
		{Key: domain.Coordinate{Lat: 10.1, Lon: 9.9}, Values: domain.AttributeVector{200}},
	}

	out, err := testJoiner(0).Nearest(base, table)
	require.NoError(t, err)
	require.Len(t, out, len(base))

	assert.Equal(t, domain.AttributeVector{200}, out[0])
	assert.Equal(t, domain.AttributeVector{100}, out[1])
	assert.Equal(t, domain.AttributeVector{300}, out[2])
}

func TestNearest_NoCutoffMatchesArbitrarilyFar(t *testing.T) {
	base := []domain.Coordinate{{Lat: 0, Lon: 0}}
	table := []domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 50, Lon: 50}, Values: domain.AttributeVector{9}},
	}

	out, err := testJoiner(0).Nearest(base, table)
	require.NoError(t, err)
	assert.Equal(t, domain.AttributeVector{9}, out[0])
}

func TestNearest_CutoffTurnsFarMatchIntoMissingRow(t *testing.T) {
	base := []domain.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 49.9, Lon: 50},
	}
	table := []domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 50, Lon: 50}, Values: domain.AttributeVector{9, 8}},
	}

	out, err := testJoiner(1.0).Nearest(base, table)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].FullyMissing(), "beyond cutoff: missing, not a silent far pairing")
	assert.Len(t, out[0], 2, "missing row keeps the table's column width")
	assert.Equal(t, domain.AttributeVector{9, 8}, out[1], "within cutoff: matched normally")
}

func TestNearest_EmptyTableIsAnError(t *testing.T) {
	_, err := testJoiner(0).Nearest([]domain.Coordinate{{Lat: 0, Lon: 0}}, nil)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestNearest_PartialVectorsPropagate(t *testing.T) {
	nan := domain.FullyMissingVector(1)[0]
	base := []domain.Coordinate{{Lat: 0, Lon: 0}}
	table := []domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 0.01, Lon: 0}, Values: domain.AttributeVector{25, nan, 35}},
	}

	out, err := testJoiner(0).Nearest(base, table)
	require.NoError(t, err)
	assert.Equal(t, 25.0, out[0][0])
	assert.True(t, domain.IsMissing(out[0][1]), "partially-missing vectors attach as-is")
}

func TestConcat_ByRowPosition(t *testing.T) {
	weather := []domain.AttributeVector{{1, 2}, {3, 4}}
	soil := []domain.AttributeVector{{5}, {6}}

	rows := Concat(weather, soil)
	require.Len(t, rows, 2)
	assert.Equal(t, []float64{1, 2, 5}, rows[0])
	assert.Equal(t, []float64{3, 4, 6}, rows[1])
}
