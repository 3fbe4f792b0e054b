package cache

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillfield/county-feature-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soil.csv")
	return NewStore(path, domain.SoilProperties, discardLogger())
}

func TestStore_RoundTrip(t *testing.T) {
	s := testStore(t)

	in := []domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 40.1234, Lon: -95.5678}, Values: domain.AttributeVector{25, 40, 35, 12, 6.6}},
		{Key: domain.Coordinate{Lat: 41, Lon: -96}, Values: domain.AttributeVector{0, 0, 0, 0, 0}},
	}
	require.NoError(t, s.Save(in))

	out := s.Load()
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Key, out[0].Key)
	assert.Equal(t, in[0].Values, out[0].Values)
	assert.True(t, out[1].Values.Complete(), "zeros survive as values, not missing")
}

func TestStore_MissingValuesRoundTripAsEmptyCells(t *testing.T) {
	s := testStore(t)
	nan := math.NaN()

	in := []domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 40, Lon: -95}, Values: domain.AttributeVector{25, nan, 35, nan, nan}},
		{Key: domain.Coordinate{Lat: 41, Lon: -96}, Values: domain.FullyMissingVector(5)},
	}
	require.NoError(t, s.Save(in))

	out := s.Load()
	require.Len(t, out, 2)

	assert.Equal(t, 25.0, out[0].Values[0])
	assert.True(t, domain.IsMissing(out[0].Values[1]))
	assert.Equal(t, 35.0, out[0].Values[2])
	assert.True(t, domain.IsMissing(out[0].Values[3]))
	assert.True(t, out[1].Values.FullyMissing(), "fully-missing rows persist as known failures")
}

func TestStore_MissingFileIsEmptyTable(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.csv"), domain.SoilProperties, discardLogger())
	assert.Empty(t, s.Load())
}

func TestStore_CorruptFileIsEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soil.csv")
	require.NoError(t, os.WriteFile(path, []byte("lat,lon,clay\n\"unterminated"), 0o644))

	s := NewStore(path, domain.SoilProperties, discardLogger())
	assert.Empty(t, s.Load())
}

func TestStore_SkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soil.csv")
	content := "lat,lon,clay,silt,sand,soc,ph\n" +
		"40,-95,25,40,35,12,6.6\n" +
		"not-a-number,-95,25,40,35,12,6.6\n" +
		"41,-96,26,41,33,11,6.2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := NewStore(path, domain.SoilProperties, discardLogger())
	out := s.Load()
	require.Len(t, out, 2)
	assert.Equal(t, 40.0, out[0].Key.Lat)
	assert.Equal(t, 41.0, out[1].Key.Lat)
}

func TestStore_SaveRewritesWholesale(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save([]domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 40, Lon: -95}, Values: domain.AttributeVector{1, 2, 3, 4, 5}},
		{Key: domain.Coordinate{Lat: 41, Lon: -96}, Values: domain.AttributeVector{6, 7, 8, 9, 10}},
	}))
	require.NoError(t, s.Save([]domain.RegionRecord{
		{Key: domain.Coordinate{Lat: 42, Lon: -97}, Values: domain.AttributeVector{1, 1, 1, 1, 1}},
	}))

	out := s.Load()
	require.Len(t, out, 1)
	assert.Equal(t, 42.0, out[0].Key.Lat)
}
