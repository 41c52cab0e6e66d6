package sensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimals(v float64, places int) bool {
	p := math.Pow(10, float64(places))
	return math.Abs(v*p-math.Round(v*p)) < 1e-6
}

func TestSampleWithinDefaultRanges(t *testing.T) {
	sim, err := NewSimulator(DefaultRanges(), 42)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		r := sim.Sample()
		assert.True(t, r.Temperature >= 2.0 && r.Temperature <= 30.0, r.Temperature)
		assert.True(t, r.Humidity >= 20.0 && r.Humidity <= 95.0, r.Humidity)
		assert.True(t, r.Latitude >= 19.0 && r.Latitude <= 20.5, r.Latitude)
		assert.True(t, r.Longitude >= -101.5 && r.Longitude <= -99.5, r.Longitude)
		assert.True(t, decimals(r.Temperature, 2))
		assert.True(t, decimals(r.Humidity, 2))
		assert.True(t, decimals(r.Latitude, 6))
		assert.True(t, decimals(r.Longitude, 6))
	}
}

func TestSameSeedSameReadings(t *testing.T) {
	a, err := NewSimulator(DefaultRanges(), 7)
	require.NoError(t, err)
	b, err := NewSimulator(DefaultRanges(), 7)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}

func TestDegenerateRange(t *testing.T) {
	ranges := DefaultRanges()
	ranges.Temperature = Range{Min: 4.5, Max: 4.5}
	sim, err := NewSimulator(ranges, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.5, sim.Sample().Temperature)
}

func TestInvertedRangeRejected(t *testing.T) {
	ranges := DefaultRanges()
	ranges.Humidity = Range{Min: 90, Max: 10}
	_, err := NewSimulator(ranges, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Contains(t, err.Error(), "humidity")
}
