package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

func TestCleanEmptyTrace(t *testing.T) {
	p := New(config.DefaultThresholds)
	assert.Empty(t, p.Clean(nil))
	assert.Empty(t, p.Clean([]models.TrackPoint{}))
}

func TestCleanDropsGPSJump(t *testing.T) {
	p := New(config.DefaultThresholds)

	// Second point is ~500 m north, one second later: a straight-line jump
	// no runner makes. It must be dropped, and the gap stays a gap.
	trace := []models.TrackPoint{
		{Latitude: 51.5000, Longitude: -0.1000, Timestamp: 1000},
		{Latitude: 51.5045, Longitude: -0.1000, Timestamp: 1001},
	}

	out := p.Clean(trace)
	require.Len(t, out, 1)
	assert.Equal(t, 51.5000, out[0].Latitude)
}

func TestCleanKeepsPointsAfterSingleJump(t *testing.T) {
	p := New(config.DefaultThresholds)

	trace := []models.TrackPoint{
		{Latitude: 51.5000, Longitude: -0.1000, Timestamp: 1000},
		{Latitude: 51.5045, Longitude: -0.1000, Timestamp: 1001}, // spike
		{Latitude: 51.5001, Longitude: -0.1000, Timestamp: 1002}, // back on track
	}

	out := p.Clean(trace)
	require.Len(t, out, 2)
	assert.Equal(t, 51.5001, out[1].Latitude)
}

func TestCleanMarksStationaryPoints(t *testing.T) {
	p := New(config.DefaultThresholds)

	// ~1 m in 10 s is 0.1 m/s, well under the stopped threshold. The point
	// is kept but flagged.
	trace := []models.TrackPoint{
		{Latitude: 51.50000, Longitude: -0.10000, Timestamp: 1000},
		{Latitude: 51.50001, Longitude: -0.10000, Timestamp: 1010},
	}

	out := p.Clean(trace)
	require.Len(t, out, 2)
	assert.False(t, out[0].Stationary)
	assert.True(t, out[1].Stationary)
}

func TestCleanSpeedUndefinedBelowMinTimeDelta(t *testing.T) {
	p := New(config.DefaultThresholds)

	// Identical timestamps: speed is undefined, so the stationary rule must
	// not fire even though the points barely moved.
	trace := []models.TrackPoint{
		{Latitude: 51.50000, Longitude: -0.10000, Timestamp: 1000},
		{Latitude: 51.50001, Longitude: -0.10000, Timestamp: 1000},
	}

	out := p.Clean(trace)
	require.Len(t, out, 2)
	assert.False(t, out[1].Stationary)
}

func TestCleanMissingTimestamps(t *testing.T) {
	p := New(config.DefaultThresholds)

	trace := []models.TrackPoint{
		{Latitude: 51.50000, Longitude: -0.10000},
		{Latitude: 51.50001, Longitude: -0.10000},
	}

	out := p.Clean(trace)
	require.Len(t, out, 2)
	assert.False(t, out[1].Stationary)
}
