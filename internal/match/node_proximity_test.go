package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

func proximityGraph() *models.RoadGraph {
	graph := models.NewRoadGraph()
	// ~11 m north of the trace point
	graph.Nodes[1] = models.GraphNode{NodeID: 1, Latitude: 51.50010, Longitude: -0.10000}
	// right on the trace point
	graph.Nodes[2] = models.GraphNode{NodeID: 2, Latitude: 51.50000, Longitude: -0.10000}
	// ~1.1 km away
	graph.Nodes[3] = models.GraphNode{NodeID: 3, Latitude: 51.51000, Longitude: -0.10000}
	return graph
}

func TestNodeProximityHitsWithinSnapRadius(t *testing.T) {
	m := NewNodeProximityMatcher(25)

	trace := []models.ProcessedPoint{
		{TrackPoint: models.TrackPoint{Latitude: 51.50000, Longitude: -0.10000}},
	}

	result, err := m.Match(context.Background(), trace, proximityGraph())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, result.NodeIDs)
}

func TestNodeProximityFirstHitWins(t *testing.T) {
	m := NewNodeProximityMatcher(25)

	// The same location three times; repeats are no-ops.
	pt := models.ProcessedPoint{TrackPoint: models.TrackPoint{Latitude: 51.50000, Longitude: -0.10000}}
	trace := []models.ProcessedPoint{pt, pt, pt}

	result, err := m.Match(context.Background(), trace, proximityGraph())
	require.NoError(t, err)
	assert.Len(t, result.NodeIDs, 2)
}

func TestNodeProximityStationaryPointsStillCount(t *testing.T) {
	m := NewNodeProximityMatcher(25)

	trace := []models.ProcessedPoint{
		{TrackPoint: models.TrackPoint{Latitude: 51.50000, Longitude: -0.10000}, Stationary: true},
	}

	result, err := m.Match(context.Background(), trace, proximityGraph())
	require.NoError(t, err)
	assert.NotEmpty(t, result.NodeIDs)
}

func TestNodeProximityEmptyInputs(t *testing.T) {
	m := NewNodeProximityMatcher(25)

	result, err := m.Match(context.Background(), nil, proximityGraph())
	require.NoError(t, err)
	assert.Empty(t, result.NodeIDs)

	trace := []models.ProcessedPoint{
		{TrackPoint: models.TrackPoint{Latitude: 51.5, Longitude: -0.1}},
	}
	result, err = m.Match(context.Background(), trace, models.NewRoadGraph())
	require.NoError(t, err)
	assert.Empty(t, result.NodeIDs)
}
