package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

type fakeMatchClient struct {
	edges []MatchedEdge
	err   error
	calls int
}

func (f *fakeMatchClient) MatchTrace(ctx context.Context, points []models.ProcessedPoint) ([]MatchedEdge, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.edges, nil
}

func gateGraph() *models.RoadGraph {
	graph := models.NewRoadGraph()
	for id := int64(1); id <= 8; id++ {
		graph.Nodes[id] = models.GraphNode{NodeID: id}
	}
	graph.Edges = []models.GraphEdge{
		// Passes every gate.
		{EdgeID: models.EdgeID(1, 2, 10), NodeA: 1, NodeB: 2, WayID: 10, WayName: "Elm Grove", HighwayType: "residential", LengthMeters: 80},
		// Below minimum edge length; allowed type, plausible speed.
		{EdgeID: models.EdgeID(3, 4, 10), NodeA: 3, NodeB: 4, WayID: 10, WayName: "Elm Grove", HighwayType: "residential", LengthMeters: 3},
		// Excluded highway type.
		{EdgeID: models.EdgeID(5, 6, 11), NodeA: 5, NodeB: 6, WayID: 11, HighwayType: "service", LengthMeters: 50},
		// Fine unless the implied speed is absurd.
		{EdgeID: models.EdgeID(7, 8, 12), NodeA: 7, NodeB: 8, WayID: 12, WayName: "Oak Avenue", HighwayType: "residential", LengthMeters: 100},
	}
	return graph
}

func movingTrace(n int) []models.ProcessedPoint {
	trace := make([]models.ProcessedPoint, n)
	for i := range trace {
		trace[i] = models.ProcessedPoint{TrackPoint: models.TrackPoint{
			Latitude:  51.5 + float64(i)*0.0001,
			Longitude: -0.1,
			Timestamp: int64(1000 + i*10),
		}}
	}
	return trace
}

func TestEdgeGatesAreIndependentlySufficient(t *testing.T) {
	client := &fakeMatchClient{edges: []MatchedEdge{
		{NodeA: 1, NodeB: 2, DurationS: 30},  // ok: 80 m in 30 s
		{NodeA: 3, NodeB: 4, DurationS: 10},  // rejected: 3 m edge
		{NodeA: 5, NodeB: 6, DurationS: 20},  // rejected: service road
		{NodeA: 7, NodeB: 8, DurationS: 2},   // rejected: 50 m/s is not running
	}}
	m := NewEdgeMatcher(client, 100, config.DefaultThresholds)

	result, err := m.Match(context.Background(), movingTrace(5), gateGraph())
	require.NoError(t, err)
	require.Len(t, result.Edges, 1)
	assert.Equal(t, models.EdgeID(1, 2, 10), result.Edges[0].EdgeID)
}

func TestEdgeSpeedGateSkippedWithoutDuration(t *testing.T) {
	client := &fakeMatchClient{edges: []MatchedEdge{
		{NodeA: 7, NodeB: 8, DurationS: 0}, // no timing reported
	}}
	m := NewEdgeMatcher(client, 100, config.DefaultThresholds)

	result, err := m.Match(context.Background(), movingTrace(5), gateGraph())
	require.NoError(t, err)
	assert.Len(t, result.Edges, 1)
}

func TestEdgeExclusionSetIsConfigurable(t *testing.T) {
	thresholds := config.DefaultThresholds
	thresholds.ExcludedHighways = nil // exclude nothing

	client := &fakeMatchClient{edges: []MatchedEdge{
		{NodeA: 5, NodeB: 6, DurationS: 20},
	}}
	m := NewEdgeMatcher(client, 100, thresholds)

	result, err := m.Match(context.Background(), movingTrace(5), gateGraph())
	require.NoError(t, err)
	assert.Len(t, result.Edges, 1)
}

func TestEdgeMatcherDegradesWhenServiceUnavailable(t *testing.T) {
	client := &fakeMatchClient{err: errors.New("connection refused")}
	m := NewEdgeMatcher(client, 100, config.DefaultThresholds)

	result, err := m.Match(context.Background(), movingTrace(5), gateGraph())
	require.NoError(t, err, "a dead matching service must not block the activity")
	assert.Empty(t, result.Edges)
}

func TestEdgeMatcherChunksLongTraces(t *testing.T) {
	client := &fakeMatchClient{}
	m := NewEdgeMatcher(client, 10, config.DefaultThresholds)

	_, err := m.Match(context.Background(), movingTrace(25), gateGraph())
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls)
}

func TestEdgeMatcherSkipsStationaryPoints(t *testing.T) {
	client := &fakeMatchClient{}
	m := NewEdgeMatcher(client, 100, config.DefaultThresholds)

	trace := movingTrace(5)
	for i := range trace {
		trace[i].Stationary = true
	}

	result, err := m.Match(context.Background(), trace, gateGraph())
	require.NoError(t, err)
	assert.Empty(t, result.Edges)
	assert.Zero(t, client.calls)
}
