package roadgraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

type fakeRemote struct {
	graph *models.RoadGraph
	err   error
	calls int
}

func (f *fakeRemote) QueryArea(ctx context.Context, lat, lng, radiusM float64) (*models.RoadGraph, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.graph, nil
}

// twoEdgeGraph has one edge right at the center and one ~900 m north.
func twoEdgeGraph() *models.RoadGraph {
	graph := models.NewRoadGraph()
	graph.Nodes[1] = models.GraphNode{NodeID: 1, Latitude: 51.5000, Longitude: -0.1000}
	graph.Nodes[2] = models.GraphNode{NodeID: 2, Latitude: 51.5001, Longitude: -0.1000}
	graph.Nodes[3] = models.GraphNode{NodeID: 3, Latitude: 51.5081, Longitude: -0.1000}
	graph.Nodes[4] = models.GraphNode{NodeID: 4, Latitude: 51.5082, Longitude: -0.1000}
	graph.Edges = []models.GraphEdge{
		{EdgeID: models.EdgeID(1, 2, 10), NodeA: 1, NodeB: 2, WayID: 10, WayName: "Near Street", LengthMeters: 11},
		{EdgeID: models.EdgeID(3, 4, 11), NodeA: 3, NodeB: 4, WayID: 11, WayName: "Far Street", LengthMeters: 11},
	}
	graph.Ways[10] = models.Way{WayID: 10, Name: "Near Street", TotalNodeCount: 2, TotalLengthMeters: 11}
	graph.Ways[11] = models.Way{WayID: 11, Name: "Far Street", TotalNodeCount: 2, TotalLengthMeters: 11}
	graph.WayNodes[10] = []int64{1, 2}
	graph.WayNodes[11] = []int64{3, 4}
	return graph
}

func TestQueryAreaCachesExactRadius(t *testing.T) {
	remote := &fakeRemote{graph: twoEdgeGraph()}
	p := NewCachedProvider(remote, nil, Options{CacheExpiry: 24 * time.Hour})
	ctx := context.Background()

	first, err := p.QueryArea(ctx, 51.5, -0.1, 1000)
	require.NoError(t, err)
	second, err := p.QueryArea(ctx, 51.5, -0.1, 1000)
	require.NoError(t, err)

	assert.Equal(t, 1, remote.calls, "exact-radius hit must not re-query")
	assert.Same(t, first, second)
}

func TestQueryAreaReusesLargerRadiusEntry(t *testing.T) {
	remote := &fakeRemote{graph: twoEdgeGraph()}
	p := NewCachedProvider(remote, nil, Options{CacheExpiry: 24 * time.Hour})
	ctx := context.Background()

	_, err := p.QueryArea(ctx, 51.5, -0.1, 1000)
	require.NoError(t, err)

	// A smaller request at the same center filters the cached graph down
	// instead of issuing a second remote query.
	narrowed, err := p.QueryArea(ctx, 51.5, -0.1, 300)
	require.NoError(t, err)

	assert.Equal(t, 1, remote.calls)
	require.Len(t, narrowed.Edges, 1)
	assert.Equal(t, "Near Street", narrowed.Edges[0].WayName)
	// Way totals survive filtering so completion math still sees full ways.
	assert.Equal(t, 2, narrowed.Ways[10].TotalNodeCount)
}

func TestQueryAreaExpiryForcesRefetch(t *testing.T) {
	remote := &fakeRemote{graph: twoEdgeGraph()}
	p := NewCachedProvider(remote, nil, Options{CacheExpiry: time.Nanosecond})
	ctx := context.Background()

	_, err := p.QueryArea(ctx, 51.5, -0.1, 1000)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = p.QueryArea(ctx, 51.5, -0.1, 1000)
	require.NoError(t, err)

	assert.Equal(t, 2, remote.calls, "stale entries re-query even on an exact-radius hit")
}

func TestQueryAreaSkipRemoteReturnsEmptyGraph(t *testing.T) {
	remote := &fakeRemote{graph: twoEdgeGraph()}
	p := NewCachedProvider(remote, nil, Options{SkipRemote: true})

	graph, err := p.QueryArea(context.Background(), 51.5, -0.1, 1000)
	require.NoError(t, err, "skip-remote callers accept partial or empty graphs")
	assert.True(t, graph.IsEmpty())
	assert.Zero(t, remote.calls)
}

func TestQueryAreaDegradesOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{err: errors.New("all endpoints down")}
	p := NewCachedProvider(remote, nil, Options{})

	graph, err := p.QueryArea(context.Background(), 51.5, -0.1, 1000)
	require.NoError(t, err, "remote exhaustion degrades, it does not abort the activity")
	assert.True(t, graph.IsEmpty())
}
