package coverage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

// addWay appends a way of nodeCount evenly spaced nodes and totalLen meters
// to the graph. Node IDs start at base.
func addWay(graph *models.RoadGraph, wayID, base int64, name string, nodeCount int, totalLen float64) {
	nodes := make([]int64, nodeCount)
	edgeLen := totalLen / float64(nodeCount-1)
	for i := 0; i < nodeCount; i++ {
		id := base + int64(i)
		nodes[i] = id
		graph.Nodes[id] = models.GraphNode{NodeID: id}
		if i > 0 {
			graph.Edges = append(graph.Edges, models.GraphEdge{
				EdgeID:       models.EdgeID(id-1, id, wayID),
				NodeA:        id - 1,
				NodeB:        id,
				WayID:        wayID,
				WayName:      name,
				LengthMeters: edgeLen,
			})
		}
	}
	graph.Ways[wayID] = models.Way{WayID: wayID, Name: name, TotalNodeCount: nodeCount, TotalLengthMeters: totalLen}
	graph.WayNodes[wayID] = nodes
}

func hitFirstNodes(graph *models.RoadGraph, wayID int64, n int) map[int64]bool {
	hits := make(map[int64]bool)
	for _, nodeID := range graph.WayNodes[wayID][:n] {
		hits[nodeID] = true
	}
	return hits
}

func TestShortWayRequiresEveryNode(t *testing.T) {
	agg := NewAggregator(config.DefaultThresholds)

	graph := models.NewRoadGraph()
	addWay(graph, 1, 100, "Maple Close", 8, 120)

	// 7 of 8 hit: partial, never completed.
	results := agg.Aggregate(graph, Hits{Nodes: hitFirstNodes(graph, 1, 7)})
	require.Len(t, results, 1)
	assert.False(t, results[0].Completed)
	assert.Less(t, results[0].Percentage, 90.0)

	// All 8: completed.
	results = agg.Aggregate(graph, Hits{Nodes: hitFirstNodes(graph, 1, 8)})
	require.Len(t, results, 1)
	assert.True(t, results[0].Completed)
	assert.InDelta(t, 100.0, results[0].Percentage, 0.001)
}

func TestLongWayCompletesAtNinetyPercent(t *testing.T) {
	agg := NewAggregator(config.DefaultThresholds)

	graph := models.NewRoadGraph()
	addWay(graph, 1, 1000, "Long Road", 100, 2000)

	results := agg.Aggregate(graph, Hits{Nodes: hitFirstNodes(graph, 1, 89)})
	require.Len(t, results, 1)
	assert.False(t, results[0].Completed, "89 of 100 nodes is not enough")

	results = agg.Aggregate(graph, Hits{Nodes: hitFirstNodes(graph, 1, 90)})
	require.Len(t, results, 1)
	assert.True(t, results[0].Completed, "90 of 100 nodes completes the way")
}

func TestNameMergeGroupsRouteCodeVariant(t *testing.T) {
	agg := NewAggregator(config.DefaultThresholds)

	graph := models.NewRoadGraph()
	addWay(graph, 1, 100, "Elm Grove", 5, 100)
	addWay(graph, 2, 200, "Elm Grove (B2154)", 5, 100)
	addWay(graph, 3, 300, "Oak Avenue", 5, 100)

	hits := hitFirstNodes(graph, 1, 5)
	for id := range hitFirstNodes(graph, 2, 5) {
		hits[id] = true
	}
	for id := range hitFirstNodes(graph, 3, 5) {
		hits[id] = true
	}

	results := agg.Aggregate(graph, Hits{Nodes: hits})
	require.Len(t, results, 2)

	byKey := make(map[string]StreetResult)
	for _, r := range results {
		byKey[r.StreetKey] = r
	}
	elm, ok := byKey["elm grove"]
	require.True(t, ok)
	assert.ElementsMatch(t, []int64{1, 2}, elm.WayIDs)
	_, ok = byKey["oak avenue"]
	assert.True(t, ok)
}

func TestConnectorDownWeighting(t *testing.T) {
	agg := NewAggregator(config.DefaultThresholds)

	graph := models.NewRoadGraph()
	// 5 m fully covered connector stub plus a 200 m primary segment at
	// half coverage, same logical street.
	addWay(graph, 1, 100, "Elm Grove", 2, 5)
	addWay(graph, 2, 200, "Elm Grove", 3, 200)

	hits := Hits{Edges: map[string]bool{
		models.EdgeID(100, 101, 1): true, // the whole connector
		models.EdgeID(200, 201, 2): true, // half the primary
	}}

	results := agg.Aggregate(graph, hits)
	require.Len(t, results, 1)

	// Weighted ratio: (1.0*5*0.2 + 0.5*200) / (5*0.2 + 200) = 50.25%,
	// close to the primary's own 50%, not inflated by the connector.
	assert.InDelta(t, 50.25, results[0].Percentage, 0.01)
	assert.False(t, results[0].Completed)
}

func TestUnnamedWaysStaySeparate(t *testing.T) {
	agg := NewAggregator(config.DefaultThresholds)

	graph := models.NewRoadGraph()
	addWay(graph, 7, 100, "", 3, 50)
	addWay(graph, 8, 200, "", 3, 50)

	hits := hitFirstNodes(graph, 7, 3)
	for id := range hitFirstNodes(graph, 8, 3) {
		hits[id] = true
	}

	results := agg.Aggregate(graph, Hits{Nodes: hits})
	require.Len(t, results, 2)
	keys := []string{results[0].StreetKey, results[1].StreetKey}
	assert.ElementsMatch(t, []string{fmt.Sprintf("way:%d", 7), fmt.Sprintf("way:%d", 8)}, keys)
}

func TestZeroCoverageStreetsOmitted(t *testing.T) {
	agg := NewAggregator(config.DefaultThresholds)

	graph := models.NewRoadGraph()
	addWay(graph, 1, 100, "Elm Grove", 5, 100)

	assert.Empty(t, agg.Aggregate(graph, Hits{}))
}
