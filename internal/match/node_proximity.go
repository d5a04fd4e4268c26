package match

import (
	"context"
	"log"

	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/spatial"
)

// NodeProximityMatcher marks every graph node within the snap radius of any
// trace point as hit. No map matching or graph traversal is involved; the
// deliberate cost is the odd false positive near dense intersections, the
// gain is zero external dependencies. Stationary points still count here.
type NodeProximityMatcher struct {
	snapRadiusM float64
}

// NewNodeProximityMatcher creates the proximity matcher.
func NewNodeProximityMatcher(snapRadiusM float64) *NodeProximityMatcher {
	return &NodeProximityMatcher{snapRadiusM: snapRadiusM}
}

// Name implements Matcher.
func (m *NodeProximityMatcher) Name() string { return "node_proximity" }

// Match returns the set of node IDs within the snap radius of the trace.
// First hit wins; repeats are no-ops.
func (m *NodeProximityMatcher) Match(ctx context.Context, trace []models.ProcessedPoint, graph *models.RoadGraph) (*Result, error) {
	if len(trace) == 0 || graph.IsEmpty() {
		return &Result{}, nil
	}

	index := spatial.NewNodeIndex(graph, m.snapRadiusM)
	seen := make(map[int64]struct{})
	result := &Result{}

	for _, pt := range trace {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, node := range index.Near(pt.Latitude, pt.Longitude, m.snapRadiusM) {
			if _, dup := seen[node.NodeID]; dup {
				continue
			}
			seen[node.NodeID] = struct{}{}
			result.NodeIDs = append(result.NodeIDs, node.NodeID)
		}
	}

	log.Printf("[NodeProximityMatcher] %d points hit %d nodes", len(trace), len(result.NodeIDs))
	return result, nil
}
