package match

import (
	"context"
	"log"

	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

// EdgeMatcher snaps the trace onto the routable network through an external
// map-matching service and validates every candidate edge against three
// independent binary gates: minimum edge length, maximum plausible implied
// speed, and the excluded highway-type set. There is no partial credit; an
// edge passes all gates or is dropped silently.
type EdgeMatcher struct {
	client           MapMatchClient
	maxCoordsPerCall int
	thresholds       config.Thresholds
	excluded         map[string]struct{}
}

// NewEdgeMatcher creates the edge matcher. The excluded highway set comes
// from the thresholds and may be empty (exclude nothing).
func NewEdgeMatcher(client MapMatchClient, maxCoordsPerCall int, thresholds config.Thresholds) *EdgeMatcher {
	if maxCoordsPerCall < 2 {
		maxCoordsPerCall = 2
	}
	excluded := make(map[string]struct{}, len(thresholds.ExcludedHighways))
	for _, h := range thresholds.ExcludedHighways {
		excluded[h] = struct{}{}
	}
	return &EdgeMatcher{
		client:           client,
		maxCoordsPerCall: maxCoordsPerCall,
		thresholds:       thresholds,
		excluded:         excluded,
	}
}

// Name implements Matcher.
func (m *EdgeMatcher) Name() string { return "edge" }

// Match submits the trace in bounded-size chunks and returns the edges that
// passed every gate. If the matching service is fully unavailable the
// result is an empty edge set, not an error, so the activity pipeline can
// complete degraded instead of blocked.
func (m *EdgeMatcher) Match(ctx context.Context, trace []models.ProcessedPoint, graph *models.RoadGraph) (*Result, error) {
	if len(trace) < 2 || graph.IsEmpty() {
		return &Result{}, nil
	}

	// Only moving points carry map-matching signal; stationary points are
	// excluded from speed-dependent matching but were already counted by
	// the proximity strategy.
	moving := make([]models.ProcessedPoint, 0, len(trace))
	for _, pt := range trace {
		if !pt.Stationary {
			moving = append(moving, pt)
		}
	}
	if len(moving) < 2 {
		return &Result{}, nil
	}

	edgeByPair := indexEdges(graph)
	result := &Result{}
	seen := make(map[string]struct{})
	rejected := 0

	// Chunk boundaries may lose the one edge spanning two chunks; that is
	// an accepted approximation of the batched submission.
	for start := 0; start < len(moving); start += m.maxCoordsPerCall {
		end := start + m.maxCoordsPerCall
		if end > len(moving) {
			end = len(moving)
		}
		chunk := moving[start:end]
		if len(chunk) < 2 {
			break
		}

		matched, err := m.client.MatchTrace(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[EdgeMatcher] Matching service unavailable, returning accepted edges so far: %v", err)
			return result, nil
		}

		for _, step := range matched {
			edge, ok := edgeByPair[models.EdgeID(step.NodeA, step.NodeB, 0)]
			if !ok {
				continue
			}
			if _, dup := seen[edge.EdgeID]; dup {
				continue
			}
			if !m.accept(edge, step.DurationS) {
				rejected++
				continue
			}
			seen[edge.EdgeID] = struct{}{}
			result.Edges = append(result.Edges, edge)
		}
	}

	log.Printf("[EdgeMatcher] Accepted %d edges, rejected %d", len(result.Edges), rejected)
	return result, nil
}

// accept runs the three binary gates. Each is independently sufficient to
// reject. Implied speed is undefined when the step carries no duration, in
// which case that gate is skipped.
func (m *EdgeMatcher) accept(edge models.GraphEdge, durationS float64) bool {
	if edge.LengthMeters < m.thresholds.MinEdgeLengthM {
		return false
	}
	if durationS > 0 && edge.LengthMeters/durationS > m.thresholds.MaxPlausibleMS {
		return false
	}
	if _, banned := m.excluded[edge.HighwayType]; banned {
		return false
	}
	return true
}

// indexEdges keys graph edges by their direction-neutral node pair so
// matched steps resolve in constant time. The way component of the key is
// zeroed because the matching service reports node pairs, not ways; when
// two ways share a node pair the first edge wins, which only matters for
// exactly overlapping geometry.
func indexEdges(graph *models.RoadGraph) map[string]models.GraphEdge {
	byPair := make(map[string]models.GraphEdge, len(graph.Edges))
	for _, edge := range graph.Edges {
		key := models.EdgeID(edge.NodeA, edge.NodeB, 0)
		if _, exists := byPair[key]; !exists {
			byPair[key] = edge
		}
	}
	return byPair
}
