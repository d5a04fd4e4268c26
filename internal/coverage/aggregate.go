package coverage

import (
	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/models"
)

// Aggregator turns raw per-user hit data into per-street completion ratios.
type Aggregator struct {
	thresholds config.Thresholds
}

// NewAggregator creates an aggregator with the given thresholds.
func NewAggregator(thresholds config.Thresholds) *Aggregator {
	return &Aggregator{thresholds: thresholds}
}

// StreetResult is the computed state of one logical street.
type StreetResult struct {
	StreetKey   string
	DisplayName string
	Percentage  float64 // 0-100
	Completed   bool
	WayIDs      []int64
}

// Hits is the user's cumulative coverage input for one graph area: every
// node the user has ever hit and every edge they have ever run, restricted
// to the current graph.
type Hits struct {
	Nodes map[int64]bool  // nodeID -> hit
	Edges map[string]bool // edgeID -> run
}

// Aggregate computes the weighted completion ratio of every logical street
// in the graph from cumulative hits. Streets with zero coverage are
// omitted.
func (a *Aggregator) Aggregate(graph *models.RoadGraph, hits Hits) []StreetResult {
	if graph.IsEmpty() {
		return nil
	}

	coveredLen := a.coveredLengthByWay(graph, hits.Edges)

	type group struct {
		displayName string
		wayIDs      []int64
		weightedCov float64
		weightedLen float64
		anyCoverage bool
	}
	groups := make(map[string]*group)
	order := []string{}

	for wayID, way := range graph.Ways {
		frac := a.wayFraction(graph, way, hits.Nodes, coveredLen[wayID])

		key := StreetKeyFor(way.Name, wayID)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		if g.displayName == "" {
			g.displayName = way.Name
		}
		g.wayIDs = append(g.wayIDs, wayID)

		// Tiny connector stubs must not drag a street's ratio around,
		// in either direction.
		weight := way.TotalLengthMeters
		if way.TotalLengthMeters < a.thresholds.ConnectorLengthM {
			weight *= a.thresholds.ConnectorWeight
		}
		g.weightedCov += frac * weight
		g.weightedLen += weight
		if frac > 0 {
			g.anyCoverage = true
		}
	}

	var results []StreetResult
	for _, key := range order {
		g := groups[key]
		if !g.anyCoverage || g.weightedLen <= 0 {
			continue
		}
		ratio := g.weightedCov / g.weightedLen
		if ratio > 1 {
			ratio = 1
		}
		results = append(results, StreetResult{
			StreetKey:   key,
			DisplayName: g.displayName,
			Percentage:  ratio * 100,
			Completed:   ratio >= a.thresholds.StreetCompleteFrac,
			WayIDs:      g.wayIDs,
		})
	}
	return results
}

// wayFraction is one way's own coverage fraction: the better of the
// node-hit fraction and the covered-length fraction, so either matching
// strategy alone is sufficient. A way that meets its completion threshold
// counts as fully covered: short ways (at most ShortWayNodeLimit nodes)
// need every node, longer ways need WayCompletionFrac of them.
func (a *Aggregator) wayFraction(graph *models.RoadGraph, way models.Way, hitNodes map[int64]bool, coveredLenM float64) float64 {
	frac := 0.0

	if way.TotalNodeCount > 0 && len(hitNodes) > 0 {
		hits := 0
		for _, nodeID := range graph.WayNodes[way.WayID] {
			if hitNodes[nodeID] {
				hits++
			}
		}
		nodeFrac := float64(hits) / float64(way.TotalNodeCount)

		required := a.thresholds.WayCompletionFrac
		if way.TotalNodeCount <= a.thresholds.ShortWayNodeLimit {
			required = 1.0
		}
		if nodeFrac >= required {
			nodeFrac = 1.0
		}
		frac = nodeFrac
	}

	if way.TotalLengthMeters > 0 && coveredLenM > 0 {
		lenFrac := coveredLenM / way.TotalLengthMeters
		if lenFrac > 1 {
			lenFrac = 1
		}
		if lenFrac > frac {
			frac = lenFrac
		}
	}

	return frac
}

func (a *Aggregator) coveredLengthByWay(graph *models.RoadGraph, hitEdges map[string]bool) map[int64]float64 {
	covered := make(map[int64]float64)
	if len(hitEdges) == 0 {
		return covered
	}
	for _, edge := range graph.Edges {
		if hitEdges[edge.EdgeID] {
			covered[edge.WayID] += edge.LengthMeters
		}
	}
	return covered
}

// TouchedStreets maps one activity's freshly matched units to the street
// keys they belong to, for run-count bookkeeping.
func TouchedStreets(graph *models.RoadGraph, nodeIDs []int64, edges []models.GraphEdge) map[string]bool {
	touched := make(map[string]bool)

	if len(nodeIDs) > 0 {
		waysByNode := make(map[int64][]int64)
		for wayID, nodes := range graph.WayNodes {
			for _, nodeID := range nodes {
				waysByNode[nodeID] = append(waysByNode[nodeID], wayID)
			}
		}
		for _, nodeID := range nodeIDs {
			for _, wayID := range waysByNode[nodeID] {
				if way, ok := graph.Ways[wayID]; ok {
					touched[StreetKeyFor(way.Name, wayID)] = true
				}
			}
		}
	}

	for _, edge := range edges {
		touched[StreetKeyFor(edge.WayName, edge.WayID)] = true
	}

	return touched
}
