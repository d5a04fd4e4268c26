package models

import "fmt"

// GraphNode is a point on the road graph. Reference data, shared read-only
// across all users.
type GraphNode struct {
	NodeID    int64   `json:"nodeId" db:"node_id"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// GraphEdge is the smallest routable unit between two nodes, belonging to
// one way. The edge ID is derived and stable per (nodeA, nodeB, way) triple.
type GraphEdge struct {
	EdgeID       string  `json:"edgeId" db:"edge_id"`
	NodeA        int64   `json:"nodeA" db:"node_a"`
	NodeB        int64   `json:"nodeB" db:"node_b"`
	WayID        int64   `json:"wayId" db:"way_id"`
	WayName      string  `json:"wayName" db:"way_name"`
	HighwayType  string  `json:"highwayType" db:"highway_type"`
	LengthMeters float64 `json:"lengthMeters" db:"length_m"`
}

// Way is an OSM-style named road entity, one level above edges.
type Way struct {
	WayID             int64   `json:"wayId" db:"way_id"`
	Name              string  `json:"name" db:"name"`
	TotalNodeCount    int     `json:"totalNodeCount" db:"node_count"`
	TotalLengthMeters float64 `json:"totalLengthMeters" db:"total_length_m"`
}

// RoadGraph is the local street graph for one queried area.
type RoadGraph struct {
	Nodes    map[int64]GraphNode
	Edges    []GraphEdge
	Ways     map[int64]Way
	WayNodes map[int64][]int64 // wayID -> ordered node IDs
}

// EdgeID derives the stable edge identifier for a node pair on a way. The
// node order is normalized so both traversal directions map to one edge.
func EdgeID(nodeA, nodeB, wayID int64) string {
	if nodeB < nodeA {
		nodeA, nodeB = nodeB, nodeA
	}
	return fmt.Sprintf("%d-%d-%d", nodeA, nodeB, wayID)
}

// IsEmpty reports whether the graph carries no usable street data.
func (g *RoadGraph) IsEmpty() bool {
	return g == nil || (len(g.Nodes) == 0 && len(g.Edges) == 0)
}

// NewRoadGraph returns an empty, initialized graph.
func NewRoadGraph() *RoadGraph {
	return &RoadGraph{
		Nodes:    make(map[int64]GraphNode),
		Ways:     make(map[int64]Way),
		WayNodes: make(map[int64][]int64),
	}
}
