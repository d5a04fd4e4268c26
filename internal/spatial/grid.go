package spatial

import (
	"math"

	"github.com/strideatlas/streets-backend-go/internal/models"
)

// NodeIndex buckets graph nodes into a lat/lng grid so radius queries only
// inspect the 3x3 neighborhood of a point's cell. Cells are sized to the
// query radius in both axes (longitude scaled by the graph's latitude), so
// any node within radius of a point falls in one of the nine cells.
type NodeIndex struct {
	latCellDeg float64
	lngCellDeg float64
	cells      map[cellKey][]models.GraphNode
}

type cellKey struct {
	row, col int
}

// NewNodeIndex builds an index over the graph's nodes with cells sized to
// radiusM meters.
func NewNodeIndex(graph *models.RoadGraph, radiusM float64) *NodeIndex {
	// 1 degree of latitude is ~111.32 km. Longitude degrees shrink with
	// latitude; scale by the cosine at the graph's first node (a local
	// street graph spans far too little latitude for this to matter).
	const metersPerDeg = 111320.0
	cosLat := 1.0
	for _, node := range graph.Nodes {
		if c := math.Cos(node.Latitude * math.Pi / 180); c > 0.01 {
			cosLat = c
		}
		break
	}

	idx := &NodeIndex{
		latCellDeg: radiusM / metersPerDeg,
		lngCellDeg: radiusM / (metersPerDeg * cosLat),
		cells:      make(map[cellKey][]models.GraphNode),
	}
	for _, node := range graph.Nodes {
		key := idx.keyFor(node.Latitude, node.Longitude)
		idx.cells[key] = append(idx.cells[key], node)
	}
	return idx
}

func (idx *NodeIndex) keyFor(lat, lng float64) cellKey {
	return cellKey{
		row: int(math.Floor(lat / idx.latCellDeg)),
		col: int(math.Floor(lng / idx.lngCellDeg)),
	}
}

// Near returns all indexed nodes within radiusM meters of the point.
func (idx *NodeIndex) Near(lat, lng, radiusM float64) []models.GraphNode {
	center := idx.keyFor(lat, lng)

	var out []models.GraphNode
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			key := cellKey{row: center.row + dr, col: center.col + dc}
			for _, node := range idx.cells[key] {
				if HaversineDistance(lat, lng, node.Latitude, node.Longitude) <= radiusM {
					out = append(out, node)
				}
			}
		}
	}
	return out
}
