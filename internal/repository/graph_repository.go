package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/spatial"
)

// GraphRepository stores the immutable road-graph reference data. It doubles
// as the offline snapshot source for the graph provider: areas fetched once
// can be served again without the remote.
type GraphRepository struct {
	db *sql.DB
}

// NewGraphRepository creates a new graph repository.
func NewGraphRepository(db *sql.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

// SaveGraph upserts the graph's nodes, edges and ways. Reference data is
// never mutated by activity processing, so conflicting rows are simply
// replaced with identical content.
func (r *GraphRepository) SaveGraph(ctx context.Context, graph *models.RoadGraph) error {
	if graph.IsEmpty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_nodes (node_id, latitude, longitude) VALUES (?, ?, ?)
		ON CONFLICT(node_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare node statement: %w", err)
	}
	defer nodeStmt.Close()

	for _, node := range graph.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, node.NodeID, node.Latitude, node.Longitude); err != nil {
			return fmt.Errorf("failed to insert node %d: %w", node.NodeID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_edges (edge_id, node_a, node_b, way_id, way_name, highway_type, length_m)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(edge_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge statement: %w", err)
	}
	defer edgeStmt.Close()

	for _, edge := range graph.Edges {
		if _, err := edgeStmt.ExecContext(ctx, edge.EdgeID, edge.NodeA, edge.NodeB,
			edge.WayID, edge.WayName, edge.HighwayType, edge.LengthMeters); err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", edge.EdgeID, err)
		}
	}

	wayStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ways (way_id, name, node_count, total_length_m) VALUES (?, ?, ?, ?)
		ON CONFLICT(way_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare way statement: %w", err)
	}
	defer wayStmt.Close()

	wayNodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO way_nodes (way_id, node_id, position) VALUES (?, ?, ?)
		ON CONFLICT(way_id, position) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare way-node statement: %w", err)
	}
	defer wayNodeStmt.Close()

	for _, way := range graph.Ways {
		if _, err := wayStmt.ExecContext(ctx, way.WayID, way.Name, way.TotalNodeCount, way.TotalLengthMeters); err != nil {
			return fmt.Errorf("failed to insert way %d: %w", way.WayID, err)
		}
		for pos, nodeID := range graph.WayNodes[way.WayID] {
			if _, err := wayNodeStmt.ExecContext(ctx, way.WayID, nodeID, pos); err != nil {
				return fmt.Errorf("failed to insert way node: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("[GraphRepository] Saved %d nodes, %d edges, %d ways", len(graph.Nodes), len(graph.Edges), len(graph.Ways))
	return nil
}

// LoadGraph reads the stored reference graph for a bounding box. Ways are
// included whole whenever any of their edges touches the box, keeping way
// totals intact for completion math.
func (r *GraphRepository) LoadGraph(ctx context.Context, box spatial.BoundingBox) (*models.RoadGraph, error) {
	graph := models.NewRoadGraph()

	wayRows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT w.way_id, w.name, w.node_count, w.total_length_m
		FROM ways w
		JOIN way_nodes wn ON wn.way_id = w.way_id
		JOIN graph_nodes n ON n.node_id = wn.node_id
		WHERE n.latitude BETWEEN ? AND ? AND n.longitude BETWEEN ? AND ?`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("failed to query ways: %w", err)
	}
	defer wayRows.Close()

	var wayIDs []interface{}
	for wayRows.Next() {
		var way models.Way
		if err := wayRows.Scan(&way.WayID, &way.Name, &way.TotalNodeCount, &way.TotalLengthMeters); err != nil {
			return nil, fmt.Errorf("failed to scan way: %w", err)
		}
		graph.Ways[way.WayID] = way
		wayIDs = append(wayIDs, way.WayID)
	}
	if err := wayRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ways: %w", err)
	}
	if len(wayIDs) == 0 {
		return graph, nil
	}

	placeholders := placeholderList(len(wayIDs))

	nodeRows, err := r.db.QueryContext(ctx, `
		SELECT wn.way_id, wn.position, n.node_id, n.latitude, n.longitude
		FROM way_nodes wn
		JOIN graph_nodes n ON n.node_id = wn.node_id
		WHERE wn.way_id IN (`+placeholders+`)
		ORDER BY wn.way_id, wn.position`, wayIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query way nodes: %w", err)
	}
	defer nodeRows.Close()

	for nodeRows.Next() {
		var wayID int64
		var position int
		var node models.GraphNode
		if err := nodeRows.Scan(&wayID, &position, &node.NodeID, &node.Latitude, &node.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan way node: %w", err)
		}
		graph.Nodes[node.NodeID] = node
		graph.WayNodes[wayID] = append(graph.WayNodes[wayID], node.NodeID)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating way nodes: %w", err)
	}

	edgeRows, err := r.db.QueryContext(ctx, `
		SELECT edge_id, node_a, node_b, way_id, way_name, highway_type, length_m
		FROM graph_edges
		WHERE way_id IN (`+placeholders+`)`, wayIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var edge models.GraphEdge
		if err := edgeRows.Scan(&edge.EdgeID, &edge.NodeA, &edge.NodeB, &edge.WayID,
			&edge.WayName, &edge.HighwayType, &edge.LengthMeters); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		graph.Edges = append(graph.Edges, edge)
	}
	return graph, edgeRows.Err()
}

func placeholderList(n int) string {
	if n == 0 {
		return ""
	}
	out := "?"
	for i := 1; i < n; i++ {
		out += ",?"
	}
	return out
}
