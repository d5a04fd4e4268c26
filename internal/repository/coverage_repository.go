package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/strideatlas/streets-backend-go/internal/models"
)

// CoverageRepository accumulates per-user hit state. Every write follows
// the merge contract: upsert keyed by (userId, unitId), counters increment,
// percentage-like fields take the max, booleans OR. Each merge operation is
// commutative and idempotent, which is what makes concurrent activities for
// one user safe without locking.
type CoverageRepository struct {
	db *sql.DB
}

// NewCoverageRepository creates a new coverage repository.
func NewCoverageRepository(db *sql.DB) *CoverageRepository {
	return &CoverageRepository{db: db}
}

// MarkNodeHit records that the user has hit a node. Existence is the
// signal; re-marking is a no-op.
func (r *CoverageRepository) MarkNodeHit(ctx context.Context, userID string, nodeID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_node_hits (user_id, node_id, first_hit_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, node_id) DO NOTHING`,
		userID, nodeID, at)
	if err != nil {
		return fmt.Errorf("failed to mark node hit: %w", err)
	}
	return nil
}

// UpsertEdge records one traversal of an edge. First traversal creates the
// row; later ones only increment run_count.
func (r *CoverageRepository) UpsertEdge(ctx context.Context, userID string, edge models.GraphEdge, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_edges (user_id, edge_id, node_a, node_b, way_id, way_name, highway_type, length_m, first_run_at, run_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(user_id, edge_id) DO UPDATE SET run_count = run_count + 1`,
		userID, edge.EdgeID, edge.NodeA, edge.NodeB, edge.WayID, edge.WayName, edge.HighwayType, edge.LengthMeters, at)
	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// inChunkSize keeps IN lists well under SQLite's bound-variable limit.
const inChunkSize = 500

// HitNodes returns which of the given node IDs the user has ever hit.
func (r *CoverageRepository) HitNodes(ctx context.Context, userID string, nodeIDs []int64) (map[int64]bool, error) {
	hits := make(map[int64]bool)

	for start := 0; start < len(nodeIDs); start += inChunkSize {
		end := start + inChunkSize
		if end > len(nodeIDs) {
			end = len(nodeIDs)
		}
		chunk := nodeIDs[start:end]

		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, userID)
		for _, id := range chunk {
			args = append(args, id)
		}

		rows, err := r.db.QueryContext(ctx, `
			SELECT node_id FROM user_node_hits
			WHERE user_id = ? AND node_id IN (`+placeholderList(len(chunk))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query node hits: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan node hit: %w", err)
			}
			hits[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return hits, nil
}

// RunEdges returns which of the given edge IDs the user has ever run.
func (r *CoverageRepository) RunEdges(ctx context.Context, userID string, edgeIDs []string) (map[string]bool, error) {
	run := make(map[string]bool)

	for start := 0; start < len(edgeIDs); start += inChunkSize {
		end := start + inChunkSize
		if end > len(edgeIDs) {
			end = len(edgeIDs)
		}
		chunk := edgeIDs[start:end]

		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, userID)
		for _, id := range chunk {
			args = append(args, id)
		}

		rows, err := r.db.QueryContext(ctx, `
			SELECT edge_id FROM user_edges
			WHERE user_id = ? AND edge_id IN (`+placeholderList(len(chunk))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query run edges: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan run edge: %w", err)
			}
			run[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return run, nil
}

// StreetUpdate is one street's newly computed state for a merge.
type StreetUpdate struct {
	StreetKey   string
	DisplayName string
	Percentage  float64
	Completed   bool
	Touched     bool // the activity produced a nonzero hit on this street
}

// MergeStreetProgress applies the monotonic merge rule for one street:
// percentage takes the max of stored and computed, run_count increments
// only when the activity touched the street, completion_count increments
// only on the transition into completed, and ever_completed never goes
// back to false.
func (r *CoverageRepository) MergeStreetProgress(ctx context.Context, userID string, update StreetUpdate, at time.Time) error {
	completed := 0
	if update.Completed {
		completed = 1
	}
	touched := 0
	if update.Touched {
		touched = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_street_progress
			(user_id, street_key, display_name, percentage, run_count, completion_count, ever_completed, first_run_date, last_run_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, street_key) DO UPDATE SET
			percentage       = MAX(percentage, excluded.percentage),
			run_count        = run_count + excluded.run_count,
			completion_count = completion_count + CASE WHEN excluded.ever_completed = 1 AND ever_completed = 0 THEN 1 ELSE 0 END,
			ever_completed   = MAX(ever_completed, excluded.ever_completed),
			display_name     = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE display_name END,
			last_run_date    = CASE WHEN excluded.run_count > 0 THEN excluded.last_run_date ELSE last_run_date END`,
		userID, update.StreetKey, update.DisplayName, update.Percentage,
		touched, completed, completed, at, at)
	if err != nil {
		return fmt.Errorf("failed to merge street progress: %w", err)
	}
	return nil
}

// StreetProgress reads the persisted progress rows for a set of street keys.
func (r *CoverageRepository) StreetProgress(ctx context.Context, userID string, streetKeys []string) (map[string]models.UserStreetProgress, error) {
	out := make(map[string]models.UserStreetProgress)
	if len(streetKeys) == 0 {
		return out, nil
	}

	args := make([]interface{}, 0, len(streetKeys)+1)
	args = append(args, userID)
	for _, key := range streetKeys {
		args = append(args, key)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, street_key, display_name, percentage, run_count, completion_count, ever_completed, first_run_date, last_run_date
		FROM user_street_progress
		WHERE user_id = ? AND street_key IN (`+placeholderList(len(streetKeys))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query street progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.UserStreetProgress
		var everCompleted int
		if err := rows.Scan(&p.UserID, &p.StreetKey, &p.DisplayName, &p.Percentage,
			&p.RunCount, &p.CompletionCount, &everCompleted, &p.FirstRunDate, &p.LastRunDate); err != nil {
			return nil, fmt.Errorf("failed to scan street progress: %w", err)
		}
		p.EverCompleted = everCompleted == 1
		out[p.StreetKey] = p
	}
	return out, rows.Err()
}

// WasProcessed reports whether an activity fingerprint has already been
// committed for this user.
func (r *CoverageRepository) WasProcessed(ctx context.Context, userID, fingerprint string) (bool, int, error) {
	var units int
	err := r.db.QueryRowContext(ctx,
		`SELECT units_hit FROM processed_activities WHERE user_id = ? AND fingerprint = ?`,
		userID, fingerprint).Scan(&units)
	if err == sql.ErrNoRows {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to query processed activity: %w", err)
	}
	return true, units, nil
}

// RecordProcessed commits an activity fingerprint so a resubmission becomes
// a zero-effect no-op.
func (r *CoverageRepository) RecordProcessed(ctx context.Context, userID, fingerprint string, unitsHit int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processed_activities (user_id, fingerprint, units_hit, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, fingerprint) DO NOTHING`,
		userID, fingerprint, unitsHit, at)
	if err != nil {
		return fmt.Errorf("failed to record processed activity: %w", err)
	}
	return nil
}
