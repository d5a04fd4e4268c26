package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/coverage"
	"github.com/strideatlas/streets-backend-go/internal/match"
	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/preprocess"
	"github.com/strideatlas/streets-backend-go/internal/repository"
	"github.com/strideatlas/streets-backend-go/internal/roadgraph"
	"github.com/strideatlas/streets-backend-go/internal/spatial"
)

// graphRadiusBufferM widens the graph query past the trace extent so edges
// just beyond the outermost point are present for matching.
const graphRadiusBufferM = 100.0

// minGraphRadiusM keeps very short activities from querying a degenerate
// area.
const minGraphRadiusM = 250.0

// ActivityService runs the full matching pipeline for one uploaded
// activity: preprocess, graph lookup, matching, aggregation, persistence.
// Pipelines for different activities are independent; no lock spans them.
type ActivityService struct {
	preprocessor *preprocess.Preprocessor
	provider     roadgraph.Provider
	matchers     []match.Matcher
	aggregator   *coverage.Aggregator
	coverageRepo *repository.CoverageRepository
	areaRepo     *repository.AreaRepository
	pool         pond.Pool
}

// NewActivityService wires the pipeline. The matcher list usually holds the
// node-proximity and edge strategies; either alone works.
func NewActivityService(
	thresholds config.Thresholds,
	provider roadgraph.Provider,
	matchers []match.Matcher,
	coverageRepo *repository.CoverageRepository,
	areaRepo *repository.AreaRepository,
) *ActivityService {
	return &ActivityService{
		preprocessor: preprocess.New(thresholds),
		provider:     provider,
		matchers:     matchers,
		aggregator:   coverage.NewAggregator(thresholds),
		coverageRepo: coverageRepo,
		areaRepo:     areaRepo,
		pool:         pond.NewPool(8, pond.WithQueueSize(256)),
	}
}

// ProcessResult is the outcome of one activity submission.
type ProcessResult struct {
	UnitsHit int `json:"unitsHit"`
}

// ProcessActivity is the single entry point the orchestration layer calls
// per uploaded activity. Unusable traces contribute nothing; dependency
// outages degrade stage by stage; only storage failures propagate, and
// those are safe to retry wholesale because every unit write is idempotent.
func (s *ActivityService) ProcessActivity(ctx context.Context, userID string, trace []models.TrackPoint, activityTime *time.Time) (*ProcessResult, error) {
	if len(trace) == 0 || userID == "" {
		return &ProcessResult{}, nil
	}

	fingerprint := activityFingerprint(userID, trace, activityTime)
	if done, units, err := s.coverageRepo.WasProcessed(ctx, userID, fingerprint); err != nil {
		return nil, err
	} else if done {
		log.Printf("[ActivityService] Duplicate activity %s for user %s, skipping", fingerprint[:12], userID)
		return &ProcessResult{UnitsHit: units}, nil
	}

	now := time.Now().UTC()

	cleaned := s.preprocessor.Clean(trace)
	if len(cleaned) == 0 {
		return &ProcessResult{}, s.coverageRepo.RecordProcessed(ctx, userID, fingerprint, 0, now)
	}

	lat, lng, radiusM := traceArea(cleaned)
	graph, err := s.provider.QueryArea(ctx, lat, lng, radiusM)
	if err != nil {
		return nil, fmt.Errorf("failed to load road graph: %w", err)
	}

	newNodes, newEdges, err := s.runMatchers(ctx, cleaned, graph)
	if err != nil {
		return nil, err
	}
	unitsHit := len(newNodes) + len(newEdges)

	if unitsHit > 0 {
		if err := s.persistUnits(ctx, userID, newNodes, newEdges, now); err != nil {
			return nil, err
		}
		if err := s.recomputeStreets(ctx, userID, graph, newNodes, newEdges, now); err != nil {
			return nil, err
		}
		if err := s.updateScopedAreas(ctx, userID, cleaned, activityTime, now); err != nil {
			return nil, err
		}
	}

	if err := s.coverageRepo.RecordProcessed(ctx, userID, fingerprint, unitsHit, now); err != nil {
		return nil, err
	}

	log.Printf("[ActivityService] Processed activity for user %s: %d units (%d nodes, %d edges)",
		userID, unitsHit, len(newNodes), len(newEdges))
	return &ProcessResult{UnitsHit: unitsHit}, nil
}

// runMatchers executes every configured strategy over the same cleaned
// trace and merges their units. A matcher error other than cancellation is
// degraded, not fatal.
func (s *ActivityService) runMatchers(ctx context.Context, cleaned []models.ProcessedPoint, graph *models.RoadGraph) ([]int64, []models.GraphEdge, error) {
	var nodes []int64
	nodeSeen := make(map[int64]struct{})
	var edges []models.GraphEdge
	edgeSeen := make(map[string]struct{})

	for _, m := range s.matchers {
		result, err := m.Match(ctx, cleaned, graph)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Printf("[ActivityService] Matcher %s failed, continuing degraded: %v", m.Name(), err)
			continue
		}
		for _, nodeID := range result.NodeIDs {
			if _, dup := nodeSeen[nodeID]; !dup {
				nodeSeen[nodeID] = struct{}{}
				nodes = append(nodes, nodeID)
			}
		}
		for _, edge := range result.Edges {
			if _, dup := edgeSeen[edge.EdgeID]; !dup {
				edgeSeen[edge.EdgeID] = struct{}{}
				edges = append(edges, edge)
			}
		}
	}
	return nodes, edges, nil
}

// persistUnits commits one activity's units. Writes are independent per
// unit, so they run concurrently on the worker pool; any failure aborts the
// activity (a retry is safe, the upserts are idempotent).
func (s *ActivityService) persistUnits(ctx context.Context, userID string, nodes []int64, edges []models.GraphEdge, at time.Time) error {
	group := s.pool.NewGroupContext(ctx)

	var mu sync.Mutex
	var firstErr error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, nodeID := range nodes {
		nodeID := nodeID
		group.Submit(func() {
			record(s.coverageRepo.MarkNodeHit(ctx, userID, nodeID, at))
		})
	}
	for _, edge := range edges {
		edge := edge
		group.Submit(func() {
			record(s.coverageRepo.UpsertEdge(ctx, userID, edge, at))
		})
	}

	if err := group.Wait(); err != nil {
		return fmt.Errorf("failed to persist units: %w", err)
	}
	if firstErr != nil {
		return fmt.Errorf("failed to persist units: %w", firstErr)
	}
	return nil
}

// recomputeStreets reads the user's cumulative hits for the whole graph in
// one consistent pass, after all unit writes committed, then merges the
// weighted street ratios. Percentages only ever move up (max-merge).
func (s *ActivityService) recomputeStreets(ctx context.Context, userID string, graph *models.RoadGraph, newNodes []int64, newEdges []models.GraphEdge, at time.Time) error {
	allNodeIDs := make([]int64, 0, len(graph.Nodes))
	for nodeID := range graph.Nodes {
		allNodeIDs = append(allNodeIDs, nodeID)
	}
	allEdgeIDs := make([]string, 0, len(graph.Edges))
	for _, edge := range graph.Edges {
		allEdgeIDs = append(allEdgeIDs, edge.EdgeID)
	}

	hitNodes, err := s.coverageRepo.HitNodes(ctx, userID, allNodeIDs)
	if err != nil {
		return err
	}
	runEdges, err := s.coverageRepo.RunEdges(ctx, userID, allEdgeIDs)
	if err != nil {
		return err
	}

	results := s.aggregator.Aggregate(graph, coverage.Hits{Nodes: hitNodes, Edges: runEdges})
	touched := coverage.TouchedStreets(graph, newNodes, newEdges)

	for _, street := range results {
		update := repository.StreetUpdate{
			StreetKey:   street.StreetKey,
			DisplayName: street.DisplayName,
			Percentage:  street.Percentage,
			Completed:   street.Completed,
			Touched:     touched[street.StreetKey],
		}
		if err := s.coverageRepo.MergeStreetProgress(ctx, userID, update, at); err != nil {
			return err
		}
	}
	return nil
}

// updateScopedAreas applies the overlap/scope filter and stamps the areas
// this activity is allowed to affect.
func (s *ActivityService) updateScopedAreas(ctx context.Context, userID string, cleaned []models.ProcessedPoint, activityTime *time.Time, at time.Time) error {
	areas, err := s.areaRepo.EligibleAreas(ctx, userID, activityTime)
	if err != nil {
		return err
	}
	if len(areas) == 0 {
		return nil
	}

	lat, lng, radiusM := traceArea(cleaned)
	var touched []int64
	for _, area := range areas {
		dist := spatial.HaversineDistance(lat, lng, area.Latitude, area.Longitude)
		if dist <= radiusM+area.RadiusM {
			touched = append(touched, area.ID)
		}
	}
	return s.areaRepo.TouchAreas(ctx, touched, at)
}

// traceArea computes the centroid of the cleaned trace and a radius that
// encloses all of its points, padded so nearby streets are in the graph.
func traceArea(points []models.ProcessedPoint) (lat, lng, radiusM float64) {
	for _, pt := range points {
		lat += pt.Latitude
		lng += pt.Longitude
	}
	lat /= float64(len(points))
	lng /= float64(len(points))

	for _, pt := range points {
		if d := spatial.HaversineDistance(lat, lng, pt.Latitude, pt.Longitude); d > radiusM {
			radiusM = d
		}
	}
	radiusM += graphRadiusBufferM
	if radiusM < minGraphRadiusM {
		radiusM = minGraphRadiusM
	}
	return lat, lng, radiusM
}

// activityFingerprint derives the idempotency key for one submission from
// its content, so the same activity synced twice is recognized without an
// upstream activity ID.
func activityFingerprint(userID string, trace []models.TrackPoint, activityTime *time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|", userID)
	if activityTime != nil {
		fmt.Fprintf(h, "%d|", activityTime.Unix())
	}
	for _, pt := range trace {
		fmt.Fprintf(h, "%.6f,%.6f,%d;", pt.Latitude, pt.Longitude, pt.Timestamp)
	}
	return hex.EncodeToString(h.Sum(nil))
}
