package service

import (
	"context"
	"sort"

	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/coverage"
	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/repository"
	"github.com/strideatlas/streets-backend-go/internal/roadgraph"
)

// CoverageService is the read path: it joins persisted street progress with
// the current graph geometry for an area, for map display.
type CoverageService struct {
	provider     roadgraph.Provider
	aggregator   *coverage.Aggregator
	coverageRepo *repository.CoverageRepository
}

// NewCoverageService creates the coverage read service.
func NewCoverageService(thresholds config.Thresholds, provider roadgraph.Provider, coverageRepo *repository.CoverageRepository) *CoverageService {
	return &CoverageService{
		provider:     provider,
		aggregator:   coverage.NewAggregator(thresholds),
		coverageRepo: coverageRepo,
	}
}

// GetAreaCoverage returns every logical street in the area with the user's
// progress. The persisted percentage wins over the freshly computed one
// when higher, so display agrees with monotonic storage.
// Segment status is back-propagated from the street status so one street
// renders consistently.
func (s *CoverageService) GetAreaCoverage(ctx context.Context, userID string, lat, lng, radiusM float64) ([]models.StreetCoverage, error) {
	graph, err := s.provider.QueryArea(ctx, lat, lng, radiusM)
	if err != nil {
		return nil, err
	}
	if graph.IsEmpty() {
		return nil, nil
	}

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
		return nil, err
	}
	runEdges, err := s.coverageRepo.RunEdges(ctx, userID, allEdgeIDs)
	if err != nil {
		return nil, err
	}

	results := s.aggregator.Aggregate(graph, coverage.Hits{Nodes: hitNodes, Edges: runEdges})

	keys := make([]string, 0, len(results))
	byKey := make(map[string]coverage.StreetResult, len(results))
	for _, r := range results {
		keys = append(keys, r.StreetKey)
		byKey[r.StreetKey] = r
	}

	persisted, err := s.coverageRepo.StreetProgress(ctx, userID, keys)
	if err != nil {
		return nil, err
	}

	edgesByWay := make(map[int64][]models.GraphEdge)
	for _, edge := range graph.Edges {
		edgesByWay[edge.WayID] = append(edgesByWay[edge.WayID], edge)
	}

	var streets []models.StreetCoverage
	for _, key := range keys {
		result := byKey[key]

		percentage := result.Percentage
		completed := result.Completed
		runCount := 0
		if row, ok := persisted[key]; ok {
			if row.Percentage > percentage {
				percentage = row.Percentage
			}
			completed = completed || row.EverCompleted
			runCount = row.RunCount
		}

		status := models.StreetStatusPartial
		if completed {
			status = models.StreetStatusCompleted
		}

		street := models.StreetCoverage{
			StreetKey:   key,
			DisplayName: result.DisplayName,
			Percentage:  percentage,
			Status:      status,
			RunCount:    runCount,
		}
		for _, wayID := range result.WayIDs {
			for _, edge := range edgesByWay[wayID] {
				street.Segments = append(street.Segments, models.SegmentCoverage{Edge: edge, Status: status})
			}
		}
		streets = append(streets, street)
	}

	sort.Slice(streets, func(i, j int) bool { return streets[i].StreetKey < streets[j].StreetKey })
	return streets, nil
}
