package roadgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/spatial"
)

// OverpassClient queries an Overpass-compatible OSM service for the street
// graph around a point. Failures are retried across the ordered endpoint
// list with a per-attempt timeout.
type OverpassClient struct {
	endpoints []string
	timeout   time.Duration
	retries   int // passes over the endpoint list
	client    *http.Client
}

// NewOverpassClient creates a client for the given fallback endpoint list.
func NewOverpassClient(endpoints []string, timeout time.Duration, retries int) *OverpassClient {
	if retries < 1 {
		retries = 1
	}
	return &OverpassClient{
		endpoints: endpoints,
		timeout:   timeout,
		retries:   retries,
		client:    &http.Client{},
	}
}

// QueryArea fetches all highway-tagged ways around the center and assembles
// them into a road graph.
func (c *OverpassClient) QueryArea(ctx context.Context, lat, lng, radiusM float64) (*models.RoadGraph, error) {
	query := fmt.Sprintf(`[out:json][timeout:%d];way(around:%.0f,%.6f,%.6f)[highway];(._;>;);out body;`,
		int(c.timeout.Seconds()), radiusM, lat, lng)

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		for _, endpoint := range c.endpoints {
			resp, err := c.post(ctx, endpoint, query)
			if err != nil {
				lastErr = err
				log.Printf("[Overpass] Query failed on %s (attempt %d): %v", endpoint, attempt+1, err)
				continue
			}
			return buildGraph(resp), nil
		}
	}

	return nil, fmt.Errorf("failed to query road graph after %d attempts: %w", c.retries*len(c.endpoints), lastErr)
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

func (c *OverpassClient) post(ctx context.Context, endpoint, query string) (*overpassResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &parsed, nil
}

// buildGraph assembles nodes, edges and ways from raw Overpass elements.
// Edges connect consecutive nodes of a way; edge IDs are direction-neutral.
func buildGraph(resp *overpassResponse) *models.RoadGraph {
	graph := models.NewRoadGraph()

	for _, el := range resp.Elements {
		if el.Type == "node" {
			graph.Nodes[el.ID] = models.GraphNode{NodeID: el.ID, Latitude: el.Lat, Longitude: el.Lon}
		}
	}

	for _, el := range resp.Elements {
		if el.Type != "way" || len(el.Nodes) < 2 {
			continue
		}

		name := el.Tags["name"]
		highway := el.Tags["highway"]
		total := 0.0

		for i := 0; i < len(el.Nodes)-1; i++ {
			a, okA := graph.Nodes[el.Nodes[i]]
			b, okB := graph.Nodes[el.Nodes[i+1]]
			if !okA || !okB {
				continue
			}
			length := spatial.HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
			total += length
			graph.Edges = append(graph.Edges, models.GraphEdge{
				EdgeID:       models.EdgeID(a.NodeID, b.NodeID, el.ID),
				NodeA:        a.NodeID,
				NodeB:        b.NodeID,
				WayID:        el.ID,
				WayName:      name,
				HighwayType:  highway,
				LengthMeters: length,
			})
		}

		graph.Ways[el.ID] = models.Way{
			WayID:             el.ID,
			Name:              name,
			TotalNodeCount:    len(el.Nodes),
			TotalLengthMeters: total,
		}
		graph.WayNodes[el.ID] = el.Nodes
	}

	return graph
}
