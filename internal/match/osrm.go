package match

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/strideatlas/streets-backend-go/internal/models"
)

// MatchedEdge is one node-pair step returned by the map-matching service.
// DurationS is 0 when the service reported no timing for the step.
type MatchedEdge struct {
	NodeA     int64
	NodeB     int64
	DurationS float64
}

// MapMatchClient snaps a batch of trace coordinates onto the routable
// network. A single call must stay under the service's coordinate cap;
// chunking is the EdgeMatcher's job.
type MapMatchClient interface {
	MatchTrace(ctx context.Context, points []models.ProcessedPoint) ([]MatchedEdge, error)
}

// OSRMClient calls an OSRM-style /match endpoint. Failures are retried
// across the ordered endpoint list with a per-attempt timeout.
type OSRMClient struct {
	endpoints []string
	timeout   time.Duration
	retries   int
	client    *http.Client
}

// NewOSRMClient creates a map-matching client for the fallback endpoint list.
func NewOSRMClient(endpoints []string, timeout time.Duration, retries int) *OSRMClient {
	if retries < 1 {
		retries = 1
	}
	return &OSRMClient{
		endpoints: endpoints,
		timeout:   timeout,
		retries:   retries,
		client:    &http.Client{},
	}
}

type osrmResponse struct {
	Code      string `json:"code"`
	Matchings []struct {
		Legs []struct {
			Annotation struct {
				Nodes    []int64   `json:"nodes"`
				Duration []float64 `json:"duration"`
			} `json:"annotation"`
		} `json:"legs"`
	} `json:"matchings"`
}

// MatchTrace submits one batch of coordinates and returns the matched
// node-pair steps with per-step durations.
func (c *OSRMClient) MatchTrace(ctx context.Context, points []models.ProcessedPoint) ([]MatchedEdge, error) {
	if len(points) < 2 {
		return nil, nil
	}

	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Longitude, p.Latitude)
	}
	path := fmt.Sprintf("/match/v1/foot/%s?annotations=nodes,duration&overview=false", strings.Join(coords, ";"))

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		for _, endpoint := range c.endpoints {
			edges, err := c.call(ctx, strings.TrimRight(endpoint, "/")+path)
			if err != nil {
				lastErr = err
				log.Printf("[OSRM] Match failed on %s (attempt %d): %v", endpoint, attempt+1, err)
				continue
			}
			return edges, nil
		}
	}

	return nil, fmt.Errorf("failed to match trace after %d attempts: %w", c.retries*len(c.endpoints), lastErr)
}

func (c *OSRMClient) call(ctx context.Context, url string) ([]MatchedEdge, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Code != "Ok" {
		return nil, fmt.Errorf("matching service returned code %q", parsed.Code)
	}

	var edges []MatchedEdge
	for _, matching := range parsed.Matchings {
		for _, leg := range matching.Legs {
			nodes := leg.Annotation.Nodes
			durations := leg.Annotation.Duration
			for i := 0; i < len(nodes)-1; i++ {
				edge := MatchedEdge{NodeA: nodes[i], NodeB: nodes[i+1]}
				if i < len(durations) {
					edge.DurationS = durations[i]
				}
				edges = append(edges, edge)
			}
		}
	}
	return edges, nil
}
