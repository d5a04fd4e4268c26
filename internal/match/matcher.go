package match

import (
	"context"

	"github.com/strideatlas/streets-backend-go/internal/models"
)

// Result carries the coverage units one matching pass produced. A matcher
// fills NodeIDs, Edges, or both.
type Result struct {
	NodeIDs []int64
	Edges   []models.GraphEdge
}

// Units is the total number of coverage units in the result.
func (r *Result) Units() int {
	return len(r.NodeIDs) + len(r.Edges)
}

// Matcher turns a preprocessed trace plus a local street graph into
// coverage units. The two implementations (node proximity and edge
// matching) are interchangeable; they share nothing but this shape.
type Matcher interface {
	Name() string
	Match(ctx context.Context, trace []models.ProcessedPoint, graph *models.RoadGraph) (*Result, error)
}
