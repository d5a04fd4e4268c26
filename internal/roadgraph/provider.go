package roadgraph

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/spatial"
)

// Provider supplies the local street graph for a bounding area.
type Provider interface {
	QueryArea(ctx context.Context, lat, lng, radiusM float64) (*models.RoadGraph, error)
}

// RemoteClient issues a live road-graph query against an external service.
type RemoteClient interface {
	QueryArea(ctx context.Context, lat, lng, radiusM float64) (*models.RoadGraph, error)
}

// SnapshotStore is the pluggable offline graph source. Fetched reference
// data is written back through it so later reads can run without the remote.
type SnapshotStore interface {
	SaveGraph(ctx context.Context, graph *models.RoadGraph) error
	LoadGraph(ctx context.Context, box spatial.BoundingBox) (*models.RoadGraph, error)
}

// Options configures a CachedProvider.
type Options struct {
	CacheExpiry time.Duration
	SkipRemote  bool // never call the remote; cached/snapshot data only
}

type cacheEntry struct {
	graph     *models.RoadGraph
	radiusM   float64
	fetchedAt time.Time
}

// CachedProvider is a cache-first graph provider. The cache is shared and
// read-mostly; concurrent population of the same key may race, which is
// fine since the graph is immutable reference data (last write wins).
type CachedProvider struct {
	remote   RemoteClient
	snapshot SnapshotStore
	opts     Options
	cache    *xsync.Map[string, *cacheEntry]
}

// NewCachedProvider creates a provider backed by the given remote client and
// snapshot store. Either may be nil (a nil remote behaves like SkipRemote).
func NewCachedProvider(remote RemoteClient, snapshot SnapshotStore, opts Options) *CachedProvider {
	return &CachedProvider{
		remote:   remote,
		snapshot: snapshot,
		opts:     opts,
		cache:    xsync.NewMap[string, *cacheEntry](),
	}
}

// QueryArea returns the street graph around a center point. An exact-radius
// cache hit returns immediately; a fresh entry with a strictly larger radius
// at the same center is filtered down instead of re-querying. On remote
// exhaustion the provider degrades to snapshot data, then to an empty graph,
// never to a hard failure.
func (p *CachedProvider) QueryArea(ctx context.Context, lat, lng, radiusM float64) (*models.RoadGraph, error) {
	key := centerKey(lat, lng)

	if entry, ok := p.cache.Load(key); ok && !p.expired(entry) && entry.radiusM >= radiusM {
		if entry.radiusM == radiusM {
			return entry.graph, nil
		}
		return filterGraph(entry.graph, lat, lng, radiusM), nil
	}

	if p.opts.SkipRemote || p.remote == nil {
		graph := p.fromSnapshot(ctx, lat, lng, radiusM)
		p.cache.Store(key, &cacheEntry{graph: graph, radiusM: radiusM, fetchedAt: time.Now()})
		return graph, nil
	}

	graph, err := p.remote.QueryArea(ctx, lat, lng, radiusM)
	if err != nil {
		log.Printf("[RoadGraph] Remote query failed, degrading to snapshot: %v", err)
		return p.fromSnapshot(ctx, lat, lng, radiusM), nil
	}

	if p.snapshot != nil {
		if err := p.snapshot.SaveGraph(ctx, graph); err != nil {
			return nil, fmt.Errorf("failed to persist reference graph: %w", err)
		}
	}

	p.cache.Store(key, &cacheEntry{graph: graph, radiusM: radiusM, fetchedAt: time.Now()})
	return graph, nil
}

func (p *CachedProvider) expired(entry *cacheEntry) bool {
	if p.opts.CacheExpiry <= 0 {
		return false
	}
	return time.Since(entry.fetchedAt) > p.opts.CacheExpiry
}

func (p *CachedProvider) fromSnapshot(ctx context.Context, lat, lng, radiusM float64) *models.RoadGraph {
	if p.snapshot == nil {
		return models.NewRoadGraph()
	}
	graph, err := p.snapshot.LoadGraph(ctx, spatial.BoundingBoxAround(lat, lng, radiusM))
	if err != nil {
		log.Printf("[RoadGraph] Snapshot read failed: %v", err)
		return models.NewRoadGraph()
	}
	return graph
}

// centerKey rounds the center to ~11 m so nearby lookups share one entry.
func centerKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// filterGraph narrows a graph to edges with at least one endpoint within
// radiusM of the center. Way totals are kept intact so completion math sees
// the full way, not the clipped part.
func filterGraph(graph *models.RoadGraph, lat, lng, radiusM float64) *models.RoadGraph {
	out := models.NewRoadGraph()

	within := func(nodeID int64) bool {
		node, ok := graph.Nodes[nodeID]
		if !ok {
			return false
		}
		return spatial.HaversineDistance(lat, lng, node.Latitude, node.Longitude) <= radiusM
	}

	for _, edge := range graph.Edges {
		if !within(edge.NodeA) && !within(edge.NodeB) {
			continue
		}
		out.Edges = append(out.Edges, edge)
		if node, ok := graph.Nodes[edge.NodeA]; ok {
			out.Nodes[node.NodeID] = node
		}
		if node, ok := graph.Nodes[edge.NodeB]; ok {
			out.Nodes[node.NodeID] = node
		}
		if way, ok := graph.Ways[edge.WayID]; ok {
			out.Ways[way.WayID] = way
			out.WayNodes[way.WayID] = graph.WayNodes[way.WayID]
		}
	}

	return out
}
