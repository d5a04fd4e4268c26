package models

import "time"

// UserNodeHit marks that a user has ever been within snap radius of a graph
// node. Existence is the signal; there is no count.
type UserNodeHit struct {
	UserID     string    `json:"userId" db:"user_id"`
	NodeID     int64     `json:"nodeId" db:"node_id"`
	FirstHitAt time.Time `json:"firstHitAt" db:"first_hit_at"`
}

// UserEdge records a validated traversal of a graph edge. RunCount grows by
// one per activity that re-traverses the edge and never decreases.
type UserEdge struct {
	UserID       string    `json:"userId" db:"user_id"`
	EdgeID       string    `json:"edgeId" db:"edge_id"`
	NodeA        int64     `json:"nodeA" db:"node_a"`
	NodeB        int64     `json:"nodeB" db:"node_b"`
	WayID        int64     `json:"wayId" db:"way_id"`
	WayName      string    `json:"wayName" db:"way_name"`
	HighwayType  string    `json:"highwayType" db:"highway_type"`
	LengthMeters float64   `json:"lengthMeters" db:"length_m"`
	FirstRunAt   time.Time `json:"firstRunAt" db:"first_run_at"`
	RunCount     int       `json:"runCount" db:"run_count"`
}

// UserStreetProgress is the per-user state of one logical (name-merged)
// street. Percentage is the maximum ever observed, not the most recent.
type UserStreetProgress struct {
	UserID          string     `json:"userId" db:"user_id"`
	StreetKey       string     `json:"streetKey" db:"street_key"`
	DisplayName     string     `json:"displayName" db:"display_name"`
	Percentage      float64    `json:"percentage" db:"percentage"`
	RunCount        int        `json:"runCount" db:"run_count"`
	CompletionCount int        `json:"completionCount" db:"completion_count"`
	EverCompleted   bool       `json:"everCompleted" db:"ever_completed"`
	FirstRunDate    time.Time  `json:"firstRunDate" db:"first_run_date"`
	LastRunDate     *time.Time `json:"lastRunDate,omitempty" db:"last_run_date"`
}

// StreetStatus is the display status of a logical street.
type StreetStatus string

const (
	StreetStatusCompleted StreetStatus = "completed"
	StreetStatusPartial   StreetStatus = "partial"
)

// SegmentCoverage is one graph edge with the display status back-propagated
// from its logical street.
type SegmentCoverage struct {
	Edge   GraphEdge    `json:"edge"`
	Status StreetStatus `json:"status"`
}

// StreetCoverage is the read-path view joining persisted progress with the
// current graph geometry for an area.
type StreetCoverage struct {
	StreetKey   string            `json:"streetKey"`
	DisplayName string            `json:"displayName"`
	Percentage  float64           `json:"percentage"`
	Status      StreetStatus      `json:"status"`
	RunCount    int               `json:"runCount"`
	Segments    []SegmentCoverage `json:"segments"`
}

// Area is a user-defined region that accumulates coverage updates.
type Area struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	RadiusM   float64   `json:"radiusM" db:"radius_m"`
	Archived  bool      `json:"archived" db:"archived"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
