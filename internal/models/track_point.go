package models

// TrackPoint represents a single raw GPS sample from an uploaded activity.
// Timestamp is a Unix timestamp in seconds; 0 means the device did not
// record one (sparse traces are allowed).
type TrackPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// ProcessedPoint is a track point after preprocessing. Stationary points are
// kept (they still count for proximity hits) but flagged so speed-dependent
// gates can skip them.
type ProcessedPoint struct {
	TrackPoint
	Stationary bool
}
