package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Port   string
	DBPath string

	// Road graph provider
	OverpassEndpoints []string
	GraphTimeout      time.Duration
	GraphRetries      int // attempts per endpoint
	CacheExpiryDays   int
	SkipRemote        bool // serve from cache/snapshot only

	// Map matching
	MatchEndpoints   []string
	MatchTimeout     time.Duration
	MatchRetries     int
	MaxCoordsPerCall int

	Thresholds Thresholds
}

// Thresholds is the full tuning surface of the matching pipeline. All of
// these are binary gates, not sliding scores.
type Thresholds struct {
	// Preprocessing
	JumpDistanceM     float64 // consecutive-point distance above this drops the second point
	StoppedSpeedMS    float64 // below this the point is marked stationary (kept)
	MinSpeedTimeDelta int64   // seconds; below this speed is undefined for the pair

	// Node-proximity matching
	SnapRadiusM float64

	// Edge validation gates
	MinEdgeLengthM   float64
	MaxPlausibleMS   float64
	ExcludedHighways []string

	// Coverage aggregation
	ShortWayNodeLimit  int     // ways with at most this many nodes need every node hit
	WayCompletionFrac  float64 // longer ways complete at this hit fraction
	ConnectorLengthM   float64 // segments shorter than this are connectors
	ConnectorWeight    float64 // relative weight of a connector segment
	StreetCompleteFrac float64 // weighted street ratio needed for "completed"
}

// DefaultThresholds provides the default tuning values.
var DefaultThresholds = Thresholds{
	JumpDistanceM:      200.0,
	StoppedSpeedMS:     0.5,
	MinSpeedTimeDelta:  1,
	SnapRadiusM:        25.0,
	MinEdgeLengthM:     5.0,
	MaxPlausibleMS:     12.5, // 45 km/h
	ExcludedHighways:   []string{"service", "driveway", "parking_aisle"},
	ShortWayNodeLimit:  10,
	WayCompletionFrac:  0.90,
	ConnectorLengthM:   15.0,
	ConnectorWeight:    0.2,
	StreetCompleteFrac: 0.90,
}

// Load reads configuration from the environment, falling back to defaults.
func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", ":8080"),
		DBPath:            getEnv("DB_PATH", "./data/streets/streets.db"),
		OverpassEndpoints: getEnvList("OVERPASS_ENDPOINTS", []string{"https://overpass-api.de/api/interpreter", "https://overpass.kumi.systems/api/interpreter"}),
		GraphTimeout:      getEnvDuration("GRAPH_TIMEOUT", 25*time.Second),
		GraphRetries:      getEnvInt("GRAPH_RETRIES", 2),
		CacheExpiryDays:   getEnvInt("CACHE_EXPIRY_DAYS", 30),
		SkipRemote:        getEnvBool("SKIP_REMOTE", false),
		MatchEndpoints:    getEnvList("MATCH_ENDPOINTS", []string{"https://router.project-osrm.org"}),
		MatchTimeout:      getEnvDuration("MATCH_TIMEOUT", 15*time.Second),
		MatchRetries:      getEnvInt("MATCH_RETRIES", 2),
		MaxCoordsPerCall:  getEnvInt("MAX_COORDS_PER_CALL", 100),
		Thresholds:        DefaultThresholds,
	}

	cfg.Thresholds.JumpDistanceM = getEnvFloat("JUMP_DISTANCE_M", cfg.Thresholds.JumpDistanceM)
	cfg.Thresholds.SnapRadiusM = getEnvFloat("SNAP_RADIUS_M", cfg.Thresholds.SnapRadiusM)
	cfg.Thresholds.MinEdgeLengthM = getEnvFloat("MIN_EDGE_LENGTH_M", cfg.Thresholds.MinEdgeLengthM)
	cfg.Thresholds.MaxPlausibleMS = getEnvFloat("MAX_PLAUSIBLE_SPEED_MS", cfg.Thresholds.MaxPlausibleMS)
	if v := os.Getenv("EXCLUDED_HIGHWAYS"); v != "" {
		cfg.Thresholds.ExcludedHighways = splitList(v)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return splitList(v)
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
