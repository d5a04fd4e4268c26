package preprocess

import (
	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/models"
	"github.com/strideatlas/streets-backend-go/internal/spatial"
)

// Preprocessor cleans a raw GPS trace before matching. It is a pure
// transform: it never errors and an empty input yields an empty output.
type Preprocessor struct {
	thresholds config.Thresholds
}

// New creates a preprocessor with the given thresholds.
func New(thresholds config.Thresholds) *Preprocessor {
	return &Preprocessor{thresholds: thresholds}
}

// Clean removes GPS jumps and marks stationary points.
//
// A point farther than JumpDistanceM from its accepted predecessor is a GPS
// error and is dropped; the gap is preserved, not bridged. Points moving
// slower than StoppedSpeedMS are kept but flagged stationary so
// speed-dependent gates can skip them. Speed is undefined (and no speed rule
// applies) when the time delta between points is below MinSpeedTimeDelta or
// either timestamp is missing.
func (p *Preprocessor) Clean(trace []models.TrackPoint) []models.ProcessedPoint {
	if len(trace) == 0 {
		return nil
	}

	out := make([]models.ProcessedPoint, 0, len(trace))
	out = append(out, models.ProcessedPoint{TrackPoint: trace[0]})

	for _, pt := range trace[1:] {
		prev := out[len(out)-1]
		dist := spatial.HaversineDistance(prev.Latitude, prev.Longitude, pt.Latitude, pt.Longitude)

		if dist > p.thresholds.JumpDistanceM {
			continue
		}

		speed, ok := speedBetween(prev.TrackPoint, pt, p.thresholds.MinSpeedTimeDelta)
		out = append(out, models.ProcessedPoint{
			TrackPoint: pt,
			Stationary: ok && speed < p.thresholds.StoppedSpeedMS,
		})
	}

	return out
}

// speedBetween computes instantaneous speed in m/s between two points.
// Returns false when the speed is undefined for the pair.
func speedBetween(a, b models.TrackPoint, minDeltaS int64) (float64, bool) {
	if a.Timestamp == 0 || b.Timestamp == 0 {
		return 0, false
	}
	delta := b.Timestamp - a.Timestamp
	if delta < minDeltaS {
		return 0, false
	}
	dist := spatial.HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	return dist / float64(delta), true
}
