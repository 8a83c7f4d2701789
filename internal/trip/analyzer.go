package trip

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/geomath"
)

// Analyzer derives aggregate movement statistics from an ordered waypoint
// sequence. It is stateless and safe for concurrent use.
type Analyzer struct {
	cfg *config.TuningConfig
}

// NewAnalyzer returns an Analyzer using the given tuning thresholds.
func NewAnalyzer(cfg *config.TuningConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// PathDistanceKM sums the pairwise haversine distances over a waypoint
// sequence.
func PathDistanceKM(wps []Waypoint) float64 {
	var total float64
	for i := 1; i < len(wps); i++ {
		total += geomath.DistanceKM(wps[i-1].Lat, wps[i-1].Lng, wps[i].Lat, wps[i].Lng)
	}
	return total
}

// Analyze scans consecutive waypoint pairs and produces MovementStats.
//
// Pairs with non-positive elapsed time (duplicate or non-monotonic
// timestamps) are silently excluded from the speed statistics. Fewer than
// two waypoints yields the documented neutral stats with a smoothness score
// of 0.5.
func (a *Analyzer) Analyze(wps []Waypoint) MovementStats {
	if len(wps) < 2 {
		return MovementStats{SmoothnessScore: 0.5}
	}

	stopSpeed := a.cfg.GetStopSpeedKMH()
	minTimedStop := a.cfg.GetMinTimedStopSeconds()

	var speeds, accelerations, stopDurations []float64
	stopsCount := 0

	for i := 1; i < len(wps); i++ {
		prev, curr := wps[i-1], wps[i]

		distance := geomath.DistanceKM(prev.Lat, prev.Lng, curr.Lat, curr.Lng)
		elapsed := curr.Timestamp.Sub(prev.Timestamp.Time).Seconds()
		if elapsed <= 0 {
			continue
		}

		speed := distance / (elapsed / 3600)

		if len(speeds) > 0 {
			accelerations = append(accelerations, (speed-speeds[len(speeds)-1])/elapsed)
		}
		speeds = append(speeds, speed)

		if speed < stopSpeed {
			stopsCount++
			// Stop duration is derivable only when a following fix exists.
			if i+1 < len(wps) {
				stopDuration := wps[i+1].Timestamp.Sub(curr.Timestamp.Time).Seconds()
				if stopDuration > minTimedStop {
					stopDurations = append(stopDurations, stopDuration)
				}
			}
		}
	}

	directionChanges := a.countDirectionChanges(wps)

	stats := MovementStats{
		StopsCount:       stopsCount,
		DirectionChanges: directionChanges,
		TimedStops:       len(stopDurations),
	}
	if len(speeds) > 0 {
		stats.AvgSpeedKMH = stat.Mean(speeds, nil)
		stats.MaxSpeedKMH = floats.Max(speeds)
	}
	if len(accelerations) > 0 {
		absAccel := make([]float64, len(accelerations))
		for i, acc := range accelerations {
			absAccel[i] = math.Abs(acc)
		}
		stats.AvgAcceleration = stat.Mean(absAccel, nil)
		stats.MaxAcceleration = floats.Max(absAccel)
	}
	if len(stopDurations) > 0 {
		stats.AvgStopDuration = stat.Mean(stopDurations, nil)
	}

	// Smoothness decreases with both direction changes and stops; it is a
	// derived feature, not ground truth.
	smoothness := 1.0 / (1.0 + 0.1*float64(directionChanges) + 0.05*float64(stopsCount))
	stats.SmoothnessScore = math.Min(1.0, math.Max(0.1, smoothness))

	return stats
}

// countDirectionChanges counts consecutive bearing pairs differing by more
// than the configured threshold. Requires at least three waypoints.
func (a *Analyzer) countDirectionChanges(wps []Waypoint) int {
	if len(wps) < 3 {
		return 0
	}
	threshold := a.cfg.GetDirectionChangeDeg()
	changes := 0
	for i := 2; i < len(wps); i++ {
		b1 := geomath.BearingDeg(wps[i-2].Lat, wps[i-2].Lng, wps[i-1].Lat, wps[i-1].Lng)
		b2 := geomath.BearingDeg(wps[i-1].Lat, wps[i-1].Lng, wps[i].Lat, wps[i].Lng)
		if geomath.AngleDiffDeg(b1, b2) > threshold {
			changes++
		}
	}
	return changes
}
