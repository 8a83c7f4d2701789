package trip

import (
	"time"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/geomath"
)

// Segmenter splits an ordered waypoint sequence into sub-trips at
// sufficiently long stops. It is a two-state scan (moving / stopped) driven
// by the same low-speed threshold as the analyser. Stateless and safe for
// concurrent use.
type Segmenter struct {
	cfg *config.TuningConfig

	// MinStopDuration overrides the configured segmentation threshold when
	// positive.
	MinStopDuration time.Duration
}

// NewSegmenter returns a Segmenter using the given tuning thresholds.
func NewSegmenter(cfg *config.TuningConfig) *Segmenter {
	return &Segmenter{cfg: cfg}
}

func (s *Segmenter) minStopSeconds() float64 {
	if s.MinStopDuration > 0 {
		return s.MinStopDuration.Seconds()
	}
	return s.cfg.GetMinStopDurationSeconds()
}

// Split partitions the waypoint sequence into segments. A stop shorter than
// the minimum stop duration is treated as noise and does not split the trip.
// Inputs shorter than the configured minimum waypoint count short-circuit to
// a single segment covering the whole trip; this is a minimum-data policy,
// not an error. The returned segments are contiguous, ordered, and cover
// every input index exactly once; the final open segment is always emitted,
// even with a single waypoint.
func (s *Segmenter) Split(wps []Waypoint) []Segment {
	if len(wps) == 0 {
		return nil
	}
	if len(wps) < s.cfg.GetMinSegmentWaypoints() {
		return []Segment{makeSegment(wps, 0, len(wps)-1)}
	}

	stopSpeed := s.cfg.GetStopSpeedKMH()
	minStop := s.minStopSeconds()

	var segments []Segment
	segmentStart := 0
	inStop := false
	var stopStart time.Time

	for i := 1; i < len(wps); i++ {
		prev, curr := wps[i-1], wps[i]

		elapsed := curr.Timestamp.Sub(prev.Timestamp.Time).Seconds()
		if elapsed <= 0 {
			continue
		}
		distance := geomath.DistanceKM(prev.Lat, prev.Lng, curr.Lat, curr.Lng)
		speed := (distance / elapsed) * 3600

		if speed < stopSpeed {
			if !inStop {
				inStop = true
				stopStart = prev.Timestamp.Time
			}
			continue
		}

		if inStop {
			stopDuration := prev.Timestamp.Sub(stopStart).Seconds()
			if stopDuration >= minStop {
				// Close the running segment at the last stopped fix and
				// resume from the first moving one, so the index ranges
				// partition the input.
				segments = append(segments, makeSegment(wps, segmentStart, i-1))
				segmentStart = i
			}
			inStop = false
		}
	}

	segments = append(segments, makeSegment(wps, segmentStart, len(wps)-1))
	return segments
}

func makeSegment(wps []Waypoint, start, end int) Segment {
	seg := Segment{
		StartIndex: start,
		EndIndex:   end,
		Waypoints:  wps[start : end+1],
	}
	seg.StartTime = seg.Waypoints[0].Timestamp.Time
	seg.EndTime = seg.Waypoints[len(seg.Waypoints)-1].Timestamp.Time
	return seg
}
