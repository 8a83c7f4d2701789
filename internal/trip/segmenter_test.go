package trip

import (
	"testing"
	"time"

	"github.com/travelogy-data/tripsense/internal/config"
)

// stopTrack builds movement, a held stop of stopSeconds, then movement.
func stopTrack(stopSeconds float64, stopFixes int) []Waypoint {
	steps := steadySteps(6, 10, 20)
	perFix := stopSeconds / float64(stopFixes)
	steps = append(steps, steadySteps(stopFixes, perFix, 0)...)
	steps = append(steps, steadySteps(6, 10, 20)...)
	return track(testStart, steps)
}

// assertPartition checks the index-partition invariant: contiguous, ordered,
// covering the input exactly once.
func assertPartition(t *testing.T, segs []Segment, n int) {
	t.Helper()
	if len(segs) == 0 {
		t.Fatal("no segments")
	}
	if segs[0].StartIndex != 0 {
		t.Errorf("first segment starts at %d, want 0", segs[0].StartIndex)
	}
	if segs[len(segs)-1].EndIndex != n-1 {
		t.Errorf("last segment ends at %d, want %d", segs[len(segs)-1].EndIndex, n-1)
	}
	for i, seg := range segs {
		if seg.EndIndex < seg.StartIndex {
			t.Errorf("segment %d: end %d < start %d", i, seg.EndIndex, seg.StartIndex)
		}
		if len(seg.Waypoints) != seg.EndIndex-seg.StartIndex+1 {
			t.Errorf("segment %d: %d waypoints for range [%d,%d]", i, len(seg.Waypoints), seg.StartIndex, seg.EndIndex)
		}
		if i > 0 && seg.StartIndex != segs[i-1].EndIndex+1 {
			t.Errorf("segment %d starts at %d, previous ended at %d", i, seg.StartIndex, segs[i-1].EndIndex)
		}
	}
}

func TestSplit_LongStopSplitsTrip(t *testing.T) {
	s := NewSegmenter(config.DefaultTuningConfig())
	wps := stopTrack(400, 4) // 400s stop, above the 300s default

	segs := s.Split(wps)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	assertPartition(t, segs, len(wps))

	// The split lands at the stop boundary: first segment ends on the last
	// stationary fix, second begins with the first moving one.
	if segs[0].EndIndex != 10 || segs[1].StartIndex != 11 {
		t.Errorf("split at [%d|%d], want [10|11]", segs[0].EndIndex, segs[1].StartIndex)
	}
}

func TestSplit_ShortStopIsNoise(t *testing.T) {
	s := NewSegmenter(config.DefaultTuningConfig())
	wps := stopTrack(100, 2) // 100s stop, below threshold

	segs := s.Split(wps)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	assertPartition(t, segs, len(wps))
}

func TestSplit_MinimumDataPolicy(t *testing.T) {
	s := NewSegmenter(config.DefaultTuningConfig())
	wps := track(testStart, steadySteps(5, 10, 20)) // 6 waypoints, below the 10 minimum

	segs := s.Split(wps)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].StartIndex != 0 || segs[0].EndIndex != len(wps)-1 {
		t.Errorf("segment range [%d,%d], want whole input", segs[0].StartIndex, segs[0].EndIndex)
	}
	if segs[0].PredictedMode != "" {
		t.Errorf("short input must not carry a mode, got %q", segs[0].PredictedMode)
	}
}

func TestSplit_Empty(t *testing.T) {
	s := NewSegmenter(config.DefaultTuningConfig())
	if segs := s.Split(nil); segs != nil {
		t.Errorf("Split(nil) = %v, want nil", segs)
	}
}

func TestSplit_CustomThreshold(t *testing.T) {
	s := NewSegmenter(config.DefaultTuningConfig())
	s.MinStopDuration = 60 * time.Second

	wps := stopTrack(100, 2) // 100s stop now exceeds the 60s override
	segs := s.Split(wps)
	if len(segs) != 2 {
		t.Fatalf("got %d segments with 60s threshold, want 2", len(segs))
	}
	assertPartition(t, segs, len(wps))
}

func TestSplit_TwoLongStops(t *testing.T) {
	s := NewSegmenter(config.DefaultTuningConfig())

	steps := steadySteps(5, 10, 20)
	steps = append(steps, steadySteps(2, 200, 0)...) // 400s stop
	steps = append(steps, steadySteps(5, 10, 20)...)
	steps = append(steps, steadySteps(2, 250, 0)...) // 500s stop
	steps = append(steps, steadySteps(5, 10, 20)...)
	wps := track(testStart, steps)

	segs := s.Split(wps)
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	assertPartition(t, segs, len(wps))
	for i, seg := range segs {
		if !seg.EndTime.After(seg.StartTime) {
			t.Errorf("segment %d: end %v not after start %v", i, seg.EndTime, seg.StartTime)
		}
	}
}

func TestSegmentMetrics(t *testing.T) {
	wps := track(testStart, steadySteps(10, 60, 12)) // 10 min, 2 km
	seg := makeSegment(wps, 0, len(wps)-1)

	if d := seg.DistanceKM(); d < 1.9 || d > 2.1 {
		t.Errorf("segment distance = %v, want ~2.0", d)
	}
	if m := seg.DurationMinutes(); m != 10 {
		t.Errorf("segment duration = %v minutes, want 10", m)
	}
}
