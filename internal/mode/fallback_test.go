package mode

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/travelogy-data/tripsense/internal/testutil"
	"github.com/travelogy-data/tripsense/internal/trip"
)

func startAt(t time.Time) *trip.FlexTime {
	ft := trip.NewFlexTime(t)
	return &ft
}

func TestFallback_ShortSlowTripIsWalk(t *testing.T) {
	res := predictFallback(trip.Record{DistanceKM: 0.5, DurationMinutes: 8})

	if res.Tier != TierFallback {
		t.Errorf("tier = %q, want %q", res.Tier, TierFallback)
	}
	if res.Mode != "walk" {
		t.Errorf("mode = %q, want walk (0.5 km in 8 min is 3.75 km/h)", res.Mode)
	}
	for label, p := range res.Probabilities {
		if p > res.Probabilities["walk"] && label != "walk" {
			t.Errorf("%s outranked walk: %v vs %v", label, p, res.Probabilities["walk"])
		}
	}
}

func TestFallback_FastLongTripIsMotorized(t *testing.T) {
	// 40 km in 30 minutes is 80 km/h on a weekday morning.
	rec := trip.Record{
		DistanceKM:      40,
		DurationMinutes: 30,
		StartTime:       startAt(time.Date(2025, 5, 12, 8, 0, 0, 0, time.UTC)),
	}
	res := predictFallback(rec)

	if res.Mode != "car" && res.Mode != "bus" {
		t.Errorf("mode = %q, want car or bus at 80 km/h", res.Mode)
	}
	for _, slow := range []string{"walk", "cycle"} {
		if res.Probabilities[slow] >= res.Probabilities[res.Mode] {
			t.Errorf("%s probability %v not below %s %v",
				slow, res.Probabilities[slow], res.Mode, res.Probabilities[res.Mode])
		}
	}
}

func TestFallback_ProbabilitiesFormValidDistribution(t *testing.T) {
	records := []trip.Record{
		{},
		{DistanceKM: 0.5, DurationMinutes: 8},
		{DistanceKM: 12, DurationMinutes: 40},
		{DistanceKM: 40, DurationMinutes: 30},
		{DistanceKM: 3, DurationMinutes: 12, StartTime: startAt(time.Date(2025, 5, 12, 23, 30, 0, 0, time.UTC))},
	}

	for i, rec := range records {
		res := predictFallback(rec)
		testutil.AssertProbabilityDistribution(t, res.Probabilities)
		if res.Confidence < 0.1 || res.Confidence > 0.95 {
			t.Errorf("record %d: confidence %v outside [0.1, 0.95]", i, res.Confidence)
		}
		if len(res.Probabilities) != len(Labels) {
			t.Errorf("record %d: %d modes in distribution, want %d", i, len(res.Probabilities), len(Labels))
		}
	}
}

func TestFallback_Deterministic(t *testing.T) {
	rec := trip.Record{
		DistanceKM:      7.3,
		DurationMinutes: 22,
		StartTime:       startAt(time.Date(2025, 5, 12, 17, 30, 0, 0, time.UTC)),
	}

	first := predictFallback(rec)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, predictFallback(rec)); diff != "" {
			t.Fatalf("run %d differs (-first +now):\n%s", i, diff)
		}
	}
}

func TestFallback_TransitHourBoost(t *testing.T) {
	base := trip.Record{DistanceKM: 10, DurationMinutes: 20} // 30 km/h

	rush := base
	rush.StartTime = startAt(time.Date(2025, 5, 12, 8, 0, 0, 0, time.UTC))
	night := base
	night.StartTime = startAt(time.Date(2025, 5, 12, 2, 0, 0, 0, time.UTC))

	rushRes := predictFallback(rush)
	nightRes := predictFallback(night)

	if rushRes.Probabilities["bus"] <= nightRes.Probabilities["bus"] {
		t.Errorf("bus probability at rush hour %v not above late night %v",
			rushRes.Probabilities["bus"], nightRes.Probabilities["bus"])
	}
}

func TestFallback_DerivesSpeedFromWaypoints(t *testing.T) {
	// No distance or duration on the record: both come from the track.
	start := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	wps := make([]trip.Waypoint, 0, 5)
	for i := 0; i < 5; i++ {
		wps = append(wps, trip.Waypoint{
			Lat:       52.0 + float64(i)*0.0001, // ~11 m steps
			Lng:       4.3,
			Timestamp: trip.NewFlexTime(start.Add(time.Duration(i) * 10 * time.Second)),
		})
	}
	res := predictFallback(trip.Record{Waypoints: wps})

	if res.Mode != "walk" {
		t.Errorf("mode = %q, want walk for ~4 km/h derived from waypoints", res.Mode)
	}
}
