package geomath

import (
	"math"
	"testing"
)

func TestDistanceKM_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{52.5200, 13.4050, 48.8566, 2.3522},   // Berlin -> Paris
		{40.7128, -74.0060, 34.0522, -118.24}, // NYC -> LA
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{0.001, 0.001, -0.001, -0.001},
	}
	for _, p := range pairs {
		ab := DistanceKM(p[0], p[1], p[2], p[3])
		ba := DistanceKM(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("distance not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestDistanceKM_IdenticalPoints(t *testing.T) {
	if d := DistanceKM(51.5, -0.12, 51.5, -0.12); d != 0 {
		t.Errorf("distance between identical points = %v, want 0", d)
	}
}

func TestDistanceKM_KnownValue(t *testing.T) {
	// Berlin to Paris is roughly 878 km great-circle.
	d := DistanceKM(52.5200, 13.4050, 48.8566, 2.3522)
	if d < 860 || d > 900 {
		t.Errorf("Berlin-Paris distance = %v km, want ~878", d)
	}
}

func TestDistanceKM_Monotonic(t *testing.T) {
	near := DistanceKM(51.5, 0, 51.5, 0.01)
	far := DistanceKM(51.5, 0, 51.5, 0.1)
	if near >= far {
		t.Errorf("closer pair (%v) not smaller than farther pair (%v)", near, far)
	}
}

func TestBearingDeg_Range(t *testing.T) {
	coords := [][4]float64{
		{0, 0, 1, 0},   // due north
		{0, 0, 0, 1},   // due east
		{0, 0, -1, 0},  // due south
		{0, 0, 0, -1},  // due west
		{51.5, -0.12, 48.85, 2.35},
		{-10, 100, 20, -100},
	}
	for _, c := range coords {
		b := BearingDeg(c[0], c[1], c[2], c[3])
		if b < 0 || b >= 360 {
			t.Errorf("bearing %v out of [0,360)", b)
		}
	}
}

func TestBearingDeg_CardinalDirections(t *testing.T) {
	cases := []struct {
		name string
		lat2 float64
		lon2 float64
		want float64
	}{
		{"north", 1, 0, 0},
		{"east", 0, 1, 90},
		{"south", -1, 0, 180},
		{"west", 0, -1, 270},
	}
	for _, tc := range cases {
		got := BearingDeg(0, 0, tc.lat2, tc.lon2)
		if math.Abs(got-tc.want) > 0.01 {
			t.Errorf("%s bearing = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAngleDiffDeg(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{0, 90, 90},
		{350, 10, 20},
		{10, 350, 20},
		{180, 0, 180},
		{45, 45, 0},
	}
	for _, tc := range cases {
		if got := AngleDiffDeg(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("AngleDiffDeg(%v,%v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
