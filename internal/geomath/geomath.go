// Package geomath provides great-circle helpers shared by the waypoint
// analyser, segmenter and purpose classifier.
package geomath

import "math"

// EarthRadiusKM is the mean Earth radius used by the haversine formula.
const EarthRadiusKM = 6371.0

// DistanceKM returns the great-circle (haversine) distance in kilometres
// between two coordinates. Symmetric; zero for identical points.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// DistanceMeters returns the haversine distance in metres.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceKM(lat1, lon1, lat2, lon2) * 1000
}

// BearingDeg returns the initial bearing in degrees [0, 360) from the first
// coordinate to the second. Undefined for identical points, where it
// returns 0.
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dlon) * math.Cos(rlat2)
	x := math.Cos(rlat1)*math.Sin(rlat2) - math.Sin(rlat1)*math.Cos(rlat2)*math.Cos(dlon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// AngleDiffDeg returns the absolute angular difference between two bearings,
// normalised to [0, 180].
func AngleDiffDeg(b1, b2 float64) float64 {
	diff := math.Abs(b2 - b1)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
