// Package trip holds the waypoint data model and the movement-analysis and
// segmentation passes that run over raw GPS fixes.
package trip

import "time"

// Waypoint is a single timestamped GPS fix. Waypoints are immutable once
// recorded and ordered by timestamp within a trip.
type Waypoint struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Timestamp FlexTime `json:"timestamp"`

	// Optional device-reported extras. Not required by any analysis pass.
	Altitude float64 `json:"altitude,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
	SpeedMS  float64 `json:"speed,omitempty"`
	Bearing  float64 `json:"bearing,omitempty"`
}

// Weather is the coarse weather snapshot attached to a trip record.
type Weather struct {
	TemperatureC  float64 `json:"temperature"`
	Condition     string  `json:"condition"`
	Precipitation float64 `json:"precipitation"`
}

// Record is a trip as delivered by the storage collaborator. Every field is
// optional; the feature builder substitutes documented defaults.
type Record struct {
	DistanceKM      float64    `json:"distance_km,omitempty"`
	DurationMinutes float64    `json:"duration_minutes,omitempty"`
	StartTime       *FlexTime  `json:"start_time,omitempty"`
	TimeOfDay       *int       `json:"time_of_day,omitempty"`
	Waypoints       []Waypoint `json:"waypoints,omitempty"`
	Weather         *Weather   `json:"weather,omitempty"`
	OriginAddress   string     `json:"origin_address,omitempty"`
	DestAddress     string     `json:"dest_address,omitempty"`
	DestLat         float64    `json:"dest_lat,omitempty"`
	DestLng         float64    `json:"dest_lng,omitempty"`
	RouteType       float64    `json:"route_type,omitempty"`

	// Labels, present on training samples and historical trips only.
	TransportMode string `json:"transport_mode,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
}

// HistoryTrip is a prior trip of the same user, used only by the purpose
// classifier's similarity scoring.
type HistoryTrip struct {
	StartTime FlexTime `json:"start_time"`
	Purpose   string   `json:"purpose"`
	DestLat   float64  `json:"dest_lat"`
	DestLng   float64  `json:"dest_lng"`
}

// MovementStats are the aggregate movement metrics derived from an ordered
// waypoint sequence. All speed and acceleration values are non-negative.
type MovementStats struct {
	AvgSpeedKMH      float64 `json:"avg_speed"`
	MaxSpeedKMH      float64 `json:"max_speed"`
	StopsCount       int     `json:"stops_count"`
	DirectionChanges int     `json:"direction_changes"`
	SmoothnessScore  float64 `json:"smoothness_score"`
	AvgAcceleration  float64 `json:"avg_acceleration"`
	MaxAcceleration  float64 `json:"max_acceleration"`
	AvgStopDuration  float64 `json:"avg_stop_duration"`
	TimedStops       int     `json:"timed_stops"`
}

// Segment is a maximal contiguous run of waypoints between two qualifying
// stops. StartIndex/EndIndex are inclusive positions in the input sequence;
// segments from one run are ordered and partition the input exactly.
type Segment struct {
	StartIndex    int        `json:"start_idx"`
	EndIndex      int        `json:"end_idx"`
	Waypoints     []Waypoint `json:"waypoints"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	PredictedMode string     `json:"predicted_mode,omitempty"`
}

// DistanceKM returns the summed pairwise haversine distance over the
// segment's waypoints.
func (s *Segment) DistanceKM() float64 {
	return PathDistanceKM(s.Waypoints)
}

// DurationMinutes returns the elapsed time between the segment's first and
// last waypoint, in minutes.
func (s *Segment) DurationMinutes() float64 {
	if len(s.Waypoints) < 2 {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Minutes()
}
