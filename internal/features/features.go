// Package features maps trip records onto the fixed-order numeric feature
// vector shared with the trained model bundle. The column order is a
// versioned contract: any change forces a bundle re-train.
package features

import (
	"strings"
	"time"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/trip"
)

// Columns is the feature schema, in vector order.
var Columns = []string{
	"distance_km",
	"duration_minutes",
	"avg_speed",
	"time_of_day",
	"day_of_week",
	"is_weekend",
	"is_rush_hour",
	"max_speed",
	"stops_count",
	"direction_changes",
	"avg_acceleration",
	"max_acceleration",
	"weather_temp",
	"weather_condition",
	"is_precipitation",
	"route_type",
}

// weatherCodes maps condition strings to their numeric encoding. Unknown
// conditions encode as 0 (clear).
var weatherCodes = map[string]float64{
	"clear":         0,
	"sunny":         0,
	"partly_cloudy": 1,
	"cloudy":        2,
	"overcast":      2,
	"mist":          3,
	"fog":           3,
	"drizzle":       4,
	"rain":          5,
	"heavy_rain":    6,
	"thunderstorm":  7,
	"snow":          8,
	"sleet":         9,
	"hail":          10,
}

// EncodeWeatherCondition returns the numeric code for a weather condition
// string, tolerant of case and spaces.
func EncodeWeatherCondition(condition string) float64 {
	key := strings.ReplaceAll(strings.ToLower(condition), " ", "_")
	return weatherCodes[key]
}

// Weekday returns the day of week with Monday as 0, the convention the
// trained models were fitted with.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Builder produces feature vectors from trip records, substituting
// documented defaults for missing inputs. Stateless and safe for concurrent
// use.
type Builder struct {
	analyzer *trip.Analyzer
}

// NewBuilder returns a Builder using the given tuning thresholds for its
// waypoint analysis.
func NewBuilder(cfg *config.TuningConfig) *Builder {
	return &Builder{analyzer: trip.NewAnalyzer(cfg)}
}

// Vector maps a trip record to the feature schema. Missing inputs take
// their defaults: duration from waypoints or 10 minutes, hour 12 when no
// start time, neutral weather (20C, clear, dry), max speed at 1.5x the
// average when no waypoints are available.
func (b *Builder) Vector(rec trip.Record) []float64 {
	distance := rec.DistanceKM

	duration := rec.DurationMinutes
	if duration <= 0 && len(rec.Waypoints) >= 2 {
		first := rec.Waypoints[0].Timestamp.Time
		last := rec.Waypoints[len(rec.Waypoints)-1].Timestamp.Time
		duration = last.Sub(first).Minutes()
	}
	if duration <= 0 {
		duration = 10
	}

	avgSpeed := 0.0
	if duration > 0 {
		avgSpeed = (distance / duration) * 60
	}

	var timeOfDay, dayOfWeek, isWeekend, isRushHour float64
	if rec.StartTime != nil && !rec.StartTime.IsZero() {
		start := rec.StartTime.Time
		hour := start.Hour()
		timeOfDay = float64(hour)
		dayOfWeek = float64(Weekday(start))
		if Weekday(start) >= 5 {
			isWeekend = 1
		}
		if (hour >= 7 && hour <= 10) || (hour >= 16 && hour <= 19) {
			isRushHour = 1
		}
	} else if rec.TimeOfDay != nil {
		timeOfDay = float64(*rec.TimeOfDay)
	} else {
		timeOfDay = 12
	}

	var maxSpeed, stops, dirChanges, avgAccel, maxAccel float64
	if len(rec.Waypoints) > 0 {
		stats := b.analyzer.Analyze(rec.Waypoints)
		maxSpeed = stats.MaxSpeedKMH
		stops = float64(stats.StopsCount)
		dirChanges = float64(stats.DirectionChanges)
		avgAccel = stats.AvgAcceleration
		maxAccel = stats.MaxAcceleration
	} else {
		maxSpeed = avgSpeed * 1.5
	}

	weatherTemp, weatherCode, precip := 20.0, 0.0, 0.0
	if rec.Weather != nil {
		weatherTemp = rec.Weather.TemperatureC
		weatherCode = EncodeWeatherCondition(rec.Weather.Condition)
		if rec.Weather.Precipitation > 0 {
			precip = 1
		}
	}

	return []float64{
		distance,
		duration,
		avgSpeed,
		timeOfDay,
		dayOfWeek,
		isWeekend,
		isRushHour,
		maxSpeed,
		stops,
		dirChanges,
		avgAccel,
		maxAccel,
		weatherTemp,
		weatherCode,
		precip,
		rec.RouteType,
	}
}
