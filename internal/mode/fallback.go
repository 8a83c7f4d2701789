// Package mode predicts the transport mode of a trip. Two tiers exist: a
// trained ensemble over a loaded model bundle, and a deterministic
// rule-based fallback that needs no artifacts at all.
package mode

import (
	"github.com/travelogy-data/tripsense/internal/trip"
)

// Labels is the fixed transport-mode label set shared by both tiers and by
// trained bundles. Order matters: it is the class order of every trained
// model.
var Labels = []string{"walk", "cycle", "bike", "car", "bus", "metro"}

// speedProfile is the plausible speed envelope and prior for one mode.
type speedProfile struct {
	minSpeed  float64 // km/h
	maxSpeed  float64 // km/h
	basePrior float64
}

var profiles = map[string]speedProfile{
	"walk":  {0, 8, 0.30},
	"cycle": {5, 25, 0.20},
	"bike":  {15, 60, 0.10},
	"car":   {10, 120, 0.25},
	"bus":   {5, 50, 0.10},
	"metro": {20, 80, 0.05},
}

// fallbackInput is the handful of trip attributes the rule tier scores on.
type fallbackInput struct {
	distanceKM float64
	avgSpeed   float64
	hour       int
}

func newFallbackInput(rec trip.Record) fallbackInput {
	distance := rec.DistanceKM
	duration := rec.DurationMinutes
	if duration <= 0 && len(rec.Waypoints) >= 2 {
		first := rec.Waypoints[0].Timestamp.Time
		last := rec.Waypoints[len(rec.Waypoints)-1].Timestamp.Time
		duration = last.Sub(first).Minutes()
	}
	if distance <= 0 && len(rec.Waypoints) >= 2 {
		distance = trip.PathDistanceKM(rec.Waypoints)
	}

	avgSpeed := 0.0
	if duration > 0 {
		avgSpeed = (distance / duration) * 60
	}

	hour := 12
	if rec.StartTime != nil && !rec.StartTime.IsZero() {
		hour = rec.StartTime.Hour()
	} else if rec.TimeOfDay != nil {
		hour = *rec.TimeOfDay
	}

	return fallbackInput{distanceKM: distance, avgSpeed: avgSpeed, hour: hour}
}

// fallbackScores computes the unnormalised per-mode scores. Fully
// deterministic: identical inputs always produce identical scores.
func fallbackScores(in fallbackInput) map[string]float64 {
	scores := make(map[string]float64, len(Labels))

	for _, label := range Labels {
		p := profiles[label]
		score := p.basePrior

		// Speed fit: 1.0 inside the envelope, linear decay with relative
		// distance outside it.
		speedFit := 1.0
		switch {
		case in.avgSpeed < p.minSpeed && p.minSpeed > 0:
			speedFit = maxf(0, 1-(p.minSpeed-in.avgSpeed)/p.minSpeed)
		case in.avgSpeed > p.maxSpeed:
			speedFit = maxf(0, 1-(in.avgSpeed-p.maxSpeed)/p.maxSpeed)
		}
		score *= speedFit

		// Distance plausibility.
		switch {
		case label == "walk" && in.distanceKM > 5:
			score *= 0.1
		case label == "cycle" && in.distanceKM > 20:
			score *= 0.3
		case (label == "bus" || label == "metro") && in.distanceKM < 1:
			score *= 0.2
		}

		// Public transit follows commuter hours.
		if label == "bus" || label == "metro" {
			if (in.hour >= 7 && in.hour <= 9) || (in.hour >= 17 && in.hour <= 19) {
				score *= 1.5
			} else if in.hour >= 22 || in.hour <= 5 {
				score *= 0.3
			}
		}

		scores[label] = score
	}

	return scores
}

// predictFallback scores the trip against every mode envelope and returns a
// normalised result tagged with the fallback tier.
func predictFallback(rec trip.Record) Result {
	scores := fallbackScores(newFallbackInput(rec))

	// Summed in fixed label order: map iteration order would perturb the
	// float total, and with it the normalised probabilities, between calls.
	total := 0.0
	for _, label := range Labels {
		total += scores[label]
	}

	probs := make(map[string]float64, len(Labels))
	best, bestScore := Labels[0], -1.0
	for _, label := range Labels {
		p := 1.0 / float64(len(Labels))
		if total > 0 {
			p = scores[label] / total
		}
		probs[label] = p
		if p > bestScore {
			best, bestScore = label, p
		}
	}

	confidence := bestScore
	if total <= 0 {
		confidence = 0.5
	}

	return Result{
		Mode:          best,
		Confidence:    clamp(confidence, 0.1, 0.95),
		Probabilities: probs,
		Tier:          TierFallback,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
