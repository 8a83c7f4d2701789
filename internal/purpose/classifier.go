// Package purpose predicts the purpose of a trip from its time, addresses,
// transport mode, and the user's trip history. Entirely rule-based: a
// multiplicative scorer over hand-tuned tables, no trained artifacts.
package purpose

import (
	"fmt"
	"strings"

	"github.com/travelogy-data/tripsense/internal/features"
	"github.com/travelogy-data/tripsense/internal/geomath"
	"github.com/travelogy-data/tripsense/internal/trip"
)

// Purposes is the full candidate set, in canonical order. The first five
// have time-pattern tables; the rest compete on a flat base score.
var Purposes = []string{
	"work", "school", "shopping", "leisure", "social",
	"medical", "business", "exercise", "other",
}

// baseScore is the flat score of purposes without a time-pattern table.
const baseScore = 0.1

// hourRange is an inclusive hour window. Start > End wraps past midnight.
type hourRange struct {
	Start, End int
}

func (r hourRange) contains(hour int) bool {
	if r.Start > r.End {
		return hour >= r.Start || hour <= r.End
	}
	return r.Start <= hour && hour <= r.End
}

// timePattern holds a purpose's typical daily rhythm.
type timePattern struct {
	peakHours   []hourRange
	lowHours    []hourRange
	weekdayMult float64
	weekendMult float64
}

var timePatterns = map[string]timePattern{
	"work": {
		peakHours:   []hourRange{{7, 9}, {17, 19}},
		lowHours:    []hourRange{{22, 6}},
		weekdayMult: 1.5,
		weekendMult: 0.3,
	},
	"school": {
		peakHours:   []hourRange{{7, 9}, {15, 17}},
		lowHours:    []hourRange{{19, 7}},
		weekdayMult: 2.0,
		weekendMult: 0.1,
	},
	"shopping": {
		peakHours:   []hourRange{{10, 12}, {14, 18}},
		lowHours:    []hourRange{{0, 7}},
		weekdayMult: 1.0,
		weekendMult: 1.3,
	},
	"leisure": {
		peakHours:   []hourRange{{10, 22}},
		lowHours:    []hourRange{{0, 8}},
		weekdayMult: 0.8,
		weekendMult: 1.5,
	},
	"social": {
		peakHours:   []hourRange{{18, 23}},
		lowHours:    []hourRange{{5, 10}},
		weekdayMult: 1.0,
		weekendMult: 1.4,
	},
}

// locationKeywords maps each purpose to address substrings that suggest it.
// Matches for one purpose count against the others as competing evidence.
var locationKeywords = map[string][]string{
	"work":     {"office", "business", "corporate", "company", "headquarters", "building"},
	"school":   {"school", "university", "college", "campus", "education", "library"},
	"shopping": {"mall", "store", "shop", "market", "grocery", "supermarket", "retail"},
	"leisure":  {"park", "cinema", "theater", "museum", "beach", "restaurant", "cafe"},
	"social":   {"friend", "family", "home", "residence", "house", "apartment"},
	"medical":  {"hospital", "clinic", "doctor", "medical", "pharmacy", "health"},
}

// modePreferences is the purpose-by-mode affinity table. Missing entries
// score neutral.
var modePreferences = map[string]map[string]float64{
	"work": {
		"car": 1.2, "bus": 1.3, "metro": 1.3, "cycle": 1.1,
		"walk": 0.8, "taxi": 0.9,
	},
	"school": {
		"bus": 1.4, "metro": 1.3, "cycle": 1.2, "walk": 1.1,
		"car": 0.8, "taxi": 0.7,
	},
	"shopping": {
		"car": 1.3, "bus": 1.1, "walk": 1.2, "taxi": 1.1,
		"cycle": 0.8, "metro": 0.9,
	},
	"leisure": {
		"walk": 1.2, "cycle": 1.3, "car": 1.1, "taxi": 1.0,
		"bus": 0.9, "metro": 0.9,
	},
	"social": {
		"car": 1.2, "taxi": 1.3, "walk": 1.1, "bus": 1.0,
		"cycle": 0.9, "metro": 1.0,
	},
}

// History-similarity thresholds: a prior trip counts as similar when it
// started within this many hours and ended within this many meters of the
// current one.
const (
	similarHourWindow    = 2
	similarDistanceM     = 500.0
	absentHistoryPenalty = 0.8
)

// Result is a purpose prediction with its confidence and the normalised
// score distribution it was drawn from.
type Result struct {
	Purpose       string             `json:"predicted_purpose"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"purpose_probabilities"`
}

// Classifier scores trips against the purpose tables. Stateless and safe
// for concurrent use.
type Classifier struct{}

// NewClassifier returns a purpose classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Predict scores every candidate purpose for the trip and returns the
// arg-max with a confidence clamped to [0.2, 0.9]. history may be nil.
// Deterministic: identical inputs always produce identical results.
func (c *Classifier) Predict(rec trip.Record, history []trip.HistoryTrip) Result {
	destAddr := strings.ToLower(rec.DestAddress)
	mode := rec.TransportMode
	if mode == "" {
		mode = "walk"
	}

	scores := make(map[string]float64, len(Purposes))
	for _, p := range Purposes {
		if _, ok := timePatterns[p]; !ok {
			scores[p] = baseScore
			continue
		}
		score := timeScore(p, rec)
		score *= locationScore(p, destAddr)
		score *= modeScore(p, mode)
		if len(history) > 0 {
			score *= historyScore(p, rec, history)
		}
		scores[p] = score
	}

	// Summed in fixed purpose order: map iteration order would perturb the
	// float total, and with it the normalised probabilities, between calls.
	total := 0.0
	for _, p := range Purposes {
		total += scores[p]
	}

	probs := make(map[string]float64, len(Purposes))
	best, bestScore := Purposes[0], -1.0
	for _, p := range Purposes {
		prob := 1.0 / float64(len(Purposes))
		if total > 0 {
			prob = scores[p] / total
		}
		probs[p] = prob
		if prob > bestScore {
			best, bestScore = p, prob
		}
	}

	confidence := bestScore
	if total <= 0 {
		confidence = 0.3
	}

	return Result{
		Purpose:       best,
		Confidence:    clamp(confidence, 0.2, 0.9),
		Probabilities: probs,
	}
}

func startHour(rec trip.Record) (int, bool) {
	if rec.StartTime != nil && !rec.StartTime.IsZero() {
		return rec.StartTime.Hour(), true
	}
	if rec.TimeOfDay != nil {
		return *rec.TimeOfDay, true
	}
	return 12, false
}

func timeScore(purpose string, rec trip.Record) float64 {
	pattern := timePatterns[purpose]
	hour, known := startHour(rec)
	if !known {
		return 0.5
	}

	score := 0.3
	for _, r := range pattern.peakHours {
		if r.contains(hour) {
			score = 1.0
			break
		}
	}
	for _, r := range pattern.lowHours {
		if r.contains(hour) {
			score *= 0.3
		}
	}

	weekend := false
	if rec.StartTime != nil && !rec.StartTime.IsZero() {
		weekend = features.Weekday(rec.StartTime.Time) >= 5
	}
	if weekend {
		score *= pattern.weekendMult
	} else {
		score *= pattern.weekdayMult
	}
	return score
}

// locationScore boosts on the purpose's own keywords in the destination
// address and penalises on competing purposes' keywords, with a floor so a
// keyword pile-up can never zero a candidate out.
func locationScore(purpose, destAddr string) float64 {
	score := 1.0
	if destAddr == "" {
		return score
	}

	matches := 0
	for _, kw := range locationKeywords[purpose] {
		if strings.Contains(destAddr, kw) {
			matches++
		}
	}
	if matches > 0 {
		score *= 1 + float64(matches)*0.5
	}

	for other, kws := range locationKeywords {
		if other == purpose {
			continue
		}
		conflicts := 0
		for _, kw := range kws {
			if strings.Contains(destAddr, kw) {
				conflicts++
			}
		}
		if conflicts > 0 {
			score *= 1 - float64(conflicts)*0.2
		}
	}

	if score < 0.1 {
		return 0.1
	}
	return score
}

func modeScore(purpose, mode string) float64 {
	if prefs, ok := modePreferences[purpose]; ok {
		if mult, ok := prefs[mode]; ok {
			return mult
		}
	}
	return 1.0
}

// historyScore compares the trip against the user's prior trips. Similar
// trips are those starting within similarHourWindow hours and ending within
// similarDistanceM of the current destination; the purpose's relative
// frequency among them becomes a boost, and absence a mild penalty.
func historyScore(purpose string, rec trip.Record, history []trip.HistoryTrip) float64 {
	hour, _ := startHour(rec)
	if rec.DestLat == 0 && rec.DestLng == 0 {
		return 1.0
	}

	var similar []trip.HistoryTrip
	for _, h := range history {
		if h.StartTime.IsZero() {
			continue
		}
		dh := h.StartTime.Hour() - hour
		if dh < 0 {
			dh = -dh
		}
		if dh > similarHourWindow {
			continue
		}
		if h.DestLat == 0 && h.DestLng == 0 {
			continue
		}
		if geomath.DistanceMeters(rec.DestLat, rec.DestLng, h.DestLat, h.DestLng) <= similarDistanceM {
			similar = append(similar, h)
		}
	}
	if len(similar) == 0 {
		return 1.0
	}

	matches := 0
	for _, h := range similar {
		p := h.Purpose
		if p == "" {
			p = "other"
		}
		if p == purpose {
			matches++
		}
	}
	if matches == 0 {
		return absentHistoryPenalty
	}
	return 1 + float64(matches)/float64(len(similar))
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

// LocationCluster is one recurring destination, keyed by coordinates
// rounded to 4 decimal places (roughly an 11 m grid).
type LocationCluster struct {
	Lat      float64        `json:"lat"`
	Lng      float64        `json:"lng"`
	Visits   int            `json:"visits"`
	Purposes map[string]int `json:"purposes"`
}

// CommonDestination is the centroid of a purpose's repeat destinations.
type CommonDestination struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	VisitCount int     `json:"visit_count"`
}

// LocationPatterns summarises where a user's trips end and which purposes
// those places serve.
type LocationPatterns struct {
	LocationClusters   map[string]*LocationCluster  `json:"location_clusters"`
	CommonDestinations map[string]CommonDestination `json:"common_destinations"`
	TotalDestinations  int                          `json:"total_destinations"`
}

// commonDestinationMinVisits is the repeat count before a purpose gets a
// common destination.
const commonDestinationMinVisits = 3

// AnalyzeLocationPatterns clusters a user's trip destinations on a
// 4-decimal coordinate grid and derives, per purpose, the centroid of its
// repeat destinations.
func (c *Classifier) AnalyzeLocationPatterns(trips []trip.Record) LocationPatterns {
	clusters := make(map[string]*LocationCluster)
	purposeLocations := make(map[string][][2]float64)

	for _, t := range trips {
		if t.DestLat == 0 && t.DestLng == 0 {
			continue
		}
		p := t.Purpose
		if p == "" {
			p = "other"
		}

		key := fmt.Sprintf("%.4f,%.4f", t.DestLat, t.DestLng)
		cl, ok := clusters[key]
		if !ok {
			cl = &LocationCluster{Lat: t.DestLat, Lng: t.DestLng, Purposes: make(map[string]int)}
			clusters[key] = cl
		}
		cl.Visits++
		cl.Purposes[p]++

		purposeLocations[p] = append(purposeLocations[p], [2]float64{t.DestLat, t.DestLng})
	}

	common := make(map[string]CommonDestination)
	for p, locs := range purposeLocations {
		if len(locs) < commonDestinationMinVisits {
			continue
		}
		var sumLat, sumLng float64
		for _, l := range locs {
			sumLat += l[0]
			sumLng += l[1]
		}
		common[p] = CommonDestination{
			Lat:        sumLat / float64(len(locs)),
			Lng:        sumLng / float64(len(locs)),
			VisitCount: len(locs),
		}
	}

	return LocationPatterns{
		LocationClusters:   clusters,
		CommonDestinations: common,
		TotalDestinations:  len(clusters),
	}
}
