// Package predictor wires the segmentation, mode, and purpose passes into
// the inference entry points the surrounding system calls, and owns the
// lifecycle of the trained model bundle: load on start, persist and publish
// after training.
package predictor

import (
	"fmt"
	"log"
	"time"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/ml"
	"github.com/travelogy-data/tripsense/internal/mode"
	"github.com/travelogy-data/tripsense/internal/purpose"
	"github.com/travelogy-data/tripsense/internal/timeutil"
	"github.com/travelogy-data/tripsense/internal/trip"
)

// BundleStore is the slice of the persistence layer the predictor needs.
// Nil is a valid store: predictions run on the fallback tier and training
// results are published in-process only.
type BundleStore interface {
	SaveBundle(b *ml.Bundle) error
	ActivateBundle(version string) error
	LoadActiveBundle() (*ml.Bundle, error)
	SaveReport(report *mode.TrainingReport, at time.Time) error
}

// Predictor is the inference orchestrator. Safe for concurrent use; all
// per-request state lives on the stack, and the model bundle swap is
// atomic.
type Predictor struct {
	cfg       *config.TuningConfig
	modes     *mode.Classifier
	purposes  *purpose.Classifier
	segmenter *trip.Segmenter
	store     BundleStore
	clock     timeutil.Clock
}

// New builds a predictor, loading the active model bundle from the store if
// one exists. A store with no active bundle is not an error: the mode
// classifier starts on its fallback tier.
func New(cfg *config.TuningConfig, st BundleStore, clock timeutil.Clock) (*Predictor, error) {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	var bundle *ml.Bundle
	if st != nil {
		var err error
		bundle, err = st.LoadActiveBundle()
		if err != nil {
			return nil, fmt.Errorf("load active model bundle: %w", err)
		}
	}
	if bundle == nil {
		log.Printf("no active model bundle, mode predictions use the fallback tier")
	} else {
		log.Printf("loaded model bundle %s (created %s)", bundle.Version, bundle.CreatedAt.Format(time.RFC3339))
	}

	return &Predictor{
		cfg:       cfg,
		modes:     mode.NewClassifier(cfg, bundle),
		purposes:  purpose.NewClassifier(),
		segmenter: trip.NewSegmenter(cfg),
		store:     st,
		clock:     clock,
	}, nil
}

// Modes exposes the mode classifier, for callers that only need that pass.
func (p *Predictor) Modes() *mode.Classifier {
	return p.modes
}

// Prediction is the combined inference result for one trip.
type Prediction struct {
	Mode    mode.Result    `json:"mode"`
	Purpose purpose.Result `json:"purpose"`
}

// PredictTrip runs the full pipeline on one trip: mode first, then purpose
// with the predicted mode as context. history may be nil. A record that
// already carries a transport-mode label keeps it for the purpose pass.
func (p *Predictor) PredictTrip(rec trip.Record, history []trip.HistoryTrip) Prediction {
	modeRes := p.modes.Predict(rec)

	purposeRec := rec
	if purposeRec.TransportMode == "" {
		purposeRec.TransportMode = modeRes.Mode
	}
	purposeRes := p.purposes.Predict(purposeRec, history)

	return Prediction{Mode: modeRes, Purpose: purposeRes}
}

// SegmentPrediction pairs one segment with its inference results. Mode and
// Purpose are nil for segments too short to classify.
type SegmentPrediction struct {
	Segment trip.Segment    `json:"segment"`
	Mode    *mode.Result    `json:"mode,omitempty"`
	Purpose *purpose.Result `json:"purpose,omitempty"`
}

// PredictSegments splits a waypoint stream into stop-separated legs and
// classifies each. A stream below the segmentation minimum comes back as a
// single unclassified segment.
func (p *Predictor) PredictSegments(waypoints []trip.Waypoint, history []trip.HistoryTrip) []SegmentPrediction {
	segments := p.segmenter.Split(waypoints)
	if segments == nil {
		return nil
	}

	tooShort := len(waypoints) < p.cfg.GetMinSegmentWaypoints()

	out := make([]SegmentPrediction, 0, len(segments))
	for _, seg := range segments {
		sp := SegmentPrediction{Segment: seg}
		if tooShort {
			out = append(out, sp)
			continue
		}

		rec := trip.Record{
			DistanceKM:      seg.DistanceKM(),
			DurationMinutes: seg.DurationMinutes(),
			Waypoints:       seg.Waypoints,
		}
		if !seg.StartTime.IsZero() {
			st := trip.NewFlexTime(seg.StartTime)
			rec.StartTime = &st
		}
		last := seg.Waypoints[len(seg.Waypoints)-1]
		rec.DestLat = last.Lat
		rec.DestLng = last.Lng

		modeRes := p.modes.Predict(rec)
		sp.Segment.PredictedMode = modeRes.Mode
		sp.Mode = &modeRes

		rec.TransportMode = modeRes.Mode
		purposeRes := p.purposes.Predict(rec, history)
		sp.Purpose = &purposeRes

		out = append(out, sp)
	}
	return out
}

// AnalyzeLocationPatterns summarises a user's recurring destinations.
func (p *Predictor) AnalyzeLocationPatterns(trips []trip.Record) purpose.LocationPatterns {
	return p.purposes.AnalyzeLocationPatterns(trips)
}

// Train fits a new model bundle from labeled trips, persists it, and
// publishes it to the live classifier. The new bundle is saved and
// activated in the store before the in-process swap, so a persistence
// failure leaves the previous bundle serving. The report is returned even
// when training is skipped or persistence fails.
func (p *Predictor) Train(samples []trip.Record) (*mode.TrainingReport, error) {
	now := p.clock.Now()
	bundle, report := p.modes.Train(samples, now)

	if p.store != nil {
		if err := p.store.SaveReport(report, now); err != nil {
			log.Printf("warning: failed to save training report: %v", err)
		}
	}

	if bundle == nil {
		log.Printf("training skipped: %s", report.Message)
		return report, nil
	}

	if p.store != nil {
		if err := p.store.SaveBundle(bundle); err != nil {
			return report, fmt.Errorf("persist trained bundle: %w", err)
		}
		if err := p.store.ActivateBundle(bundle.Version); err != nil {
			return report, fmt.Errorf("activate trained bundle: %w", err)
		}
	}

	p.modes.Publish(bundle)
	log.Printf("published model bundle %s", bundle.Version)
	return report, nil
}
