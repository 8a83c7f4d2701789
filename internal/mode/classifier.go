package mode

import (
	"log"
	"sync/atomic"

	"github.com/travelogy-data/tripsense/internal/config"
	"github.com/travelogy-data/tripsense/internal/features"
	"github.com/travelogy-data/tripsense/internal/ml"
	"github.com/travelogy-data/tripsense/internal/trip"
)

// Prediction tiers.
const (
	TierEnsemble = "ensemble"
	TierFallback = "fallback"
)

// Ensemble blend weights: bagging model carries 0.6, boosting model 0.4.
const (
	forestWeight = 0.6
	boostWeight  = 0.4
)

// Result is a mode prediction with its calibrated confidence and the full
// per-mode distribution.
type Result struct {
	Mode              string             `json:"predicted_mode"`
	Confidence        float64            `json:"confidence"`
	Probabilities     map[string]float64 `json:"mode_probabilities"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	Tier              string             `json:"tier_used"`
}

// Classifier predicts transport modes. It holds the active model bundle
// behind an atomic pointer: predictions read whatever bundle is current,
// training publishes a new one with a single swap, and in-flight
// predictions on the old bundle complete normally.
type Classifier struct {
	cfg     *config.TuningConfig
	builder *features.Builder
	bundle  atomic.Pointer[ml.Bundle]
}

// NewClassifier builds a classifier. bundle may be nil, which selects the
// fallback tier until a bundle is published.
func NewClassifier(cfg *config.TuningConfig, bundle *ml.Bundle) *Classifier {
	c := &Classifier{cfg: cfg, builder: features.NewBuilder(cfg)}
	if bundle != nil {
		c.bundle.Store(bundle)
	}
	return c
}

// Bundle returns the currently active bundle, or nil.
func (c *Classifier) Bundle() *ml.Bundle {
	return c.bundle.Load()
}

// Publish atomically activates a new bundle.
func (c *Classifier) Publish(b *ml.Bundle) {
	c.bundle.Store(b)
}

// Predict returns the mode prediction for a trip record. With an active
// bundle it blends both trained models; any inference failure degrades to
// the fallback tier rather than surfacing an error, with the tier recorded
// in the result.
func (c *Classifier) Predict(rec trip.Record) Result {
	b := c.bundle.Load()
	if b == nil {
		return predictFallback(rec)
	}

	vec := c.builder.Vector(rec)
	scaled, err := b.Scaler.Transform(vec)
	if err != nil {
		// Scaling is skipped, not failed: the models still see raw features.
		log.Printf("warning: feature scaling skipped: %v", err)
		scaled = vec
	}

	forestProba, err := b.Forest.PredictProba(scaled)
	if err != nil {
		log.Printf("warning: ensemble inference failed, using fallback: %v", err)
		return predictFallback(rec)
	}
	boostProba, err := b.Boost.PredictProba(scaled)
	if err != nil {
		log.Printf("warning: ensemble inference failed, using fallback: %v", err)
		return predictFallback(rec)
	}

	probs := make(map[string]float64, len(b.Labels))
	best, bestProb := b.Labels[0], -1.0
	for i, label := range b.Labels {
		p := forestWeight*forestProba[i] + boostWeight*boostProba[i]
		probs[label] = p
		if p > bestProb {
			best, bestProb = label, p
		}
	}

	importance := make(map[string]float64, len(b.FeatureColumns))
	for i, col := range b.FeatureColumns {
		if i < len(b.Forest.Importance) {
			importance[col] = b.Forest.Importance[i]
		}
	}

	return Result{
		Mode:              best,
		Confidence:        bestProb,
		Probabilities:     probs,
		FeatureImportance: importance,
		Tier:              TierEnsemble,
	}
}
