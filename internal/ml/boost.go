package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// Boost is a SAMME-boosted committee of shallow trees: each round re-weights
// the samples the previous round misclassified, and rounds vote with a
// weight derived from their training error.
type Boost struct {
	Trees      []*Tree   `json:"trees"`
	Alphas     []float64 `json:"alphas"`
	NumClasses int       `json:"num_classes"`
}

// BoostConfig bounds boosting.
type BoostConfig struct {
	NumRounds    int
	MaxDepth     int
	LearningRate float64
	Seed         int64
}

// TrainBoost fits a boosted committee. Rounds that do no better than chance
// terminate training early; at least one round is always kept.
func TrainBoost(X [][]float64, y []int, nClasses int, cfg BoostConfig) (*Boost, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("boost training requires matching samples, got %d/%d", len(X), len(y))
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	n := len(X)
	k := float64(nClasses)

	params := treeParams{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}

	b := &Boost{NumClasses: nClasses}
	for round := 0; round < cfg.NumRounds; round++ {
		tree := growTree(X, y, w, idx, nClasses, params, rng, nil)

		misses := make([]bool, n)
		weightedErr := 0.0
		for i := range X {
			pred, err := tree.Predict(X[i])
			if err != nil {
				return nil, err
			}
			if pred != y[i] {
				misses[i] = true
				weightedErr += w[i]
			}
		}

		// A round no better than random guessing over k classes carries no
		// signal; stop, but never with an empty committee.
		if weightedErr >= 1-1/k {
			if len(b.Trees) == 0 {
				b.Trees = append(b.Trees, tree)
				b.Alphas = append(b.Alphas, cfg.LearningRate)
			}
			break
		}
		if weightedErr < 1e-10 {
			weightedErr = 1e-10
		}

		alpha := cfg.LearningRate * (math.Log((1-weightedErr)/weightedErr) + math.Log(k-1))
		b.Trees = append(b.Trees, tree)
		b.Alphas = append(b.Alphas, alpha)

		total := 0.0
		for i := range w {
			if misses[i] {
				w[i] *= math.Exp(alpha)
			}
			total += w[i]
		}
		for i := range w {
			w[i] /= total
		}
	}

	return b, nil
}

// PredictProba returns the normalised weighted votes of the committee.
func (b *Boost) PredictProba(x []float64) ([]float64, error) {
	if len(b.Trees) == 0 {
		return nil, fmt.Errorf("boost committee has no rounds")
	}
	votes := make([]float64, b.NumClasses)
	for r, tree := range b.Trees {
		pred, err := tree.Predict(x)
		if err != nil {
			return nil, err
		}
		votes[pred] += b.Alphas[r]
	}

	total := 0.0
	for _, v := range votes {
		total += v
	}
	if total <= 0 {
		for c := range votes {
			votes[c] = 1.0 / float64(b.NumClasses)
		}
		return votes, nil
	}
	for c := range votes {
		votes[c] /= total
	}
	return votes, nil
}

// Predict returns the arg-max class.
func (b *Boost) Predict(x []float64) (int, error) {
	proba, err := b.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}
