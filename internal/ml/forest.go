package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// Forest is a bagged ensemble of CART trees: each tree is fitted on a
// bootstrap resample with sqrt(d) feature subsampling per split, and
// prediction averages the per-tree leaf distributions.
type Forest struct {
	Trees      []*Tree   `json:"trees"`
	NumClasses int       `json:"num_classes"`
	Importance []float64 `json:"importance"`
}

// ForestConfig bounds forest training.
type ForestConfig struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// TrainForest fits a bagged forest. Training is deterministic for a given
// seed. Feature importance is the normalised impurity decrease accumulated
// across all trees.
func TrainForest(X [][]float64, y []int, nClasses int, cfg ForestConfig) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("forest training requires matching samples, got %d/%d", len(X), len(y))
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = 1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	n, d := len(X), len(X[0])

	params := treeParams{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		minSamplesLeaf:  cfg.MinSamplesLeaf,
		maxFeatures:     int(math.Max(1, math.Round(math.Sqrt(float64(d))))),
	}

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}

	f := &Forest{NumClasses: nClasses, Importance: make([]float64, d)}
	for t := 0; t < cfg.NumTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.Trees = append(f.Trees, growTree(X, y, weights, idx, nClasses, params, rng, f.Importance))
	}

	normalize(f.Importance)
	return f, nil
}

// PredictProba averages the class distributions of all trees.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	sum := make([]float64, f.NumClasses)
	for _, t := range f.Trees {
		proba, err := t.PredictProba(x)
		if err != nil {
			return nil, err
		}
		for c, p := range proba {
			sum[c] += p
		}
	}
	for c := range sum {
		sum[c] /= float64(len(f.Trees))
	}
	return sum, nil
}

// Predict returns the arg-max class.
func (f *Forest) Predict(x []float64) (int, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func normalize(v []float64) {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return
	}
	for i := range v {
		v[i] /= total
	}
}
