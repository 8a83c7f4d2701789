package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// TreeNode is one node of a CART decision tree. Leaves carry a normalised
// class distribution; internal nodes route on Feature <= Threshold.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Dist      []float64 `json:"dist,omitempty"`
}

// Tree is a CART classification tree over the fixed feature schema.
type Tree struct {
	Root       *TreeNode `json:"root"`
	NumClasses int       `json:"num_classes"`
}

// treeParams bound tree growth.
type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means consider every feature
}

// growTree fits a tree on the samples selected by idx, with per-sample
// weights w. importance, when non-nil, accumulates the weighted impurity
// decrease per feature.
func growTree(X [][]float64, y []int, w []float64, idx []int, nClasses int, p treeParams, rng *rand.Rand, importance []float64) *Tree {
	root := growNode(X, y, w, idx, nClasses, 0, p, rng, importance)
	return &Tree{Root: root, NumClasses: nClasses}
}

func classWeights(y []int, w []float64, idx []int, nClasses int) ([]float64, float64) {
	dist := make([]float64, nClasses)
	total := 0.0
	for _, i := range idx {
		dist[y[i]] += w[i]
		total += w[i]
	}
	return dist, total
}

func gini(dist []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	g := 1.0
	for _, d := range dist {
		p := d / total
		g -= p * p
	}
	return g
}

func leaf(dist []float64, total float64) *TreeNode {
	out := make([]float64, len(dist))
	if total > 0 {
		for i, d := range dist {
			out[i] = d / total
		}
	} else {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
	}
	return &TreeNode{Feature: -1, Dist: out}
}

func growNode(X [][]float64, y []int, w []float64, idx []int, nClasses, depth int, p treeParams, rng *rand.Rand, importance []float64) *TreeNode {
	dist, total := classWeights(y, w, idx, nClasses)
	parentGini := gini(dist, total)

	if depth >= p.maxDepth || len(idx) < p.minSamplesSplit || parentGini == 0 {
		return leaf(dist, total)
	}

	d := len(X[0])
	candidates := make([]int, d)
	for j := range candidates {
		candidates[j] = j
	}
	if p.maxFeatures > 0 && p.maxFeatures < d {
		rng.Shuffle(d, func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })
		candidates = candidates[:p.maxFeatures]
	}

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	sorted := make([]int, len(idx))

	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		leftDist := make([]float64, nClasses)
		leftTotal, leftCount := 0.0, 0

		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftDist[y[i]] += w[i]
			leftTotal += w[i]
			leftCount++

			// Only split between distinct values.
			if X[i][f] == X[sorted[k+1]][f] {
				continue
			}
			if leftCount < p.minSamplesLeaf || len(sorted)-leftCount < p.minSamplesLeaf {
				continue
			}

			rightDist := make([]float64, nClasses)
			for c := 0; c < nClasses; c++ {
				rightDist[c] = dist[c] - leftDist[c]
			}
			rightTotal := total - leftTotal

			gain := parentGini - (leftTotal*gini(leftDist, leftTotal)+rightTotal*gini(rightDist, rightTotal))/total
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (X[i][f] + X[sorted[k+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return leaf(dist, total)
	}
	if importance != nil {
		importance[bestFeature] += bestGain * total
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	return &TreeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      growNode(X, y, w, leftIdx, nClasses, depth+1, p, rng, importance),
		Right:     growNode(X, y, w, rightIdx, nClasses, depth+1, p, rng, importance),
	}
}

// PredictProba walks the tree and returns the leaf class distribution.
func (t *Tree) PredictProba(x []float64) ([]float64, error) {
	node := t.Root
	for node != nil && node.Dist == nil {
		if node.Feature < 0 || node.Feature >= len(x) {
			return nil, fmt.Errorf("tree references feature %d, vector has %d", node.Feature, len(x))
		}
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return nil, fmt.Errorf("malformed tree: missing leaf")
	}
	return node.Dist, nil
}

// Predict returns the arg-max class of PredictProba.
func (t *Tree) Predict(x []float64) (int, error) {
	proba, err := t.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return argmax(proba), nil
}

func argmax(v []float64) int {
	best := 0
	for i, p := range v {
		if p > v[best] {
			best = i
		}
	}
	return best
}
