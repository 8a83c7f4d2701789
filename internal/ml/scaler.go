// Package ml implements the trained-model machinery behind the ensemble
// tier: a weighted CART tree, a bagged forest, a SAMME-boosted committee,
// feature standardisation, and the versioned bundle that packages them.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardises feature vectors to zero mean and unit variance using
// statistics fitted on the training split only.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation. Columns with
// zero variance scale by 1 so constant features pass through unchanged.
func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	d := len(X[0])
	s := &Scaler{Mean: make([]float64, d), Std: make([]float64, d)}
	column := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i := range X {
			column[i] = X[i][j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s
}

// Transform returns a standardised copy of x. The input is not modified.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler fitted on %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j := range x {
		out[j] = (x[j] - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll standardises a whole matrix.
func (s *Scaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
