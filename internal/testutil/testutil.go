// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta checks that got is within delta of want.
func AssertInDelta(t *testing.T, got, want, delta float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > delta {
		t.Errorf("got %v, want %v ± %v", got, want, delta)
	}
}

// AssertProbabilityDistribution checks that the map holds a valid discrete
// distribution: every value non-negative and the total within 1e-6 of 1.
func AssertProbabilityDistribution(t *testing.T, probs map[string]float64) {
	t.Helper()
	sum := 0.0
	for key, p := range probs {
		if p < 0 || math.IsNaN(p) {
			t.Errorf("probability for %q is %v, want non-negative", key, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}
}
