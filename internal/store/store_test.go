package store

import (
	"os"
	"testing"
	"time"

	"github.com/travelogy-data/tripsense/internal/ml"
	"github.com/travelogy-data/tripsense/internal/mode"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	fname := t.Name() + ".db"
	_ = os.Remove(fname)

	s, err := Open(fname)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return s
}

func cleanupTestStore(t *testing.T, s *Store) {
	t.Helper()
	fname := t.Name() + ".db"
	s.Close()
	_ = os.Remove(fname)
	_ = os.Remove(fname + "-shm")
	_ = os.Remove(fname + "-wal")
}

func testBundle(t *testing.T, seed int64) *ml.Bundle {
	t.Helper()
	X := [][]float64{{0, 0}, {0.2, 0.1}, {0.1, 0.3}, {5, 5}, {5.1, 4.8}, {4.9, 5.2}}
	y := []int{0, 0, 0, 1, 1, 1}

	forest, err := ml.TrainForest(X, y, 2, ml.ForestConfig{NumTrees: 3, MaxDepth: 3, Seed: seed})
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}
	boost, err := ml.TrainBoost(X, y, 2, ml.BoostConfig{NumRounds: 3, MaxDepth: 2, Seed: seed})
	if err != nil {
		t.Fatalf("TrainBoost: %v", err)
	}
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return ml.NewBundle(created, []string{"a", "b"}, []string{"walk", "car"}, ml.FitScaler(X), forest, boost)
}

func TestStore_OpenAppliesMigrations(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	// Both tables must exist after Open.
	for _, table := range []string{"model_bundles", "training_reports"} {
		var name string
		err := s.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestStore_LoadActiveBundleEmpty(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	b, err := s.LoadActiveBundle()
	if err != nil {
		t.Fatalf("LoadActiveBundle on empty store: %v", err)
	}
	if b != nil {
		t.Errorf("got bundle %v from empty store, want nil", b.Version)
	}
}

func TestStore_SaveActivateLoadRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	bundle := testBundle(t, 1)
	if err := s.SaveBundle(bundle); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	// Saved but not activated: still nothing to load.
	b, err := s.LoadActiveBundle()
	if err != nil {
		t.Fatalf("LoadActiveBundle: %v", err)
	}
	if b != nil {
		t.Fatalf("inactive bundle %s returned as active", b.Version)
	}

	if err := s.ActivateBundle(bundle.Version); err != nil {
		t.Fatalf("ActivateBundle: %v", err)
	}
	b, err = s.LoadActiveBundle()
	if err != nil {
		t.Fatalf("LoadActiveBundle: %v", err)
	}
	if b == nil || b.Version != bundle.Version {
		t.Fatalf("loaded %+v, want version %s", b, bundle.Version)
	}
	if err := b.Check(); err != nil {
		t.Errorf("loaded bundle failed consistency check: %v", err)
	}
}

func TestStore_ActivateReplacesPrevious(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	first := testBundle(t, 1)
	second := testBundle(t, 2)
	for _, b := range []*ml.Bundle{first, second} {
		if err := s.SaveBundle(b); err != nil {
			t.Fatalf("SaveBundle: %v", err)
		}
	}

	if err := s.ActivateBundle(first.Version); err != nil {
		t.Fatalf("ActivateBundle(first): %v", err)
	}
	if err := s.ActivateBundle(second.Version); err != nil {
		t.Fatalf("ActivateBundle(second): %v", err)
	}

	b, err := s.LoadActiveBundle()
	if err != nil {
		t.Fatalf("LoadActiveBundle: %v", err)
	}
	if b.Version != second.Version {
		t.Errorf("active bundle = %s, want %s", b.Version, second.Version)
	}

	var activeCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM model_bundles WHERE active = 1`).Scan(&activeCount); err != nil {
		t.Fatal(err)
	}
	if activeCount != 1 {
		t.Errorf("%d active bundles, want exactly 1", activeCount)
	}
}

func TestStore_ActivateUnknownBundle(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	if err := s.ActivateBundle("no-such-version"); err == nil {
		t.Error("expected error activating a bundle that was never saved")
	}
}

func TestStore_Reports(t *testing.T) {
	s := setupTestStore(t)
	defer cleanupTestStore(t, s)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reports := []*mode.TrainingReport{
		{Status: mode.StatusSkipped, Message: "not enough training data: 3 samples (min 50 required)"},
		{Status: mode.StatusSuccess, BundleVersion: "v-abc", SamplesCount: 80,
			Ensemble: &mode.ModelEval{Accuracy: 0.91}},
	}
	for i, r := range reports {
		if err := s.SaveReport(r, at.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	got, err := s.RecentReports(10)
	if err != nil {
		t.Fatalf("RecentReports: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d reports, want 2", len(got))
	}

	// Newest first.
	if got[0].Status != mode.StatusSuccess || got[1].Status != mode.StatusSkipped {
		t.Errorf("report order = [%s, %s], want newest first", got[0].Status, got[1].Status)
	}
	if got[0].BundleID != "v-abc" {
		t.Errorf("bundle id = %q, want v-abc", got[0].BundleID)
	}
	if got[0].Report.Ensemble == nil || got[0].Report.Ensemble.Accuracy != 0.91 {
		t.Errorf("decoded report lost ensemble eval: %+v", got[0].Report)
	}
	if !got[0].CreatedAt.Equal(at.Add(time.Hour)) {
		t.Errorf("created at = %v, want %v", got[0].CreatedAt, at.Add(time.Hour))
	}

	limited, err := s.RecentReports(1)
	if err != nil {
		t.Fatalf("RecentReports(1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d reports", len(limited))
	}
}
