package mode

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/travelogy-data/tripsense/internal/features"
	"github.com/travelogy-data/tripsense/internal/ml"
	"github.com/travelogy-data/tripsense/internal/trip"
)

// MinTrainingSamples is the minimum labeled sample count required before a
// training run proceeds.
const MinTrainingSamples = 50

// Training statuses.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
)

// ClassMetrics are per-class evaluation figures on the held-out split.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ModelEval is the held-out evaluation of one model (or the blend).
type ModelEval struct {
	Accuracy float64                 `json:"accuracy"`
	PerClass map[string]ClassMetrics `json:"report"`
}

// TrainingReport summarises a training run. A skipped run carries only the
// status and message.
type TrainingReport struct {
	Status        string  `json:"status"`
	Message       string  `json:"message,omitempty"`
	BundleVersion string  `json:"bundle_version,omitempty"`
	SamplesCount  int     `json:"samples_count,omitempty"`
	TrainSamples  int     `json:"train_samples,omitempty"`
	TestSamples   int     `json:"test_samples,omitempty"`

	Forest   *ModelEval `json:"random_forest,omitempty"`
	Boost    *ModelEval `json:"boosting,omitempty"`
	Ensemble *ModelEval `json:"ensemble,omitempty"`

	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
}

// Train fits a new model bundle from labeled trips. Fewer than
// MinTrainingSamples usable samples returns a skipped report and a nil
// bundle; the active bundle is never touched by this method — publishing is
// the caller's responsibility, after persisting the new bundle.
func (c *Classifier) Train(samples []trip.Record, now time.Time) (*ml.Bundle, *TrainingReport) {
	labelIndex := make(map[string]int, len(Labels))
	for i, l := range Labels {
		labelIndex[l] = i
	}

	var X [][]float64
	var y []int
	for _, rec := range samples {
		cls, ok := labelIndex[rec.TransportMode]
		if !ok {
			continue
		}
		X = append(X, c.builder.Vector(rec))
		y = append(y, cls)
	}

	if len(X) < MinTrainingSamples {
		return nil, &TrainingReport{
			Status:  StatusSkipped,
			Message: fmt.Sprintf("not enough training data: %d samples (min %d required)", len(X), MinTrainingSamples),
		}
	}

	seed := c.cfg.GetTrainingSeed()
	trainIdx, testIdx := stratifiedSplit(y, 0.2, seed)

	// The scaler is fitted on the training split only, then applied to both.
	trainX := gather(X, trainIdx)
	scaler := ml.FitScaler(trainX)
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		return nil, &TrainingReport{Status: StatusSkipped, Message: fmt.Sprintf("scaling failed: %v", err)}
	}
	scaledTest, err := scaler.TransformAll(gather(X, testIdx))
	if err != nil {
		return nil, &TrainingReport{Status: StatusSkipped, Message: fmt.Sprintf("scaling failed: %v", err)}
	}
	trainY := gatherInts(y, trainIdx)
	testY := gatherInts(y, testIdx)

	log.Printf("training bagged forest on %d samples", len(scaledTrain))
	forest, err := ml.TrainForest(scaledTrain, trainY, len(Labels), ml.ForestConfig{
		NumTrees:        c.cfg.GetForestTrees(),
		MaxDepth:        c.cfg.GetForestMaxDepth(),
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            seed,
	})
	if err != nil {
		return nil, &TrainingReport{Status: StatusSkipped, Message: fmt.Sprintf("forest training failed: %v", err)}
	}

	log.Printf("training boosted committee on %d samples", len(scaledTrain))
	boost, err := ml.TrainBoost(scaledTrain, trainY, len(Labels), ml.BoostConfig{
		NumRounds:    c.cfg.GetBoostRounds(),
		MaxDepth:     c.cfg.GetBoostMaxDepth(),
		LearningRate: c.cfg.GetBoostLearningRate(),
		Seed:         seed,
	})
	if err != nil {
		return nil, &TrainingReport{Status: StatusSkipped, Message: fmt.Sprintf("boost training failed: %v", err)}
	}

	bundle := ml.NewBundle(now, features.Columns, Labels, scaler, forest, boost)

	report := &TrainingReport{
		Status:        StatusSuccess,
		BundleVersion: bundle.Version,
		SamplesCount:  len(X),
		TrainSamples:  len(trainIdx),
		TestSamples:   len(testIdx),
		Forest:        evaluate(forest.Predict, scaledTest, testY),
		Boost:         evaluate(boost.Predict, scaledTest, testY),
		Ensemble: evaluate(func(x []float64) (int, error) {
			return blendPredict(forest, boost, x)
		}, scaledTest, testY),
	}

	report.FeatureImportance = make(map[string]float64, len(features.Columns))
	for i, col := range features.Columns {
		report.FeatureImportance[col] = forest.Importance[i]
	}

	if report.Ensemble != nil {
		log.Printf("training complete: ensemble accuracy %.4f on %d held-out samples",
			report.Ensemble.Accuracy, len(testIdx))
	}

	return bundle, report
}

func blendPredict(forest *ml.Forest, boost *ml.Boost, x []float64) (int, error) {
	fp, err := forest.PredictProba(x)
	if err != nil {
		return 0, err
	}
	bp, err := boost.PredictProba(x)
	if err != nil {
		return 0, err
	}
	best, bestP := 0, -1.0
	for c := range fp {
		p := forestWeight*fp[c] + boostWeight*bp[c]
		if p > bestP {
			best, bestP = c, p
		}
	}
	return best, nil
}

// stratifiedSplit partitions sample indices into train and test sets,
// holding out testFraction of each class. Classes too small to split stay
// entirely in the training set.
func stratifiedSplit(y []int, testFraction float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))

	byClass := make(map[int][]int)
	for i, cls := range y {
		byClass[cls] = append(byClass[cls], i)
	}

	// Deterministic class order regardless of map iteration.
	maxClass := 0
	for cls := range byClass {
		if cls > maxClass {
			maxClass = cls
		}
	}
	for cls := 0; cls <= maxClass; cls++ {
		idx := byClass[cls]
		if len(idx) == 0 {
			continue
		}
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		nTest := int(float64(len(idx)) * testFraction)
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	return train, test
}

func gather(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func gatherInts(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

// evaluate computes accuracy and per-class precision/recall/F1 on a
// held-out split.
func evaluate(predict func([]float64) (int, error), X [][]float64, y []int) *ModelEval {
	if len(X) == 0 {
		return &ModelEval{PerClass: map[string]ClassMetrics{}}
	}

	preds := make([]int, len(X))
	correct := 0
	for i := range X {
		p, err := predict(X[i])
		if err != nil {
			log.Printf("warning: evaluation prediction failed: %v", err)
			p = -1
		}
		preds[i] = p
		if p == y[i] {
			correct++
		}
	}

	eval := &ModelEval{
		Accuracy: float64(correct) / float64(len(X)),
		PerClass: make(map[string]ClassMetrics, len(Labels)),
	}

	for cls, label := range Labels {
		var tp, fp, fn, support int
		for i := range y {
			switch {
			case y[i] == cls && preds[i] == cls:
				tp++
			case y[i] != cls && preds[i] == cls:
				fp++
			case y[i] == cls && preds[i] != cls:
				fn++
			}
			if y[i] == cls {
				support++
			}
		}
		if support == 0 && tp+fp == 0 {
			continue
		}
		m := ClassMetrics{Support: support}
		if tp+fp > 0 {
			m.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			m.Recall = float64(tp) / float64(tp+fn)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		eval.PerClass[label] = m
	}

	return eval
}
