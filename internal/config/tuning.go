package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig holds the hand-tuned thresholds of the inference pipeline.
// The stop/direction-change constants are empirical, not derived, so every
// one of them is overridable from a JSON file; fields omitted from the file
// keep their defaults, so partial configs are safe.
type TuningConfig struct {
	// Waypoint analysis params
	StopSpeedKMH        *float64 `json:"stop_speed_kmh,omitempty"`
	DirectionChangeDeg  *float64 `json:"direction_change_deg,omitempty"`
	MinTimedStopSeconds *float64 `json:"min_timed_stop_seconds,omitempty"`

	// Segmentation params
	MinStopDurationSeconds *float64 `json:"min_stop_duration_seconds,omitempty"`
	MinSegmentWaypoints    *int     `json:"min_segment_waypoints,omitempty"`

	// Model training params
	ForestTrees       *int     `json:"forest_trees,omitempty"`
	ForestMaxDepth    *int     `json:"forest_max_depth,omitempty"`
	BoostRounds       *int     `json:"boost_rounds,omitempty"`
	BoostMaxDepth     *int     `json:"boost_max_depth,omitempty"`
	BoostLearningRate *float64 `json:"boost_learning_rate,omitempty"`
	TrainingSeed      *int64   `json:"training_seed,omitempty"`
}

// DefaultTuningConfig returns a TuningConfig with all fields unset, so every
// accessor reports its default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.StopSpeedKMH != nil && *c.StopSpeedKMH <= 0 {
		return fmt.Errorf("stop_speed_kmh must be positive, got %f", *c.StopSpeedKMH)
	}
	if c.DirectionChangeDeg != nil && (*c.DirectionChangeDeg <= 0 || *c.DirectionChangeDeg > 180) {
		return fmt.Errorf("direction_change_deg must be in (0,180], got %f", *c.DirectionChangeDeg)
	}
	if c.MinStopDurationSeconds != nil && *c.MinStopDurationSeconds < 0 {
		return fmt.Errorf("min_stop_duration_seconds must be non-negative, got %f", *c.MinStopDurationSeconds)
	}
	if c.MinSegmentWaypoints != nil && *c.MinSegmentWaypoints < 2 {
		return fmt.Errorf("min_segment_waypoints must be at least 2, got %d", *c.MinSegmentWaypoints)
	}
	if c.ForestTrees != nil && *c.ForestTrees < 1 {
		return fmt.Errorf("forest_trees must be positive, got %d", *c.ForestTrees)
	}
	if c.BoostRounds != nil && *c.BoostRounds < 1 {
		return fmt.Errorf("boost_rounds must be positive, got %d", *c.BoostRounds)
	}
	if c.BoostLearningRate != nil && *c.BoostLearningRate <= 0 {
		return fmt.Errorf("boost_learning_rate must be positive, got %f", *c.BoostLearningRate)
	}
	return nil
}

// GetStopSpeedKMH returns the speed below which a pair of fixes counts as a
// stop instant, in km/h.
func (c *TuningConfig) GetStopSpeedKMH() float64 {
	if c.StopSpeedKMH == nil {
		return 1.0
	}
	return *c.StopSpeedKMH
}

// GetDirectionChangeDeg returns the bearing difference counted as a
// significant direction change, in degrees.
func (c *TuningConfig) GetDirectionChangeDeg() float64 {
	if c.DirectionChangeDeg == nil {
		return 45.0
	}
	return *c.DirectionChangeDeg
}

// GetMinTimedStopSeconds returns the minimum stop length included in
// stop-duration averaging. Shorter stops are still counted.
func (c *TuningConfig) GetMinTimedStopSeconds() float64 {
	if c.MinTimedStopSeconds == nil {
		return 30.0
	}
	return *c.MinTimedStopSeconds
}

// GetMinStopDurationSeconds returns the stop length that splits a trip into
// separate segments.
func (c *TuningConfig) GetMinStopDurationSeconds() float64 {
	if c.MinStopDurationSeconds == nil {
		return 300.0
	}
	return *c.MinStopDurationSeconds
}

// GetMinSegmentWaypoints returns the minimum number of waypoints required
// before segmentation is attempted. Shorter inputs yield one unclassified
// segment covering the whole trip.
func (c *TuningConfig) GetMinSegmentWaypoints() int {
	if c.MinSegmentWaypoints == nil {
		return 10
	}
	return *c.MinSegmentWaypoints
}

// GetForestTrees returns the number of trees in the bagged forest.
func (c *TuningConfig) GetForestTrees() int {
	if c.ForestTrees == nil {
		return 100
	}
	return *c.ForestTrees
}

// GetForestMaxDepth returns the maximum depth of forest trees.
func (c *TuningConfig) GetForestMaxDepth() int {
	if c.ForestMaxDepth == nil {
		return 10
	}
	return *c.ForestMaxDepth
}

// GetBoostRounds returns the number of boosting rounds.
func (c *TuningConfig) GetBoostRounds() int {
	if c.BoostRounds == nil {
		return 100
	}
	return *c.BoostRounds
}

// GetBoostMaxDepth returns the maximum depth of boosted trees.
func (c *TuningConfig) GetBoostMaxDepth() int {
	if c.BoostMaxDepth == nil {
		return 3
	}
	return *c.BoostMaxDepth
}

// GetBoostLearningRate returns the boosting learning rate.
func (c *TuningConfig) GetBoostLearningRate() float64 {
	if c.BoostLearningRate == nil {
		return 0.1
	}
	return *c.BoostLearningRate
}

// GetTrainingSeed returns the RNG seed used for bootstrap sampling and the
// train/test split, so training runs are reproducible.
func (c *TuningConfig) GetTrainingSeed() int64 {
	if c.TrainingSeed == nil {
		return 42
	}
	return *c.TrainingSeed
}
