package ml

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bundle is the versioned, immutable artifact set produced by a training
// run: both models, the fitted scaler, and the label/feature schemas they
// were trained against. A bundle is never mutated after creation; training
// builds a new one and the predictor swaps an atomic pointer.
type Bundle struct {
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	FeatureColumns []string  `json:"feature_columns"`
	Labels         []string  `json:"labels"`
	Scaler         *Scaler   `json:"scaler"`
	Forest         *Forest   `json:"forest"`
	Boost          *Boost    `json:"boost"`
}

// NewBundle assembles a bundle with a fresh version identifier.
func NewBundle(createdAt time.Time, featureColumns, labels []string, scaler *Scaler, forest *Forest, boost *Boost) *Bundle {
	return &Bundle{
		Version:        uuid.NewString(),
		CreatedAt:      createdAt,
		FeatureColumns: featureColumns,
		Labels:         labels,
		Scaler:         scaler,
		Forest:         forest,
		Boost:          boost,
	}
}

// Encode serialises the bundle to its JSON artifact format.
func (b *Bundle) Encode() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// DecodeBundle parses a bundle artifact and checks it is usable for
// inference.
func DecodeBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.Check(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Check verifies the bundle's internal consistency.
func (b *Bundle) Check() error {
	if len(b.Labels) == 0 {
		return fmt.Errorf("bundle %s: no labels", b.Version)
	}
	if len(b.FeatureColumns) == 0 {
		return fmt.Errorf("bundle %s: no feature columns", b.Version)
	}
	if b.Scaler == nil || b.Forest == nil || b.Boost == nil {
		return fmt.Errorf("bundle %s: missing artifacts", b.Version)
	}
	if b.Forest.NumClasses != len(b.Labels) || b.Boost.NumClasses != len(b.Labels) {
		return fmt.Errorf("bundle %s: model class count does not match labels", b.Version)
	}
	if len(b.Scaler.Mean) != len(b.FeatureColumns) {
		return fmt.Errorf("bundle %s: scaler fitted on %d features, schema has %d",
			b.Version, len(b.Scaler.Mean), len(b.FeatureColumns))
	}
	if len(b.Scaler.Std) != len(b.Scaler.Mean) {
		return fmt.Errorf("bundle %s: scaler has %d std entries for %d means",
			b.Version, len(b.Scaler.Std), len(b.Scaler.Mean))
	}
	for j, std := range b.Scaler.Std {
		if std == 0 {
			return fmt.Errorf("bundle %s: scaler column %d has zero std", b.Version, j)
		}
	}
	return nil
}
