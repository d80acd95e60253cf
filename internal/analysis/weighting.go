// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// Tier maps every input below Below to Value. Tiers are evaluated in order;
// the last tier also catches everything above its own Below.
type Tier struct {
	Below float64 `yaml:"below"`
	Value float64 `yaml:"value"`
}

// TierTable is a piecewise-constant curve.
type TierTable []Tier

// Lookup returns the value of the first tier whose Below exceeds x. An
// empty table is neutral and returns 1.
func (t TierTable) Lookup(x float64) float64 {
	if len(t) == 0 {
		return 1
	}
	for _, tier := range t {
		if x < tier.Below {
			return tier.Value
		}
	}
	return t[len(t)-1].Value
}

func (t TierTable) validate(name string) error {
	for i, tier := range t {
		if tier.Value < 0 || math.IsNaN(tier.Value) {
			return fmt.Errorf("%w: %s tier %d has negative value %g", ErrInvalidConfig, name, i, tier.Value)
		}
		if i > 0 && tier.Below <= t[i-1].Below {
			return fmt.Errorf("%w: %s tiers must have increasing bounds (tier %d)", ErrInvalidConfig, name, i)
		}
	}
	return nil
}

// Weighting holds the tunable curves that turn raw transform magnitudes
// into visually balanced bar heights. Frequencies are in Hz; positions are
// the bar index divided by the bar count.
type Weighting struct {
	// FrequencyTiers boosts higher frequencies, which carry less raw energy.
	FrequencyTiers TierTable `yaml:"frequency_tiers"`
	// FrequencyLogScale multiplies the tier weight by log10(f+1)/log10(hi).
	FrequencyLogScale bool `yaml:"frequency_log_scale"`
	// Compensation approximates an equal-loudness contour.
	Compensation TierTable `yaml:"compensation"`
	// PositionWeights boosts the edge regions (sub-bass and air) inside the
	// band sum.
	PositionWeights TierTable `yaml:"position_weights"`
	// PositionScales multiplies the compressed level of each bar.
	PositionScales TierTable `yaml:"position_scales"`
	// Gain is k in log10(1 + level·k).
	Gain float64 `yaml:"gain"`
	// OutputScale maps the compressed value onto the bar height range.
	OutputScale float64 `yaml:"output_scale"`
}

// DefaultWeighting returns the tuned starting curves.
func DefaultWeighting() Weighting {
	return Weighting{
		FrequencyTiers: TierTable{
			{Below: 500, Value: 2.0},
			{Below: 2000, Value: 2.5},
			{Below: 4000, Value: 3.0},
			{Below: 8000, Value: 3.5},
			{Below: math.MaxFloat64, Value: 4.0},
		},
		FrequencyLogScale: true,
		Compensation: TierTable{
			{Below: 20, Value: 0.1},
			{Below: 50, Value: 0.5},
			{Below: 100, Value: 0.8},
			{Below: 200, Value: 1.0},
			{Below: 500, Value: 1.1},
			{Below: 1000, Value: 1.2},
			{Below: 2000, Value: 1.3},
			{Below: 4000, Value: 1.4},
			{Below: 8000, Value: 1.3},
			{Below: 16000, Value: 1.2},
			{Below: math.MaxFloat64, Value: 1.0},
		},
		PositionWeights: TierTable{
			{Below: 0.1, Value: 1.5},
			{Below: 0.2, Value: 1.25},
			{Below: 0.3, Value: 1.0},
			{Below: 0.5, Value: 1.0},
			{Below: 0.7, Value: 1.1},
			{Below: 0.85, Value: 1.25},
			{Below: math.MaxFloat64, Value: 1.5},
		},
		PositionScales: TierTable{
			{Below: 0.1, Value: 4.0},
			{Below: 0.2, Value: 3.5},
			{Below: 0.3, Value: 3.0},
			{Below: 0.5, Value: 2.5},
			{Below: 0.7, Value: 3.0},
			{Below: 0.85, Value: 3.5},
			{Below: math.MaxFloat64, Value: 4.0},
		},
		Gain:        20,
		OutputScale: 8,
	}
}

// FlatWeighting weights every bin and bar equally. Useful for diagnostics
// where raw band levels must be comparable.
func FlatWeighting() Weighting {
	return Weighting{Gain: 20, OutputScale: 1}
}

// Validate checks that every curve is usable.
func (w Weighting) Validate() error {
	if w.Gain <= 0 || math.IsNaN(w.Gain) {
		return fmt.Errorf("%w: gain must be positive, got %g", ErrInvalidConfig, w.Gain)
	}
	if w.OutputScale <= 0 || math.IsNaN(w.OutputScale) {
		return fmt.Errorf("%w: output scale must be positive, got %g", ErrInvalidConfig, w.OutputScale)
	}
	tables := []struct {
		name string
		t    TierTable
	}{
		{"frequency", w.FrequencyTiers},
		{"compensation", w.Compensation},
		{"position weight", w.PositionWeights},
		{"position scale", w.PositionScales},
	}
	for _, tt := range tables {
		if err := tt.t.validate(tt.name); err != nil {
			return err
		}
	}
	return nil
}

// binWeight is the frequency-dependent part of the weight for a bin at
// freq Hz, given the top of the analysed range.
func (w Weighting) binWeight(freq, hi float64) float64 {
	weight := w.FrequencyTiers.Lookup(freq) * w.Compensation.Lookup(freq)
	if w.FrequencyLogScale {
		weight *= math.Log10(freq+1) / math.Log10(hi)
	}
	return weight
}
