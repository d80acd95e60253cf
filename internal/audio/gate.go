// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// Gate silences buffers whose RMS level is below a threshold. The
// threshold is a linear level in [0, 1] relative to full scale. State is
// atomic so the UI can adjust it while the audio callback runs.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Uint64 // math.Float64bits
}

// NewGate returns a gate that is enabled when threshold > 0.
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.SetThreshold(threshold)
	g.enabled.Store(g.Threshold() > 0)
	return g
}

func (g *Gate) Enable() {
	g.enabled.Store(true)
}

func (g *Gate) Disable() {
	g.enabled.Store(false)
}

// Enabled reports whether the gate is active.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetThreshold adjusts the gate threshold, clamped to [0, 1] where 0 is
// always open and 1 is effectively always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if math.IsNaN(threshold) || threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	g.threshold.Store(math.Float64bits(threshold))
}

// Threshold returns the current threshold.
func (g *Gate) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

// Apply zeroes buf in place when the gate is enabled and the buffer's RMS
// is below the threshold. It reports whether the signal passed.
func (g *Gate) Apply(buf []float64) bool {
	if !g.enabled.Load() {
		return true
	}
	if RMS(buf) >= g.Threshold() {
		return true
	}
	clear(buf)
	return false
}

// RMS returns the root mean square of buf.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	return floats.Norm(buf, 2) / math.Sqrt(float64(len(buf)))
}
