// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"testing"

	"spectrum/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(t *testing.T, mutate func(*Config)) (*Analyzer, *Workspace) {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)
	ws, err := a.NewWorkspace()
	require.NoError(t, err)
	return a, ws
}

func TestNewAnalyzerRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non power of two", func(c *Config) { c.TransformLength = 1000 }},
		{"zero length", func(c *Config) { c.TransformLength = 0 }},
		{"zero bars", func(c *Config) { c.BarCount = 0 }},
		{"zero height", func(c *Config) { c.MaxBarHeight = 0 }},
		{"negative rate", func(c *Config) { c.SampleRate = -1 }},
		{"lo above nyquist", func(c *Config) { c.SampleRate = 1000; c.LoFreq = 600 }},
		{"bad gain", func(c *Config) { c.Weighting.Gain = 0 }},
		{"unsorted tiers", func(c *Config) {
			c.Weighting.Compensation = TierTable{{Below: 100, Value: 1}, {Below: 50, Value: 1}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewAnalyzer(cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "err = %v", err)
		})
	}
}

func TestNewAnalyzerClampsHiToNyquist(t *testing.T) {
	a, _ := newTestAnalyzer(t, func(c *Config) { c.SampleRate = 16000 })
	edges := a.Edges()
	assert.Equal(t, 8000.0, edges[len(edges)-1])
	assert.Equal(t, 8000.0, a.Config().HiFreq)
}

func TestAnalyzeSilenceIsZero(t *testing.T) {
	a, ws := newTestAnalyzer(t, nil)

	for _, frame := range [][]float64{nil, {}, make([]float64, 8192), make([]float64, 100)} {
		heights, err := a.Analyze(ws, frame)
		require.NoError(t, err)
		require.Len(t, heights, a.Config().BarCount)
		for i, h := range heights {
			assert.Zero(t, h, "bar %d", i)
		}
	}
}

func TestAnalyzePureTonePeaksInItsBand(t *testing.T) {
	a, ws := newTestAnalyzer(t, func(c *Config) {
		c.BarCount = 32
		c.Weighting = FlatWeighting()
		c.MaxBarHeight = 1e9
	})

	for _, freq := range []float64{110, 440, 1000, 5000, 12000} {
		frame := utils.GenerateSineWave(8192, 44100, freq)
		_, err := a.Analyze(ws, frame)
		require.NoError(t, err)

		band := a.BandFor(freq)
		require.GreaterOrEqual(t, band, 0)

		peak := utils.FindPeakBin(ws.Levels, 0, len(ws.Levels)-1)
		assert.InDelta(t, band, peak, 1, "freq %g: peak band %d, expected %d", freq, peak, band)

		peakBin := utils.FindPeakBin(ws.Magnitudes, 0, len(ws.Magnitudes)-1)
		assert.InDelta(t, freq/a.BinWidth(), peakBin, 1, "freq %g", freq)
		start, end := a.BinRange(band)
		// The peak may round into the neighbouring bin at a band edge.
		assert.True(t, start-1 <= peakBin && peakBin <= end+1, "freq %g: bin %d far from [%d, %d)", freq, peakBin, start, end)

		for i, level := range ws.Levels {
			if i < band-3 || i > band+3 {
				assert.Greater(t, ws.Levels[band], 100*level, "freq %g: band %d vs far band %d", freq, band, i)
			}
		}
	}
}

func TestBinRangeBounds(t *testing.T) {
	a, _ := newTestAnalyzer(t, nil)
	assert.InDelta(t, 44100.0/8192, a.BinWidth(), 1e-12)

	start, end := a.BinRange(a.Config().BarCount - 1)
	assert.Less(t, start, end)
	assert.LessOrEqual(t, end, a.Config().TransformLength/2)

	for _, i := range []int{-1, a.Config().BarCount} {
		start, end := a.BinRange(i)
		assert.Zero(t, start)
		assert.Zero(t, end)
	}
}

func TestAnalyzeHeightsWithinCeiling(t *testing.T) {
	a, ws := newTestAnalyzer(t, nil)
	frame := utils.GenerateComplexWave(8192, 44100)
	for i := range frame {
		frame[i] *= 10 // well beyond full scale
	}

	heights, err := a.Analyze(ws, frame)
	require.NoError(t, err)
	for i, h := range heights {
		assert.GreaterOrEqual(t, h, 0.0, "bar %d", i)
		assert.LessOrEqual(t, h, a.Config().MaxBarHeight, "bar %d", i)
	}
}

func TestAnalyzeShortFrameIsZeroPadded(t *testing.T) {
	a, ws := newTestAnalyzer(t, nil)
	full := utils.GenerateSineWave(8192, 44100, 1000)

	padded := make([]float64, 8192)
	copy(padded, full[:4096])

	short, err := a.Analyze(ws, full[:4096])
	require.NoError(t, err)
	shortCopy := append([]float64(nil), short...)

	want, err := a.Analyze(ws, padded)
	require.NoError(t, err)
	assert.Equal(t, want, shortCopy)
}

func TestAnalyzeIsIndependentAcrossCalls(t *testing.T) {
	a, ws := newTestAnalyzer(t, nil)
	tone := utils.GenerateSineWave(8192, 44100, 440)

	first, _ := a.Analyze(ws, tone)
	firstCopy := append([]float64(nil), first...)
	_, _ = a.Analyze(ws, utils.GenerateSineWave(8192, 44100, 9000))
	again, _ := a.Analyze(ws, tone)

	assert.Equal(t, firstCopy, again)
}

func TestAnalyzeWorkspaceMismatch(t *testing.T) {
	a, _ := newTestAnalyzer(t, nil)
	_, other := newTestAnalyzer(t, func(c *Config) { c.TransformLength = 1024 })

	_, err := a.Analyze(other, make([]float64, 8192))
	assert.True(t, errors.Is(err, ErrWorkspaceMismatch))

	_, err = a.Analyze(nil, nil)
	assert.True(t, errors.Is(err, ErrWorkspaceMismatch))
}

func TestAnalyzeTinyTransform(t *testing.T) {
	a, ws := newTestAnalyzer(t, func(c *Config) {
		c.TransformLength = 8
		c.BarCount = 4
	})
	heights, err := a.Analyze(ws, []float64{0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, heights)
}

func TestWorkspaceReset(t *testing.T) {
	a, ws := newTestAnalyzer(t, nil)
	_, _ = a.Analyze(ws, utils.GenerateSineWave(8192, 44100, 440))
	ws.Reset()
	for _, v := range ws.Magnitudes {
		require.Zero(t, v)
	}
	for _, v := range ws.Heights {
		require.Zero(t, v)
	}
}

func TestDefaultWeightingFrequencyIsMonotonic(t *testing.T) {
	w := DefaultWeighting()
	prev := 0.0
	for f := 0.0; f <= 20000; f += 10 {
		v := w.FrequencyTiers.Lookup(f)
		require.GreaterOrEqual(t, v, prev, "frequency weight decreased at %g Hz", f)
		prev = v
	}
}

func TestAnalyzeHotPath(t *testing.T) {
	a, ws := newTestAnalyzer(t, nil)
	frame := utils.GenerateComplexWave(8192, 44100)

	_, _ = a.Analyze(ws, frame)
	allocs := testing.AllocsPerRun(20, func() {
		_, _ = a.Analyze(ws, frame)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Analyze hot path, got %.1f", allocs)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	a, _ := NewAnalyzer(DefaultConfig())
	ws, _ := a.NewWorkspace()
	frame := utils.GenerateComplexWave(8192, 44100)
	b.ReportAllocs()
	for b.Loop() {
		_, _ = a.Analyze(ws, frame)
	}
}
