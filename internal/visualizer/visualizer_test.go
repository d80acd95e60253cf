// SPDX-License-Identifier: MIT
package visualizer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectrum/internal/analysis"
	"spectrum/pkg/utils"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Analysis.TransformLength = 1024
	cfg.Analysis.BarCount = 16
	cfg.MinFrameInterval = 0
	return cfg
}

func tone(cfg Config) []float64 {
	return utils.GenerateSineWave(cfg.Analysis.TransformLength, cfg.Analysis.SampleRate, 1000)
}

func newTestVisualizer(t *testing.T, cfg Config, r Renderer) *Visualizer {
	t.Helper()
	v, err := New(cfg, r)
	require.NoError(t, err)
	t.Cleanup(v.Dispose)
	return v
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Analysis.TransformLength = 1000
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, analysis.ErrInvalidConfig)

	cfg = smallConfig()
	cfg.DecayRate = 0
	_, err = New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSilenceStaysAtFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.TransformLength = 8
	cfg.Analysis.BarCount = 4
	rec := &utils.RecordingRenderer{}
	v := newTestVisualizer(t, cfg, rec)

	assert.True(t, v.Process(make([]float64, 8)))
	assert.Equal(t, []float64{2, 2, 2, 2}, v.Heights())
	assert.Equal(t, []float64{2, 2, 2, 2}, rec.Last())
}

func TestProcessDeliversTone(t *testing.T) {
	cfg := smallConfig()
	rec := &utils.RecordingRenderer{}
	v := newTestVisualizer(t, cfg, rec)

	require.True(t, v.Process(tone(cfg)))
	require.Equal(t, 1, rec.Count())

	heights := rec.Last()
	require.Len(t, heights, cfg.Analysis.BarCount)
	band := v.Analyzer().BandFor(1000)
	assert.Greater(t, heights[band], cfg.MinHeight)
	for _, h := range heights {
		assert.GreaterOrEqual(t, h, cfg.MinHeight)
		assert.LessOrEqual(t, h, cfg.Analysis.MaxBarHeight)
	}

	s := v.Stats()
	assert.Equal(t, uint64(1), s.Analyzed)
	assert.Equal(t, uint64(1), s.Accepted)
	assert.Equal(t, uint64(1), s.Rendered)
}

func TestSubmitReachesRenderer(t *testing.T) {
	cfg := smallConfig()
	rec := &utils.RecordingRenderer{}
	v := newTestVisualizer(t, cfg, rec)

	frame := tone(cfg)
	require.True(t, v.Submit(frame))
	clear(frame) // the visualizer works on its own copy

	assert.Eventually(t, func() bool { return rec.Count() > 0 }, 2*time.Second, 5*time.Millisecond)
	band := v.Analyzer().BandFor(1000)
	assert.Greater(t, rec.Last()[band], cfg.MinHeight)
}

func TestRateLimitedUpdatesAreNotDelivered(t *testing.T) {
	cfg := smallConfig()
	cfg.MinFrameInterval = time.Hour
	rec := &utils.RecordingRenderer{}
	v := newTestVisualizer(t, cfg, rec)

	assert.True(t, v.Process(tone(cfg)))
	assert.False(t, v.Process(tone(cfg)))
	assert.Equal(t, 1, rec.Count())

	v.Reset()
	assert.True(t, v.Process(tone(cfg)), "reset makes the next update immediate")
}

func TestWithClock(t *testing.T) {
	cfg := smallConfig()
	cfg.MinFrameInterval = 33 * time.Millisecond
	clock := newFakeClock()
	v, err := New(cfg, nil, WithClock(clock.now))
	require.NoError(t, err)
	defer v.Dispose()

	assert.True(t, v.Process(tone(cfg)))
	assert.False(t, v.Process(tone(cfg)))
	clock.advance(33 * time.Millisecond)
	assert.True(t, v.Process(tone(cfg)))
}

func TestDeactivatedVisualizerIgnoresFrames(t *testing.T) {
	cfg := smallConfig()
	rec := &utils.RecordingRenderer{}
	v := newTestVisualizer(t, cfg, rec)

	require.True(t, v.Process(tone(cfg)))
	v.SetActive(false)
	assert.False(t, v.Active())

	floor := fill(cfg.Analysis.BarCount, cfg.MinHeight)
	assert.Equal(t, floor, rec.Last(), "deactivation delivers the floor")

	assert.False(t, v.Submit(tone(cfg)))
	assert.False(t, v.Process(tone(cfg)))
	assert.Equal(t, floor, v.Heights())

	v.SetActive(true)
	assert.True(t, v.Process(tone(cfg)))
}

func TestResetCollapsesBars(t *testing.T) {
	cfg := smallConfig()
	rec := &utils.RecordingRenderer{}
	v := newTestVisualizer(t, cfg, rec)

	require.True(t, v.Process(tone(cfg)))
	v.Reset()
	floor := fill(cfg.Analysis.BarCount, cfg.MinHeight)
	assert.Equal(t, floor, v.Heights())
	assert.Equal(t, floor, rec.Last())
}

func TestRendererFailuresAreContained(t *testing.T) {
	cfg := smallConfig()

	t.Run("error", func(t *testing.T) {
		rec := &utils.RecordingRenderer{Err: errors.New("surface gone")}
		v := newTestVisualizer(t, cfg, rec)
		assert.True(t, v.Process(tone(cfg)))
		assert.Equal(t, uint64(1), v.Stats().Errors)
		assert.True(t, v.Process(tone(cfg)), "stream continues after a failure")
	})

	t.Run("panic", func(t *testing.T) {
		rec := &utils.RecordingRenderer{Panic: true}
		v := newTestVisualizer(t, cfg, rec)
		assert.NotPanics(t, func() { v.Process(tone(cfg)) })
		assert.Equal(t, uint64(1), v.Stats().Errors)
		assert.Zero(t, v.Stats().Rendered)
	})
}

func TestDispose(t *testing.T) {
	cfg := smallConfig()
	rec := &utils.RecordingRenderer{}
	v, err := New(cfg, rec)
	require.NoError(t, err)

	require.True(t, v.Process(tone(cfg)))
	v.Dispose()
	assert.True(t, v.Disposed())
	assert.Equal(t, fill(cfg.Analysis.BarCount, cfg.MinHeight), rec.Last())

	delivered := rec.Count()
	assert.NotPanics(t, func() {
		v.Dispose()
		v.Reset()
		v.SetActive(false)
		v.SetActive(true)
	})
	assert.False(t, v.Submit(tone(cfg)))
	assert.False(t, v.Process(tone(cfg)))
	assert.ErrorIs(t, v.HeightsInto(make([]float64, cfg.Analysis.BarCount)), ErrDisposed)
	assert.Equal(t, delivered, rec.Count(), "nothing is delivered after dispose")
}

func TestDisposeRejectsUpdatesStillInFlight(t *testing.T) {
	cfg := smallConfig()
	rec := &utils.RecordingRenderer{}
	v, err := New(cfg, rec)
	require.NoError(t, err)

	v.Dispose()
	floor := fill(cfg.Analysis.BarCount, cfg.MinHeight)
	delivered := rec.Count()

	// An analysis that read the generation after Dispose started.
	ws, err := v.analyzer.NewWorkspace()
	require.NoError(t, err)
	assert.False(t, v.analyzeAndUpdate(ws, tone(cfg)))

	assert.False(t, v.Active())
	assert.Equal(t, floor, v.Heights())
	assert.Equal(t, delivered, rec.Count())
}

func TestDisposeSurvivesPanickingRenderer(t *testing.T) {
	cfg := smallConfig()
	v, err := New(cfg, &utils.RecordingRenderer{Panic: true})
	require.NoError(t, err)
	assert.NotPanics(t, v.Dispose)
}

func TestConcurrentUse(t *testing.T) {
	cfg := smallConfig()
	v := newTestVisualizer(t, cfg, &utils.RecordingRenderer{})
	frame := tone(cfg)

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				switch (i + j) % 5 {
				case 0:
					v.Reset()
				case 1:
					v.Process(frame)
				case 2:
					v.Heights()
				default:
					v.Submit(frame)
				}
			}
		}()
	}
	wg.Wait()

	for _, h := range v.Heights() {
		assert.GreaterOrEqual(t, h, cfg.MinHeight)
		assert.LessOrEqual(t, h, cfg.Analysis.MaxBarHeight)
	}
}
