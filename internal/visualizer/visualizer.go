// SPDX-License-Identifier: MIT

/*
Package visualizer turns a stream of audio frames into smoothed bar
heights for a rendering surface.

Data flows one way:

	Submit(frame) -> mailbox (one slot, latest wins)
	             -> worker: Analyzer.Analyze -> Smoother.update
	             -> Renderer.Render(heights)

At most one analysis is in flight. Frames that arrive while the worker is
busy replace the waiting frame instead of queueing behind it. Results that
were computed before a Reset, a deactivation or Dispose are discarded by
generation. Errors and panics from analysis or rendering are logged and
never reach the caller; the next frame starts fresh.
*/
package visualizer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"spectrum/internal/analysis"
	applog "spectrum/internal/log"
)

var (
	// ErrInvalidConfig wraps configuration problems found by New.
	ErrInvalidConfig = errors.New("visualizer: invalid configuration")
	// ErrRendererPanic wraps a panic recovered from a Renderer.
	ErrRendererPanic = errors.New("visualizer: renderer panicked")
	// ErrDisposed is returned by reads after Dispose.
	ErrDisposed = errors.New("visualizer: disposed")
)

// Defaults for the smoothing stage.
const (
	DefaultAttackRate       = 0.5
	DefaultDecayRate        = 0.1
	DefaultMinHeight        = 2.0
	DefaultUpdateThreshold  = 2.0
	DefaultMinFrameInterval = 33 * time.Millisecond // ~30 updates/sec
)

// Config combines the analysis shape with the smoothing parameters.
type Config struct {
	Analysis         analysis.Config
	AttackRate       float64
	DecayRate        float64
	MinHeight        float64
	UpdateThreshold  float64
	MinFrameInterval time.Duration
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Analysis:         analysis.DefaultConfig(),
		AttackRate:       DefaultAttackRate,
		DecayRate:        DefaultDecayRate,
		MinHeight:        DefaultMinHeight,
		UpdateThreshold:  DefaultUpdateThreshold,
		MinFrameInterval: DefaultMinFrameInterval,
	}
}

// Validate checks the analysis shape and the smoothing parameters.
func (c Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return c.smoother().validate()
}

func (c Config) smoother() SmootherConfig {
	return SmootherConfig{
		AttackRate:       c.AttackRate,
		DecayRate:        c.DecayRate,
		MinHeight:        c.MinHeight,
		MaxHeight:        c.Analysis.MaxBarHeight,
		UpdateThreshold:  c.UpdateThreshold,
		MinFrameInterval: c.MinFrameInterval,
	}
}

// Stats are running counters, mainly for diagnostics and tests.
type Stats struct {
	Submitted uint64 // frames handed to Submit
	Replaced  uint64 // frames overwritten in the mailbox before analysis
	Analyzed  uint64 // analyses completed
	Accepted  uint64 // smoother updates accepted
	Stale     uint64 // results discarded by generation
	Rendered  uint64 // successful renderer deliveries
	Errors    uint64 // analysis or renderer failures
}

type counters struct {
	submitted, replaced, analyzed, accepted, stale, rendered, errors atomic.Uint64
}

// Option customises a Visualizer.
type Option func(*Visualizer)

// WithClock replaces time.Now for the rate limiter.
func WithClock(now func() time.Time) Option {
	return func(v *Visualizer) {
		v.smoother.now = now
	}
}

// Visualizer is the lifecycle controller around the analyzer, the smoother
// and the renderer.
type Visualizer struct {
	analyzer *analysis.Analyzer
	smoother *Smoother
	box      *mailbox

	// worker state; workMu is held for the whole of one analysis
	workMu    sync.Mutex
	workWS    *analysis.Workspace
	workFrame []float64

	// synchronous Process path
	syncMu sync.Mutex
	syncWS *analysis.Workspace

	// delivery
	renderMu sync.Mutex
	renderer Renderer
	out      []float64

	done        chan struct{}
	wg          sync.WaitGroup
	disposeOnce sync.Once
	disposed    atomic.Bool

	stats counters
	log   *logrus.Entry
}

// New validates cfg, precomputes the analysis tables and starts the
// analysis worker. renderer may be nil for pull-only use through Heights.
// Configuration errors are returned immediately; nothing degrades
// silently.
func New(cfg Config, renderer Renderer, opts ...Option) (*Visualizer, error) {
	analyzer, err := analysis.NewAnalyzer(cfg.Analysis)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	smoother, err := NewSmoother(cfg.Analysis.BarCount, cfg.smoother())
	if err != nil {
		return nil, err
	}
	workWS, err := analyzer.NewWorkspace()
	if err != nil {
		return nil, err
	}
	syncWS, err := analyzer.NewWorkspace()
	if err != nil {
		return nil, err
	}

	length := cfg.Analysis.TransformLength
	v := &Visualizer{
		analyzer:  analyzer,
		smoother:  smoother,
		box:       newMailbox(length),
		workWS:    workWS,
		workFrame: make([]float64, 0, length),
		syncWS:    syncWS,
		renderer:  renderer,
		out:       make([]float64, cfg.Analysis.BarCount),
		done:      make(chan struct{}),
		log:       applog.Component("visualizer"),
	}
	for _, opt := range opts {
		opt(v)
	}

	v.log.Infof("initialized (bars: %d, transform: %d, sample rate: %.0f Hz, window: %s, scale: %s, interval: %s)",
		cfg.Analysis.BarCount, length, cfg.Analysis.SampleRate, cfg.Analysis.Window, cfg.Analysis.Scale, cfg.MinFrameInterval)

	v.wg.Add(1)
	go v.run()
	return v, nil
}

// Analyzer exposes the read-only analysis tables.
func (v *Visualizer) Analyzer() *analysis.Analyzer {
	return v.analyzer
}

// Submit hands a frame to the analysis worker and returns immediately. The
// frame is copied, so the caller may reuse it. A frame still waiting from
// an earlier call is replaced. Returns false when the frame was ignored
// because the visualizer is inactive or disposed.
func (v *Visualizer) Submit(frame []float64) bool {
	if v.disposed.Load() || !v.smoother.Active() {
		return false
	}
	v.stats.submitted.Add(1)
	if v.box.put(frame) {
		v.stats.replaced.Add(1)
	}
	return true
}

// Process analyzes frame on the calling goroutine, updates the bars and
// delivers them. It reports whether the bars were updated. Use it when the
// host already runs analysis on its own worker.
func (v *Visualizer) Process(frame []float64) bool {
	v.syncMu.Lock()
	defer v.syncMu.Unlock()
	if v.disposed.Load() || v.syncWS == nil {
		return false
	}
	return v.analyzeAndUpdate(v.syncWS, frame)
}

func (v *Visualizer) run() {
	defer v.wg.Done()
	for {
		select {
		case <-v.done:
			return
		case <-v.box.ready:
			v.workMu.Lock()
			frame, ok := v.box.take(v.workFrame)
			if ok {
				v.workFrame = frame
				v.analyzeAndUpdate(v.workWS, frame)
			}
			v.workMu.Unlock()
		}
	}
}

// analyzeAndUpdate is the per-frame pipeline. Panics are contained here so
// one bad frame cannot stop the stream.
func (v *Visualizer) analyzeAndUpdate(ws *analysis.Workspace, frame []float64) (accepted bool) {
	defer func() {
		if p := recover(); p != nil {
			v.stats.errors.Add(1)
			v.log.Errorf("analysis panicked, frame skipped: %v", p)
			accepted = false
		}
	}()

	gen := v.smoother.Generation()
	heights, err := v.analyzer.Analyze(ws, frame)
	if err != nil {
		v.stats.errors.Add(1)
		v.log.Errorf("analysis failed, frame skipped: %v", err)
		return false
	}
	v.stats.analyzed.Add(1)

	accepted, stale := v.smoother.updateIfCurrent(gen, heights)
	if stale {
		v.stats.stale.Add(1)
		return false
	}
	if !accepted {
		return false
	}
	v.stats.accepted.Add(1)
	v.deliver()
	return true
}

// deliver pushes the current heights to the renderer.
func (v *Visualizer) deliver() {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	if v.renderer == nil || v.out == nil {
		return
	}
	if err := v.smoother.HeightsInto(v.out); err != nil {
		v.stats.errors.Add(1)
		v.log.Errorf("reading heights: %v", err)
		return
	}
	if err := safeRender(v.renderer, v.out); err != nil {
		v.stats.errors.Add(1)
		v.log.Warnf("renderer failed: %v", err)
		return
	}
	v.stats.rendered.Add(1)
}

// Heights returns a copy of the current bar heights.
func (v *Visualizer) Heights() []float64 {
	return v.smoother.Heights()
}

// HeightsInto copies the current bar heights into dst, which must have one
// element per bar.
func (v *Visualizer) HeightsInto(dst []float64) error {
	if v.disposed.Load() {
		return ErrDisposed
	}
	return v.smoother.HeightsInto(dst)
}

// BarCount returns the number of bars.
func (v *Visualizer) BarCount() int {
	return v.smoother.BarCount()
}

// Active reports the gate state.
func (v *Visualizer) Active() bool {
	return v.smoother.Active()
}

// SetActive opens or closes the gate. Closing it drops any waiting frame,
// invalidates the analysis in flight and collapses the bars to the floor,
// which is delivered to the renderer. The configuration is kept.
func (v *Visualizer) SetActive(active bool) {
	if v.disposed.Load() {
		return
	}
	if !v.smoother.SetActive(active) {
		return
	}
	if active {
		v.log.Debugf("activated")
		return
	}
	v.box.drop()
	v.log.Debugf("deactivated, bars cleared")
	v.deliver()
}

// Clear collapses the bars to the floor and delivers the result.
func (v *Visualizer) Clear() {
	v.smoother.Clear()
	v.deliver()
}

// Reset collapses the bars, zeroes the analysis scratch buffers and makes
// the next update bypass the rate limiter.
func (v *Visualizer) Reset() {
	if v.disposed.Load() {
		return
	}
	v.box.drop()
	v.smoother.Reset()

	v.workMu.Lock()
	if v.workWS != nil {
		v.workWS.Reset()
	}
	clear(v.workFrame)
	v.workMu.Unlock()

	v.syncMu.Lock()
	if v.syncWS != nil {
		v.syncWS.Reset()
	}
	v.syncMu.Unlock()

	v.log.Debugf("reset")
	v.deliver()
}

// Dispose stops the worker, collapses the bars one last time and releases
// the renderer and every buffer. It is idempotent and never panics, even
// when the renderer has already been torn down.
func (v *Visualizer) Dispose() {
	v.disposeOnce.Do(func() {
		defer func() {
			if p := recover(); p != nil {
				v.log.Warnf("dispose: ignored panic during shutdown: %v", p)
			}
		}()

		v.disposed.Store(true)
		v.smoother.invalidate()
		close(v.done)
		v.wg.Wait()

		v.Clear()

		v.renderMu.Lock()
		v.renderer = nil
		v.out = nil
		v.renderMu.Unlock()

		v.workMu.Lock()
		v.workWS = nil
		v.workFrame = nil
		v.workMu.Unlock()

		v.syncMu.Lock()
		v.syncWS = nil
		v.syncMu.Unlock()

		v.box.release()
		v.log.Infof("disposed")
	})
}

// Disposed reports whether Dispose has run.
func (v *Visualizer) Disposed() bool {
	return v.disposed.Load()
}

// Stats returns a snapshot of the running counters.
func (v *Visualizer) Stats() Stats {
	return Stats{
		Submitted: v.stats.submitted.Load(),
		Replaced:  v.stats.replaced.Load(),
		Analyzed:  v.stats.analyzed.Load(),
		Accepted:  v.stats.accepted.Load(),
		Stale:     v.stats.stale.Load(),
		Rendered:  v.stats.rendered.Load(),
		Errors:    v.stats.errors.Load(),
	}
}
