// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"spectrum/internal/fft"
	"spectrum/pkg/bitint"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidConfig wraps every configuration problem detected at
// construction time.
var ErrInvalidConfig = errors.New("analysis: invalid configuration")

// ErrWorkspaceMismatch is returned when a Workspace built for a different
// Analyzer shape is passed to Analyze.
var ErrWorkspaceMismatch = errors.New("analysis: workspace does not match analyzer")

// Defaults for Config.
const (
	DefaultTransformLength = 8192
	DefaultBarCount        = 128
	DefaultMaxBarHeight    = 150.0
	DefaultSampleRate      = 44100.0
	DefaultLoFreq          = 20.0
	DefaultHiFreq          = 20000.0
)

// Config describes the shape of the analysis. It is copied by NewAnalyzer
// and never changes afterwards.
type Config struct {
	TransformLength int        // samples per transform, power of two
	BarCount        int        // number of output bands
	MaxBarHeight    float64    // height ceiling
	SampleRate      float64    // Hz, for bin to frequency mapping
	LoFreq          float64    // first band edge (Hz)
	HiFreq          float64    // last band edge (Hz), clamped to Nyquist
	Scale           BandScale  // band edge distribution
	Window          WindowFunc // apodization
	Weighting       Weighting  // perceptual curves
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		TransformLength: DefaultTransformLength,
		BarCount:        DefaultBarCount,
		MaxBarHeight:    DefaultMaxBarHeight,
		SampleRate:      DefaultSampleRate,
		LoFreq:          DefaultLoFreq,
		HiFreq:          DefaultHiFreq,
		Scale:           LogScale,
		Window:          BlackmanHarris,
		Weighting:       DefaultWeighting(),
	}
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if c.TransformLength < 2 || !bitint.IsPowerOfTwo(c.TransformLength) {
		return fmt.Errorf("%w: transform length must be a power of two >= 2, got %d (nearest %d)",
			ErrInvalidConfig, c.TransformLength, bitint.NearestPowerOfTwo(c.TransformLength))
	}
	if c.BarCount < 1 {
		return fmt.Errorf("%w: bar count must be at least 1, got %d", ErrInvalidConfig, c.BarCount)
	}
	if c.MaxBarHeight <= 0 || math.IsNaN(c.MaxBarHeight) {
		return fmt.Errorf("%w: max bar height must be positive, got %g", ErrInvalidConfig, c.MaxBarHeight)
	}
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) {
		return fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidConfig, c.SampleRate)
	}
	if c.LoFreq < 1 {
		return fmt.Errorf("%w: low frequency must be at least 1 Hz, got %g", ErrInvalidConfig, c.LoFreq)
	}
	if hi := c.effectiveHi(); c.LoFreq >= hi {
		return fmt.Errorf("%w: low frequency %g must be below high frequency %g", ErrInvalidConfig, c.LoFreq, hi)
	}
	return c.Weighting.Validate()
}

// effectiveHi clamps HiFreq to the Nyquist frequency.
func (c Config) effectiveHi() float64 {
	return math.Min(c.HiFreq, c.SampleRate/2)
}

type binRange struct {
	start, end int // [start, end)
}

// Analyzer turns one frame of samples into raw bar heights. All tables are
// computed once in NewAnalyzer and only read afterwards, so one Analyzer
// can serve any number of goroutines as long as each uses its own
// Workspace.
type Analyzer struct {
	cfg        Config
	window     []float64
	edges      []float64
	ranges     []binRange
	binWeights []float64 // frequency weight × compensation, per bin
	posWeights []float64 // per bar
	posScales  []float64 // per bar
	binWidth   float64
}

// NewAnalyzer validates cfg and precomputes the window, band edges, bin
// ranges and weights.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.HiFreq = cfg.effectiveHi()

	edges, err := BuildBandEdges(cfg.BarCount, cfg.LoFreq, cfg.HiFreq, cfg.Scale)
	if err != nil {
		return nil, err
	}

	half := cfg.TransformLength / 2
	binWidth := cfg.SampleRate / float64(cfg.TransformLength)

	a := &Analyzer{
		cfg:        cfg,
		window:     BuildWindow(cfg.TransformLength, cfg.Window),
		edges:      edges,
		ranges:     make([]binRange, cfg.BarCount),
		binWeights: make([]float64, half),
		posWeights: make([]float64, cfg.BarCount),
		posScales:  make([]float64, cfg.BarCount),
		binWidth:   binWidth,
	}

	for j := range a.binWeights {
		a.binWeights[j] = cfg.Weighting.binWeight(float64(j)*binWidth, cfg.HiFreq)
	}
	for i := range a.ranges {
		start := clampInt(int(edges[i]/binWidth), 0, half-1)
		end := clampInt(int(edges[i+1]/binWidth), 0, half)
		a.ranges[i] = binRange{start: start, end: end}

		pos := float64(i) / float64(cfg.BarCount)
		a.posWeights[i] = cfg.Weighting.PositionWeights.Lookup(pos)
		a.posScales[i] = cfg.Weighting.PositionScales.Lookup(pos)
	}

	return a, nil
}

// Config returns the effective configuration (HiFreq clamped).
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Edges returns a copy of the band edges.
func (a *Analyzer) Edges() []float64 {
	out := make([]float64, len(a.edges))
	copy(out, a.edges)
	return out
}

// Window returns a copy of the window coefficients.
func (a *Analyzer) Window() []float64 {
	out := make([]float64, len(a.window))
	copy(out, a.window)
	return out
}

// BinWidth returns the spacing between transform bins in Hz.
func (a *Analyzer) BinWidth() float64 {
	return a.binWidth
}

// BinRange returns the [start, end) transform bins that feed bar i. Bars
// outside [0, BarCount) have an empty range.
func (a *Analyzer) BinRange(i int) (start, end int) {
	if i < 0 || i >= len(a.ranges) {
		return 0, 0
	}
	r := a.ranges[i]
	return r.start, r.end
}

// BandFor returns the bar whose [edges[i], edges[i+1]) contains freq, or
// -1 when freq is outside the analysed range.
func (a *Analyzer) BandFor(freq float64) int {
	for i := 0; i < len(a.edges)-1; i++ {
		if freq >= a.edges[i] && freq < a.edges[i+1] {
			return i
		}
	}
	return -1
}

// Workspace holds the transient buffers of one analysis. It is owned by a
// single goroutine.
type Workspace struct {
	transform  *fft.Transform
	samples    []float64
	buf        []complex128
	Magnitudes []float64 // |X[k]| for k < TransformLength/2
	Levels     []float64 // weighted per-band averages before compression
	Heights    []float64 // output of the last Analyze call
}

// NewWorkspace allocates buffers sized for this analyzer.
func (a *Analyzer) NewWorkspace() (*Workspace, error) {
	tr, err := fft.New(a.cfg.TransformLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	n := a.cfg.TransformLength
	return &Workspace{
		transform:  tr,
		samples:    make([]float64, n),
		buf:        make([]complex128, n),
		Magnitudes: make([]float64, n/2),
		Levels:     make([]float64, a.cfg.BarCount),
		Heights:    make([]float64, a.cfg.BarCount),
	}, nil
}

// Reset zeroes every retained buffer.
func (ws *Workspace) Reset() {
	clear(ws.samples)
	clear(ws.buf)
	clear(ws.Magnitudes)
	clear(ws.Levels)
	clear(ws.Heights)
}

// Analyze windows frame, transforms it and aggregates the spectrum into
// BarCount heights in [0, MaxBarHeight]. Frames shorter than the transform
// length are zero padded; an empty frame is silence and yields all zeros.
// The returned slice is ws.Heights and is overwritten by the next call.
func (a *Analyzer) Analyze(ws *Workspace, frame []float64) ([]float64, error) {
	if ws == nil || len(ws.samples) != a.cfg.TransformLength || len(ws.Heights) != a.cfg.BarCount {
		return nil, ErrWorkspaceMismatch
	}
	if len(frame) == 0 {
		clear(ws.Magnitudes)
		clear(ws.Levels)
		clear(ws.Heights)
		return ws.Heights, nil
	}

	n := min(len(frame), a.cfg.TransformLength)
	floats.MulTo(ws.samples[:n], frame[:n], a.window[:n])
	clear(ws.samples[n:])
	for i, s := range ws.samples {
		ws.buf[i] = complex(s, 0)
	}

	if err := ws.transform.Forward(ws.buf); err != nil {
		return nil, err
	}

	for k := range ws.Magnitudes {
		ws.Magnitudes[k] = cmplx.Abs(ws.buf[k])
	}

	w := a.cfg.Weighting
	maxH := a.cfg.MaxBarHeight
	for i, r := range a.ranges {
		if r.end <= r.start {
			ws.Levels[i] = 0
			ws.Heights[i] = 0
			continue
		}
		var sum float64
		for j := r.start; j < r.end; j++ {
			sum += ws.Magnitudes[j] * a.binWeights[j]
		}
		level := sum * a.posWeights[i] / float64(r.end-r.start)
		ws.Levels[i] = level

		value := math.Log10(1+level*w.Gain) * a.posScales[i]
		ws.Heights[i] = math.Max(0, math.Min(maxH, value*maxH*w.OutputScale))
	}

	return ws.Heights, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
