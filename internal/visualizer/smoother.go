// SPDX-License-Identifier: MIT
package visualizer

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// SmootherConfig controls how bar heights follow their targets.
type SmootherConfig struct {
	AttackRate       float64       // α when the target is above the bar (fast rise)
	DecayRate        float64       // α when the target is at or below the bar (slow fall)
	MinHeight        float64       // floor, > 0 so bars stay visible
	MaxHeight        float64       // ceiling
	UpdateThreshold  float64       // dead zone; smaller changes are ignored
	MinFrameInterval time.Duration // minimum spacing between accepted updates
}

func (c SmootherConfig) validate() error {
	if c.AttackRate <= 0 || c.AttackRate > 1 {
		return fmt.Errorf("%w: attack rate must be in (0, 1], got %g", ErrInvalidConfig, c.AttackRate)
	}
	if c.DecayRate <= 0 || c.DecayRate > 1 {
		return fmt.Errorf("%w: decay rate must be in (0, 1], got %g", ErrInvalidConfig, c.DecayRate)
	}
	if c.MinHeight <= 0 || c.MinHeight >= c.MaxHeight {
		return fmt.Errorf("%w: min height must satisfy 0 < min < max (%g), got %g", ErrInvalidConfig, c.MaxHeight, c.MinHeight)
	}
	if c.UpdateThreshold < 0 {
		return fmt.Errorf("%w: update threshold must not be negative, got %g", ErrInvalidConfig, c.UpdateThreshold)
	}
	if c.MinFrameInterval < 0 {
		return fmt.Errorf("%w: min frame interval must not be negative, got %s", ErrInvalidConfig, c.MinFrameInterval)
	}
	return nil
}

// Smoother owns the per-bar heights shown to the renderer. It is the only
// mutable state shared between the analysis worker and readers, so every
// method takes the lock.
type Smoother struct {
	mu         sync.Mutex
	cfg        SmootherConfig
	heights    []float64
	active     bool
	lastUpdate time.Time // zero means never
	generation uint64    // bumped whenever pending results become stale
	now        func() time.Time
}

// NewSmoother returns an active smoother with every bar at the floor.
func NewSmoother(barCount int, cfg SmootherConfig) (*Smoother, error) {
	if barCount < 1 {
		return nil, fmt.Errorf("%w: bar count must be at least 1, got %d", ErrInvalidConfig, barCount)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Smoother{
		cfg:     cfg,
		heights: make([]float64, barCount),
		active:  true,
		now:     time.Now,
	}
	s.fillFloor()
	return s, nil
}

// Update moves every bar towards target. It returns false without touching
// any bar when the smoother is inactive or when the previous accepted
// update was less than MinFrameInterval ago. Missing targets count as
// silence.
func (s *Smoother) Update(target []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(target)
}

// updateIfCurrent is Update for results computed while gen was current.
// Results from an older generation are discarded.
func (s *Smoother) updateIfCurrent(gen uint64, target []float64) (accepted, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false, true
	}
	return s.updateLocked(target), false
}

func (s *Smoother) updateLocked(target []float64) bool {
	if !s.active {
		return false
	}
	now := s.now()
	if !s.lastUpdate.IsZero() && now.Sub(s.lastUpdate) < s.cfg.MinFrameInterval {
		return false
	}
	s.lastUpdate = now

	for i, current := range s.heights {
		var t float64
		if i < len(target) {
			t = target[i]
		}
		if math.IsNaN(t) {
			t = 0
		}
		t = math.Max(0, math.Min(s.cfg.MaxHeight, t))

		if math.Abs(t-current) < s.cfg.UpdateThreshold {
			continue
		}
		alpha := s.cfg.DecayRate
		if t > current {
			alpha = s.cfg.AttackRate
		}
		next := current*(1-alpha) + t*alpha
		s.heights[i] = math.Max(s.cfg.MinHeight, math.Min(s.cfg.MaxHeight, next))
	}
	return true
}

// Generation returns the current result generation.
func (s *Smoother) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Heights returns a copy of the current bar heights.
func (s *Smoother) Heights() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.heights))
	copy(out, s.heights)
	return out
}

// HeightsInto copies the current heights into dst without allocating.
// dst must have exactly one element per bar.
func (s *Smoother) HeightsInto(dst []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(dst) != len(s.heights) {
		return fmt.Errorf("destination slice length %d does not match bar count %d", len(dst), len(s.heights))
	}
	copy(dst, s.heights)
	return nil
}

// BarCount returns the number of bars.
func (s *Smoother) BarCount() int {
	return len(s.heights)
}

// Active reports whether updates are being accepted.
func (s *Smoother) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive toggles the gate. Deactivating collapses every bar to the floor
// and invalidates results still in flight. It reports whether the state
// changed.
func (s *Smoother) SetActive(active bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == active {
		return false
	}
	s.active = active
	if !active {
		s.generation++
		s.fillFloor()
	}
	return true
}

// Clear collapses every bar to the floor height.
func (s *Smoother) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fillFloor()
}

// Reset collapses every bar, forgets the last update time so the next
// update is always accepted, and invalidates results still in flight.
func (s *Smoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fillFloor()
	s.lastUpdate = time.Time{}
	s.generation++
}

// invalidate closes the gate for good and discards results still in
// flight. The bars are left as they are.
func (s *Smoother) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.generation++
}

func (s *Smoother) fillFloor() {
	for i := range s.heights {
		s.heights[i] = s.cfg.MinHeight
	}
}
