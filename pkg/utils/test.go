// SPDX-License-Identifier: MIT

// Package utils holds signal generators and test doubles shared by the
// package tests.
package utils

import (
	"math"
	"sync"
)

// RecordingRenderer captures every height slice it is asked to render. It
// can be told to fail or panic so tests can check containment.
type RecordingRenderer struct {
	mu     sync.Mutex
	frames [][]float64

	Err   error // returned from Render when non-nil
	Panic bool  // Render panics when set
}

// Render stores a copy of heights.
func (r *RecordingRenderer) Render(heights []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Panic {
		panic("recording renderer: asked to panic")
	}
	frame := make([]float64, len(heights))
	copy(frame, heights)
	r.frames = append(r.frames, frame)
	return r.Err
}

// Count returns the number of rendered frames.
func (r *RecordingRenderer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Last returns the most recent frame, or nil.
func (r *RecordingRenderer) Last() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// Frames returns all recorded frames.
func (r *RecordingRenderer) Frames() [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]float64, len(r.frames))
	copy(out, r.frames)
	return out
}

// GenerateComplexWave returns a 440Hz tone with its second and third
// harmonics, normalized to [-0.9, 0.9].
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = 0.9 * (math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2)
	}
	return buffer
}

// GenerateSineWave returns a pure tone at the given frequency with
// amplitude 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
