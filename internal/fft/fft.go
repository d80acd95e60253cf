// SPDX-License-Identifier: MIT

// Package fft adapts gonum's complex radix-2 transform to the contract the
// analyzer relies on: a forward, in-place transform over a buffer whose
// length is a power of two. The transform algorithm itself is gonum's.
package fft

import (
	"errors"
	"fmt"

	"spectrum/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrNotPowerOfTwo is returned when a transform length cannot be handled by
// a radix-2 transform. It is a configuration error, not a data error.
var ErrNotPowerOfTwo = errors.New("fft: length is not a power of two")

// ErrLengthMismatch is returned by Forward when the buffer does not match
// the length the Transform was built for.
var ErrLengthMismatch = errors.New("fft: buffer length does not match transform length")

// Transform holds gonum's pre-computed twiddle factors and work area for a
// fixed length. It is not safe for concurrent use; give each goroutine its
// own Transform.
type Transform struct {
	n      int
	stages int
	calc   *fourier.CmplxFFT
}

// New builds a forward transform of length n.
func New(n int) (*Transform, error) {
	if !bitint.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: got %d (nearest %d)", ErrNotPowerOfTwo, n, bitint.NearestPowerOfTwo(n))
	}
	return &Transform{
		n:      n,
		stages: bitint.Log2(n),
		calc:   fourier.NewCmplxFFT(n),
	}, nil
}

// Len returns the transform length.
func (t *Transform) Len() int {
	return t.n
}

// Stages returns the number of radix-2 stages, log2(Len()).
func (t *Transform) Stages() int {
	return t.stages
}

// Forward replaces buf with its discrete Fourier transform. Callers put real
// samples in the real part and zero in the imaginary part.
func (t *Transform) Forward(buf []complex128) error {
	if len(buf) != t.n {
		return fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(buf), t.n)
	}
	t.calc.Coefficients(buf, buf)
	return nil
}

// BinFrequency returns the centre frequency in Hz of bin i for the given
// sample rate. Bins outside [0, Len()/2] return 0.
func (t *Transform) BinFrequency(i int, sampleRate float64) float64 {
	if i < 0 || i > t.n/2 {
		return 0
	}
	return t.calc.Freq(i) * sampleRate
}
