// SPDX-License-Identifier: MIT
package fft

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, -8, 3, 1000, 8191} {
		if _, err := New(n); !errors.Is(err, ErrNotPowerOfTwo) {
			t.Errorf("New(%d) error = %v, want ErrNotPowerOfTwo", n, err)
		}
	}
}

func TestForwardLengthMismatch(t *testing.T) {
	tr, err := New(8)
	if err != nil {
		t.Fatalf("New(8): %v", err)
	}
	if err := tr.Forward(make([]complex128, 4)); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Forward(short) error = %v, want ErrLengthMismatch", err)
	}
	if tr.Stages() != 3 {
		t.Errorf("Stages() = %d, want 3", tr.Stages())
	}
}

func TestForwardImpulseIsFlat(t *testing.T) {
	tr, _ := New(16)
	buf := make([]complex128, 16)
	buf[0] = 1

	if err := tr.Forward(buf); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	for i, c := range buf {
		if math.Abs(cmplx.Abs(c)-1) > 1e-12 {
			t.Errorf("bin %d magnitude = %f, want 1", i, cmplx.Abs(c))
		}
	}
}

func TestForwardSinePeaksAtItsBin(t *testing.T) {
	tr, _ := New(testFFTSize)
	const bin = 40
	freq := float64(bin) * testSampleRate / testFFTSize

	buf := make([]complex128, testFFTSize)
	for i := range buf {
		buf[i] = complex(math.Sin(2*math.Pi*freq*float64(i)/testSampleRate), 0)
	}
	if err := tr.Forward(buf); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	peak := 0
	for i := 1; i < testFFTSize/2; i++ {
		if cmplx.Abs(buf[i]) > cmplx.Abs(buf[peak]) {
			peak = i
		}
	}
	if peak != bin {
		t.Errorf("peak bin = %d, want %d", peak, bin)
	}
	if got := tr.BinFrequency(bin, testSampleRate); math.Abs(got-freq) > 1e-9 {
		t.Errorf("BinFrequency(%d) = %f, want %f", bin, got, freq)
	}
}

func TestForwardHotPath(t *testing.T) {
	tr, _ := New(testFFTSize)
	buf := make([]complex128, testFFTSize)
	for i := range buf {
		buf[i] = complex(float64((i%256)-128)/128, 0)
	}

	tr.Forward(buf)
	allocs := testing.AllocsPerRun(100, func() {
		_ = tr.Forward(buf)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Forward hot path, got %.1f", allocs)
	}
}

func BenchmarkForward(b *testing.B) {
	tr, _ := New(8192)
	buf := make([]complex128, 8192)
	b.ReportAllocs()
	for b.Loop() {
		_ = tr.Forward(buf)
	}
}
