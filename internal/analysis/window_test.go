// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWindowBlackmanHarrisFormula(t *testing.T) {
	const length = 64
	w := BuildWindow(length, BlackmanHarris)
	require.Len(t, w, length)

	for i, got := range w {
		r := float64(i) / float64(length-1)
		want := 0.35875 - 0.48829*math.Cos(2*math.Pi*r) +
			0.14128*math.Cos(4*math.Pi*r) - 0.01168*math.Cos(6*math.Pi*r)
		assert.InDelta(t, want, got, 1e-12, "coefficient %d", i)
	}
}

func TestBuildWindowSymmetric(t *testing.T) {
	for _, fn := range []WindowFunc{BlackmanHarris, Hann, Hamming, Blackman, Nuttall, BlackmanNuttall, BartlettHann, Lanczos} {
		t.Run(fn.String(), func(t *testing.T) {
			for _, length := range []int{8, 1024, 8192} {
				w := BuildWindow(length, fn)
				for i := 0; i < length/2; i++ {
					if math.Abs(w[i]-w[length-1-i]) > 1e-9 {
						t.Fatalf("length %d: w[%d]=%g != w[%d]=%g", length, i, w[i], length-1-i, w[length-1-i])
					}
				}
			}
		})
	}
}

func TestBuildWindowDegenerateLengths(t *testing.T) {
	assert.Empty(t, BuildWindow(0, BlackmanHarris))
	assert.Equal(t, []float64{1}, BuildWindow(1, BlackmanHarris))
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in   string
		want WindowFunc
	}{
		{"", BlackmanHarris},
		{"Blackman-Harris", BlackmanHarris},
		{"blackman_harris", BlackmanHarris},
		{"Hanning", Hann},
		{"HAMMING", Hamming},
		{"nuttall", Nuttall},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseWindowFunc("kaiser")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
