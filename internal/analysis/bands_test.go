// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEdgeInvariants(t *testing.T, edges []float64, barCount int, lo, hi float64) {
	t.Helper()
	require.Len(t, edges, barCount+1)
	assert.Equal(t, lo, edges[0])
	assert.Equal(t, hi, edges[barCount])
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			t.Fatalf("edges not strictly increasing at %d: %g <= %g", i, edges[i], edges[i-1])
		}
	}
}

func TestBuildBandEdgesInvariants(t *testing.T) {
	for _, scale := range []BandScale{LogScale, SegmentedScale, WarpedScale} {
		for _, bars := range []int{1, 2, 3, 4, 5, 6, 7, 16, 50, 128, 512} {
			t.Run(fmt.Sprintf("%s/%d", scale, bars), func(t *testing.T) {
				edges, err := BuildBandEdges(bars, 20, 20000, scale)
				require.NoError(t, err)
				assertEdgeInvariants(t, edges, bars, 20, 20000)
			})
		}
	}
}

func TestBuildBandEdgesLogFormula(t *testing.T) {
	edges, err := BuildBandEdges(4, 20, 20000, LogScale)
	require.NoError(t, err)
	for i, e := range edges {
		want := 20 * math.Pow(1000, float64(i)/4)
		assert.InDelta(t, want, e, 1e-9)
	}
}

func TestBuildBandEdgesWarpedFavoursTreble(t *testing.T) {
	logEdges, _ := BuildBandEdges(100, 20, 20000, LogScale)
	warped, _ := BuildBandEdges(100, 20, 20000, WarpedScale)

	countAbove := func(edges []float64, f float64) int {
		n := 0
		for i := 0; i < len(edges)-1; i++ {
			if edges[i] >= f {
				n++
			}
		}
		return n
	}
	assert.Greater(t, countAbove(warped, 2000), countAbove(logEdges, 2000))
}

func TestBuildBandEdgesSegmentedAllocation(t *testing.T) {
	edges, err := BuildBandEdges(100, 20, 20000, SegmentedScale)
	require.NoError(t, err)

	// 25% of the bars belong to the air segment (8 kHz and above).
	above := 0
	for i := 0; i < 100; i++ {
		if edges[i] >= 8000-1e-6 {
			above++
		}
	}
	assert.Equal(t, 25, above)
}

func TestBuildBandEdgesSegmentedNarrowRange(t *testing.T) {
	// Range starts inside the "mid" segment and ends inside "presence".
	edges, err := BuildBandEdges(10, 300, 3000, SegmentedScale)
	require.NoError(t, err)
	assertEdgeInvariants(t, edges, 10, 300, 3000)
}

func TestBuildBandEdgesErrors(t *testing.T) {
	tests := []struct {
		name   string
		bars   int
		lo, hi float64
	}{
		{"zero bars", 0, 20, 20000},
		{"negative lo", 8, -1, 20000},
		{"inverted range", 8, 20000, 20},
		{"empty range", 8, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBandEdges(tt.bars, tt.lo, tt.hi, LogScale)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "err = %v", err)
		})
	}
}

func TestAllocateBars(t *testing.T) {
	counts := allocateBars(7, []float64{0.10, 0.10, 0.15, 0.20, 0.20, 0.25})
	total := 0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 7, total)

	assert.Equal(t, []int{0, 0, 3}, allocateBars(3, []float64{0, 0, 0}))
}

func TestParseBandScale(t *testing.T) {
	for in, want := range map[string]BandScale{"": LogScale, "LOG": LogScale, "segmented": SegmentedScale, "warped": WarpedScale} {
		got, err := ParseBandScale(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseBandScale("mel")
	assert.Error(t, err)
}
