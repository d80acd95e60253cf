// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"
)

// BandScale selects how the audible range is divided between bars.
type BandScale int

const (
	// LogScale spaces edges evenly on a logarithmic axis.
	LogScale BandScale = iota
	// SegmentedScale splits the range into six named sub-ranges, each with
	// a fixed share of the bars, and interpolates logarithmically inside
	// each one. The shares favour treble content.
	SegmentedScale
	// WarpedScale applies a square-root warp to the bar position before
	// logarithmic interpolation, which widens low bands and gives more bars
	// to the upper octaves.
	WarpedScale
)

func (s BandScale) String() string {
	switch s {
	case LogScale:
		return "log"
	case SegmentedScale:
		return "segmented"
	case WarpedScale:
		return "warped"
	default:
		return fmt.Sprintf("BandScale(%d)", int(s))
	}
}

// ParseBandScale converts a config name to a BandScale.
func ParseBandScale(name string) (BandScale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "log", "logarithmic":
		return LogScale, nil
	case "segmented":
		return SegmentedScale, nil
	case "warped", "sqrt":
		return WarpedScale, nil
	default:
		return LogScale, fmt.Errorf("%w: unknown band scale %q", ErrInvalidConfig, name)
	}
}

// Segment is one named sub-range of the segmented band map.
type Segment struct {
	Name   string
	HighHz float64 // upper edge; the last segment always ends at the map's hi
	Share  float64 // fraction of the bar count allocated to this segment
}

// DefaultSegments are the sub-ranges used by SegmentedScale.
var DefaultSegments = []Segment{
	{Name: "lowMid", HighHz: 250, Share: 0.10},
	{Name: "mid", HighHz: 500, Share: 0.10},
	{Name: "upperMid", HighHz: 2000, Share: 0.15},
	{Name: "presence", HighHz: 4000, Share: 0.20},
	{Name: "brilliance", HighHz: 8000, Share: 0.20},
	{Name: "air", HighHz: 20000, Share: 0.25},
}

// BuildBandEdges returns barCount+1 strictly increasing frequencies with
// edges[0] == lo and edges[barCount] == hi.
func BuildBandEdges(barCount int, lo, hi float64, scale BandScale) ([]float64, error) {
	if barCount < 1 {
		return nil, fmt.Errorf("%w: bar count must be at least 1, got %d", ErrInvalidConfig, barCount)
	}
	if lo <= 0 || hi <= lo || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		return nil, fmt.Errorf("%w: frequency range must satisfy 0 < lo < hi, got [%g, %g]", ErrInvalidConfig, lo, hi)
	}

	var edges []float64
	switch scale {
	case LogScale:
		edges = logEdges(barCount, lo, hi, 1)
	case WarpedScale:
		edges = logEdges(barCount, lo, hi, 0.5)
	case SegmentedScale:
		edges = segmentedEdges(barCount, lo, hi, DefaultSegments)
	default:
		return nil, fmt.Errorf("%w: unknown band scale %d", ErrInvalidConfig, int(scale))
	}

	// Pin the ends exactly; pow rounding can land a ulp off.
	edges[0], edges[barCount] = lo, hi
	for i := 1; i <= barCount; i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("%w: band edges not increasing at %d (%g <= %g); reduce bar count",
				ErrInvalidConfig, i, edges[i], edges[i-1])
		}
	}
	return edges, nil
}

// logEdges computes lo·(hi/lo)^((i/n)^warp).
func logEdges(n int, lo, hi, warp float64) []float64 {
	edges := make([]float64, n+1)
	ratio := hi / lo
	for i := range edges {
		p := float64(i) / float64(n)
		if warp != 1 {
			p = math.Pow(p, warp)
		}
		edges[i] = lo * math.Pow(ratio, p)
	}
	return edges
}

// segmentedEdges clips the segments to (lo, hi), distributes n bars by
// largest remainder and log-interpolates inside each segment. A segment
// that receives no bars is absorbed by the next one.
func segmentedEdges(n int, lo, hi float64, segments []Segment) []float64 {
	bounds := make([]float64, 0, len(segments)+1)
	shares := make([]float64, 0, len(segments))
	bounds = append(bounds, lo)
	for i, s := range segments {
		top := s.HighHz
		if i == len(segments)-1 || top >= hi {
			top = hi
		}
		if top <= bounds[len(bounds)-1] {
			continue
		}
		bounds = append(bounds, top)
		shares = append(shares, s.Share)
		if top == hi {
			break
		}
	}
	if len(shares) == 0 {
		return logEdges(n, lo, hi, 1)
	}

	counts := allocateBars(n, shares)

	edges := make([]float64, 0, n+1)
	edges = append(edges, lo)
	start := lo
	last := len(counts) - 1
	for last > 0 && counts[last] == 0 {
		last--
	}
	for s := 0; s <= last; s++ {
		if counts[s] == 0 {
			continue
		}
		end := bounds[s+1]
		if s == last {
			end = hi
		}
		ratio := end / start
		for k := 1; k <= counts[s]; k++ {
			edges = append(edges, start*math.Pow(ratio, float64(k)/float64(counts[s])))
		}
		start = end
	}
	return edges
}

// allocateBars splits n into len(shares) non-negative counts proportional
// to shares using the largest remainder method.
func allocateBars(n int, shares []float64) []int {
	counts := make([]int, len(shares))
	if len(shares) == 0 {
		return counts
	}
	var total float64
	for _, s := range shares {
		total += math.Max(s, 0)
	}
	if total == 0 {
		counts[len(counts)-1] = n
		return counts
	}

	remainders := make([]float64, len(shares))
	assigned := 0
	for i, s := range shares {
		exact := float64(n) * math.Max(s, 0) / total
		counts[i] = int(exact)
		remainders[i] = exact - float64(counts[i])
		assigned += counts[i]
	}
	for ; assigned < n; assigned++ {
		best := 0
		for i := range remainders {
			if remainders[i] > remainders[best] {
				best = i
			}
		}
		counts[best]++
		remainders[best] = -1
	}
	return counts
}
