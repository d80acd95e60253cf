// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{-8, false},     // Negative number
		{0, false},      // Zero
		{1, true},       // One
		{8, true},       // Small transform
		{1000, false},   // Not power of two
		{8192, true},    // Default transform length
		{1 << 20, true}, // Large power of two
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%t", tt.n, tt.expected), func(t *testing.T) {
			if got := IsPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, got, tt.expected)
			}
		})
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{8, 8},
		{1000, 1024},
		{8193, 16384},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestPrevAndNearestPowerOfTwo(t *testing.T) {
	tests := []struct {
		n       int
		prev    int
		nearest int
	}{
		{0, 0, 1},
		{1, 1, 1},
		{3, 2, 4}, // tie prefers the larger
		{5, 4, 4},
		{7, 4, 8},
		{1000, 512, 1024},
		{6000, 4096, 4096},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.n), func(t *testing.T) {
			if got := PrevPowerOfTwo(tt.n); got != tt.prev {
				t.Errorf("PrevPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.prev)
			}
			if got := NearestPowerOfTwo(tt.n); got != tt.nearest {
				t.Errorf("NearestPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.nearest)
			}
		})
	}
}

func TestLog2(t *testing.T) {
	for shift := 0; shift < 20; shift++ {
		if got := Log2(1 << shift); got != shift {
			t.Errorf("Log2(%d) = %d, expected %d", 1<<shift, got, shift)
		}
	}
}

func BenchmarkIsPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for b.Loop() {
		IsPowerOfTwo(i % 10000)
		i++
	}
}
