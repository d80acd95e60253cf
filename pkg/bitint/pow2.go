// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two arithmetic used to validate and
size transform buffers. All functions are O(1), allocation free and safe
to call from the analysis hot path.

Usage:

	// Reject a transform length that radix-2 cannot handle
	if !bitint.IsPowerOfTwo(n) {
		return fmt.Errorf("try %d", bitint.NearestPowerOfTwo(n))
	}

NextPowerOfTwo rounds up through bits.Len on size-1 so that exact powers
of two map to themselves (8 -> bits.Len(7) = 3 -> 1<<3 = 8) instead of
being doubled.
*/
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of two. A power of two
// has exactly one bit set, so clearing the lowest set bit leaves zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n. Values <= 1
// return 1.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// PrevPowerOfTwo returns the largest power of two <= n, or 0 when n < 1.
func PrevPowerOfTwo(n int) int {
	if n < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

// NearestPowerOfTwo returns whichever of PrevPowerOfTwo and NextPowerOfTwo
// is closer to n, preferring the larger one on a tie.
func NearestPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	lo, hi := PrevPowerOfTwo(n), NextPowerOfTwo(n)
	if n-lo < hi-n {
		return lo
	}
	return hi
}

// Log2 returns the base-2 logarithm of a power of two, which is the number
// of radix-2 butterfly stages for a transform of that length. The result
// is undefined when n is not a power of two.
func Log2(n int) int {
	return bits.TrailingZeros(uint(n))
}
