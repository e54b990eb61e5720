/*
Package bitint provides the bit manipulation helpers used when sizing and
indexing FFT buffers.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Verify an FFT frame length before building options
	isValid := bitint.IsPowerOfTwo(fftSize)

	// Index of a sample after the FFT bit-reversal permutation
	j := bitint.ReverseBits(i, bitint.Log2(fftSize))

----------------------------------------------------------------------

What this code does:

	ReverseBits mirrors the low `width` bits of i. The radix-2 FFT
	stores its input in this order so the butterfly stages can run
	in place.
*/
package bitint

import "math/bits"

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because:
//   - Powers of 2 have exactly one bit set
//   - Subtracting 1 from a power of 2 sets all lower bits
//   - AND operation will be 0 only for powers of 2
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns floor(log2(n)) for n > 0, and 0 otherwise. For a power of
// two this is the number of radix-2 stages an FFT of length n needs.
func Log2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// ReverseBits returns i with its low width bits in reverse order. Bits above
// width are discarded.
func ReverseBits(i, width int) int {
	if width <= 0 {
		return 0
	}
	return int(bits.Reverse(uint(i)) >> (bits.UintSize - width))
}
