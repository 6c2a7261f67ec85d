/*
Package bitint provides the power-of-two helpers used to size analysis
buffers. Spectral analysers only accept power-of-two transform sizes, so
every FFT size read from configuration or a settings form passes through
here before a buffer is allocated.

All functions are allocation free and run in constant time.

	NextPowerOfTwo(1000)      // 1024
	IsPowerOfTwo(2048)        // true
	ClampPowerOfTwo(7, 32, 32768) // 32
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive sizes
// return 1.
//
// size-1 keeps exact powers of two in place: for 8 (1000b), bits.Len(7) = 3
// and 1<<3 = 8, whereas bits.Len(8) would give 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// ClampPowerOfTwo rounds size up to a power of two and clamps the result to
// [lo, hi]. Both bounds must themselves be powers of two.
func ClampPowerOfTwo(size, lo, hi int) int {
	n := NextPowerOfTwo(size)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Log2 returns the base-2 logarithm of a power of two n, or -1 when n is not
// a power of two.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
