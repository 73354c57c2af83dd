/*
Package bitint provides the bit manipulation helpers used for vehicle
stream and flag masks. A physical stream index i is represented by bit
(1 << i) of a uint32 mask, so at most 32 physical streams are addressable.

Design Principles:
- Zero Allocations: All predicates use stack memory only
- Predictable Performance: O(1) constant time operations (Indices is O(popcount))
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Build the mask for physical stream 2
	mask := bitint.Bit(2) // Returns 0b100

	// Check that every requested stream was granted
	ok := bitint.HasAll(granted, requested)

----------------------------------------------------------------------

What HasAll does:

	HasAll(mask, sub) reports whether every bit of sub is also set in mask.
	It is the "granted covers requested" check:

	  requested = 0b0101
	  granted   = 0b0111
	  granted & requested = 0b0101 == requested  -> true

	  requested = 0b0101
	  granted   = 0b0001
	  granted & requested = 0b0001 != requested  -> false

	An empty sub is always covered.
*/
package bitint

import "math/bits"

// MaxIndex is the highest bit index addressable in a uint32 mask.
const MaxIndex = 31

// Bit returns the mask with only bit i set. Out-of-range indexes return 0.
func Bit(i int) uint32 {
	if i < 0 || i > MaxIndex {
		return 0
	}
	return 1 << uint(i)
}

// HasAll reports whether every bit in sub is also set in mask.
func HasAll(mask, sub uint32) bool {
	return mask&sub == sub
}

// HasAny reports whether mask and sub share at least one bit.
func HasAny(mask, sub uint32) bool {
	return mask&sub != 0
}

// Count returns the number of set bits.
func Count(mask uint32) int {
	return bits.OnesCount32(mask)
}

// Indices returns the indexes of the set bits in ascending order.
//
// Examples:
//
//	Input   Output
//	0b0000  []
//	0b0101  [0 2]
//	0b1000  [3]
func Indices(mask uint32) []int {
	out := make([]int, 0, bits.OnesCount32(mask))
	for mask != 0 {
		i := bits.TrailingZeros32(mask)
		out = append(out, i)
		mask &^= 1 << uint(i)
	}
	return out
}
