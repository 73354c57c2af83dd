// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"slices"
	"testing"
)

func TestBit(t *testing.T) {
	tests := []struct {
		i        int
		expected uint32
	}{
		{-1, 0},       // Negative index
		{0, 0b1},      // First stream
		{3, 0b1000},   // Mid stream
		{31, 1 << 31}, // Highest addressable stream
		{32, 0},       // Out of range
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%#x", tt.i, tt.expected), func(t *testing.T) {
			result := Bit(tt.i)
			if result != tt.expected {
				t.Errorf("Bit(%d) = %#x, expected %#x", tt.i, result, tt.expected)
			}
		})
	}
}

func TestHasAll(t *testing.T) {
	tests := []struct {
		mask, sub uint32
		expected  bool
	}{
		{0b0111, 0b0101, true},  // Superset
		{0b0001, 0b0101, false}, // Partial grant
		{0b0000, 0b0000, true},  // Empty request
		{0b1000, 0b0000, true},  // Empty request, non-empty mask
		{0b0000, 0b0001, false}, // Nothing granted
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%#b⊇%#b", tt.mask, tt.sub), func(t *testing.T) {
			result := HasAll(tt.mask, tt.sub)
			if result != tt.expected {
				t.Errorf("HasAll(%#b, %#b) = %v, expected %v", tt.mask, tt.sub, result, tt.expected)
			}
		})
	}
}

func TestHasAny(t *testing.T) {
	if !HasAny(0b0110, 0b0100) {
		t.Error("expected shared bit to be detected")
	}
	if HasAny(0b0110, 0b1001) {
		t.Error("expected disjoint masks to report false")
	}
}

func TestIndicesAndCount(t *testing.T) {
	tests := []struct {
		mask     uint32
		expected []int
	}{
		{0, []int{}},
		{0b0101, []int{0, 2}},
		{0b1000, []int{3}},
		{1<<31 | 1, []int{0, 31}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%#x", tt.mask), func(t *testing.T) {
			got := Indices(tt.mask)
			if !slices.Equal(got, tt.expected) {
				t.Errorf("Indices(%#x) = %v, expected %v", tt.mask, got, tt.expected)
			}
			if Count(tt.mask) != len(tt.expected) {
				t.Errorf("Count(%#x) = %d, expected %d", tt.mask, Count(tt.mask), len(tt.expected))
			}
		})
	}
}

func BenchmarkHasAll(b *testing.B) {
	var i uint32
	b.ReportAllocs()
	for b.Loop() {
		HasAll(i, i&0b1010)
		i++
	}
}
