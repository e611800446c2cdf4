package chunk

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	minBitsPerIndex = 4
	// MaxPaletteSize is the largest palette a section can index.
	MaxPaletteSize = 1 << 16
)

// ErrShortBlockStates is returned when a packed array holds fewer words than
// its palette size requires.
var ErrShortBlockStates = errors.New("chunk: block states too short for palette")

// Indices is a section's flat palette index array in x + z*16 + y*256 order.
type Indices [SectionVolume]uint16

// CellIndex returns the flat index of local cell (x, y, z).
func CellIndex(x, y, z int) int {
	return x + z*Width + y*Width*Width
}

// BitsPerIndex returns the packed width for a palette of n entries:
// max(4, ceil(log2(n))).
func BitsPerIndex(n int) int {
	if n <= 1 {
		return minBitsPerIndex
	}
	return max(minBitsPerIndex, bits.Len(uint(n-1)))
}

// WordCount returns the number of 64-bit words holding a section whose
// palette has n entries. Indices never straddle two words.
func WordCount(n int) int {
	perWord := 64 / BitsPerIndex(n)
	return (SectionVolume + perWord - 1) / perWord
}

// DecodeBlockStates unpacks words using the width implied by paletteSize.
func DecodeBlockStates(words []int64, paletteSize int) (*Indices, error) {
	b := BitsPerIndex(paletteSize)
	if need := WordCount(paletteSize); len(words) < need {
		return nil, fmt.Errorf("%w: %d words, palette of %d needs %d", ErrShortBlockStates, len(words), paletteSize, need)
	}
	perWord := 64 / b
	mask := uint64(1)<<b - 1

	var out Indices
	for i := range out {
		w := uint64(words[i/perWord])
		out[i] = uint16(w >> (b * (i % perWord)) & mask)
	}
	return &out, nil
}

// EncodeBlockStates packs indices using the width implied by paletteSize.
// Callers pass the final palette size, which may exceed the size used to
// decode the same section.
func EncodeBlockStates(indices *Indices, paletteSize int) []int64 {
	b := BitsPerIndex(paletteSize)
	perWord := 64 / b
	mask := uint64(1)<<b - 1

	words := make([]int64, WordCount(paletteSize))
	for i, v := range indices {
		shift := b * (i % perWord)
		words[i/perWord] |= int64((uint64(v) & mask) << shift)
	}
	return words
}
