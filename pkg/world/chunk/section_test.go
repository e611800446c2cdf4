package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

func paletteOf(names ...string) *nbt.Tag {
	p := nbt.List()
	for _, n := range names {
		_ = p.Append(nbt.CompoundOf(nbt.Entry{Key: "Name", Value: nbt.String(n)}))
	}
	return p
}

func TestFindOrAddIndex(t *testing.T) {
	p := paletteOf("minecraft:stone", "minecraft:dirt")

	i, err := FindOrAddIndex(p, "minecraft:dirt")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), i)

	i, err = FindOrAddIndex(p, "minecraft:glass")
	require.NoError(t, err)
	assert.Equal(t, uint16(2), i)
	assert.Equal(t, 3, p.Len())

	i, err = FindOrAddIndex(p, "minecraft:glass")
	require.NoError(t, err)
	assert.Equal(t, uint16(2), i)

	var empty nbt.Tag
	i, err = FindOrAddIndex(&empty, "minecraft:air")
	require.NoError(t, err)
	assert.Equal(t, uint16(0), i)
	assert.Equal(t, nbt.TagList, empty.Kind())

	_, err = FindOrAddIndex(nbt.Int(3), "x")
	assert.ErrorIs(t, err, nbt.ErrTypeMismatch)
}

func TestFindOrCreateSection(t *testing.T) {
	sections := nbt.List(NewSection(2))

	s, err := FindOrCreateSection(sections, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sections.Len())
	y, _ := s.Get("Y")
	v, _ := y.Int8()
	assert.Equal(t, int8(2), v)

	_, err = FindOrCreateSection(sections, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, sections.Len())

	created, _ := sections.At(1)
	states, _ := created.Get("BlockStates")
	assert.Equal(t, 256, states.Len())
}

func TestSectionEditorUntouchedIsStable(t *testing.T) {
	section := NewSection(0)
	palette, _ := section.Get("Palette")
	palette.Replace(paletteOf(Air, "minecraft:stone", "minecraft:dirt"))

	var idx Indices
	for i := range idx {
		idx[i] = uint16(i % 3)
	}
	words := EncodeBlockStates(&idx, 3)
	states, _ := section.Get("BlockStates")
	require.NoError(t, states.SetInt64s(append([]int64(nil), words...)))

	e, err := OpenSection(section)
	require.NoError(t, err)
	assert.Equal(t, 3, e.PaletteLen())
	require.NoError(t, e.Commit())

	got, _ := states.Int64s()
	assert.Equal(t, words, got)
}

func TestSectionEditorAddsAirAndGrows(t *testing.T) {
	section := NewSection(0)
	palette, _ := section.Get("Palette")
	names := make([]string, 16)
	for i := range names {
		names[i] = "minecraft:block_" + string(rune('a'+i))
	}
	palette.Replace(paletteOf(names...))

	var idx Indices
	for i := range idx {
		idx[i] = uint16(i % 16)
	}
	states, _ := section.Get("BlockStates")
	require.NoError(t, states.SetInt64s(EncodeBlockStates(&idx, 16)))

	e, err := OpenSection(section)
	require.NoError(t, err)
	assert.Equal(t, 17, e.PaletteLen(), "air appended after decoding with 16 entries")
	for i := range idx {
		require.Equal(t, idx[i], e.Get(i), "cell %d", i)
	}

	require.NoError(t, e.SetName(CellIndex(1, 2, 3), "minecraft:gold_block"))
	require.NoError(t, e.Commit())

	words, _ := states.Int64s()
	assert.Len(t, words, WordCount(18))

	back, err := DecodeBlockStates(words, 18)
	require.NoError(t, err)
	assert.Equal(t, uint16(17), back[CellIndex(1, 2, 3)])
	assert.Equal(t, idx[CellIndex(1, 2, 4)], back[CellIndex(1, 2, 4)])
}

func TestOpenSectionWithoutStates(t *testing.T) {
	section := nbt.CompoundOf(nbt.Entry{Key: "Y", Value: nbt.Byte(3)})
	e, err := OpenSection(section)
	require.NoError(t, err)
	assert.Equal(t, 1, e.PaletteLen())
	assert.Equal(t, uint16(0), e.Get(100))
	require.NoError(t, e.Commit())

	states, ok := section.Get("BlockStates")
	require.True(t, ok)
	assert.Equal(t, 256, states.Len())
}
