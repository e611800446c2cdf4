package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

func TestNewColumnSkeleton(t *testing.T) {
	c, err := NewColumn(-32, 48)
	require.NoError(t, err)
	assert.False(t, c.Compressed)

	root, err := c.Tag()
	require.NoError(t, err)

	dv, ok := root.Get("DataVersion")
	require.True(t, ok)
	v, _ := dv.Int32()
	assert.Equal(t, int32(DataVersion), v)

	xPos, ok := root.Path("Level", "xPos")
	require.True(t, ok)
	x, _ := xPos.Int32()
	assert.Equal(t, int32(-2), x)

	zPos, _ := root.Path("Level", "zPos")
	z, _ := zPos.Int32()
	assert.Equal(t, int32(3), z)

	surface, ok := root.Path("Level", "Heightmaps", "WORLD_SURFACE")
	require.True(t, ok)
	words, err := surface.Int64s()
	require.NoError(t, err)
	assert.Len(t, words, worldSurfaceWords)

	status, _ := root.Path("Level", "Status")
	s, _ := status.Str()
	assert.Equal(t, "full", s)

	sections, err := Sections(root)
	require.NoError(t, err)
	assert.Equal(t, 0, sections.Len())

	// The skeleton written by hand must be exactly what Marshal produces.
	assert.Equal(t, len(c.Data), nbt.Size(root))
}

func TestCompressRoundTrip(t *testing.T) {
	c, err := NewColumn(0, 0)
	require.NoError(t, err)
	raw := append([]byte(nil), c.Data...)

	require.NoError(t, c.Compress())
	assert.True(t, c.Compressed)
	assert.NotEqual(t, raw, c.Data)
	require.NoError(t, c.Compress(), "compressing twice is a no-op")

	require.NoError(t, c.Decompress())
	assert.False(t, c.Compressed)
	assert.Equal(t, raw, c.Data)
}

func TestDecompressGarbage(t *testing.T) {
	c := &Column{Data: []byte{1, 2, 3}, Compressed: true}
	assert.Error(t, c.Decompress())
}

func TestCoordinates(t *testing.T) {
	tests := []struct {
		x, z   int
		rx, rz int
		slot   int
	}{
		{0, 0, 0, 0, 0},
		{16, 0, 0, 0, 1},
		{0, 16, 0, 0, 32},
		{511, 511, 0, 0, 1023},
		{512, -16, 1, -1, 31 * 32},
		{-16, -512, -1, -1, 31},
		{-528, 1040, -2, 2, 31 + 1*32},
	}
	for _, tt := range tests {
		c := &Column{X: tt.x, Z: tt.z}
		rx, rz := c.RegionCoords()
		assert.Equal(t, tt.rx, rx, "rx for (%d,%d)", tt.x, tt.z)
		assert.Equal(t, tt.rz, rz, "rz for (%d,%d)", tt.x, tt.z)
		assert.Equal(t, tt.slot, c.LocalIndex(), "slot for (%d,%d)", tt.x, tt.z)
	}
}

func TestSetTag(t *testing.T) {
	c, err := NewColumn(16, 16)
	require.NoError(t, err)
	root, err := c.Tag()
	require.NoError(t, err)

	sections, err := Sections(root)
	require.NoError(t, err)
	_, err = FindOrCreateSection(sections, 4)
	require.NoError(t, err)
	require.NoError(t, c.SetTag(root))

	again, err := c.Tag()
	require.NoError(t, err)
	secs, _ := Sections(again)
	s, ok, err := FindSection(secs, 4)
	require.NoError(t, err)
	require.True(t, ok)
	light, ok := s.Get("BlockLight")
	require.True(t, ok)
	assert.Equal(t, 2048, light.Len())
}
