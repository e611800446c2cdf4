package chunk

import (
	"bytes"
	"fmt"

	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

const (
	// DataVersion is the world data version of columns created here.
	DataVersion = 2586
	// GameVersion is the release DataVersion belongs to. Block lists should
	// be built from its registry.
	GameVersion = "1.16.4"

	// worldSurfaceFill is the packed height of an empty column's WORLD_SURFACE
	// heightmap, 37 words of nine-bit heights.
	worldSurfaceFill  = 1137128059338260031
	worldSurfaceWords = 37
)

// NewColumn returns an uncompressed empty column at block origin (x, z).
func NewColumn(x, z int) (*Column, error) {
	data, err := EncodeEmptyColumn(x>>4, z>>4)
	if err != nil {
		return nil, err
	}
	return &Column{X: x, Z: z, Data: data}, nil
}

// EncodeEmptyColumn encodes a full-status column with no sections.
func EncodeEmptyColumn(cx, cz int) ([]byte, error) {
	var buf bytes.Buffer
	w := nbt.NewWriter(&buf)

	w.BeginCompound("")
	w.WriteInt("DataVersion", DataVersion)

	w.BeginCompound("Level")
	w.WriteInt("xPos", int32(cx))
	w.WriteInt("zPos", int32(cz))
	w.BeginList("Sections", nbt.TagEnd, 0)

	w.BeginCompound("Heightmaps")
	w.WriteLongArray("OCEAN_FLOOR", nil)
	w.WriteLongArray("MOTION_BLOCKING_NO_LEAVES", nil)
	w.WriteLongArray("MOTION_BLOCKING", nil)
	surface := make([]int64, worldSurfaceWords)
	for i := range surface {
		surface[i] = worldSurfaceFill
	}
	w.WriteLongArray("WORLD_SURFACE", surface)
	w.EndCompound() // Heightmaps

	w.BeginCompound("CarvingMasks")
	w.EndCompound()
	w.BeginList("Entities", nbt.TagEnd, 0)
	w.BeginList("TileEntities", nbt.TagEnd, 0)
	w.BeginList("TileTicks", nbt.TagEnd, 0)
	w.BeginList("ToBeTicked", nbt.TagEnd, 0)
	w.BeginCompound("Structures")
	w.EndCompound()
	w.WriteLong("InhabitedTime", 0)
	w.WriteLong("LastUpdate", 0)
	w.WriteString("Status", "full")
	w.EndCompound() // Level

	w.EndCompound() // root

	if w.Err() != nil {
		return nil, fmt.Errorf("encode empty column (%d,%d): %w", cx, cz, w.Err())
	}
	return buf.Bytes(), nil
}
