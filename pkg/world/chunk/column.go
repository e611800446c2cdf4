// Package chunk models a single world column (chunk) and the palette-packed
// block arrays stored in its sections.
package chunk

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

const (
	// Width is the horizontal size of a column in blocks.
	Width = 16
	// SectionHeight is the vertical size of a section in blocks.
	SectionHeight = 16
	// SectionCount is the number of sections in a column.
	SectionCount = 16
	// SectionVolume is the number of cells in a section.
	SectionVolume = Width * Width * SectionHeight

	// RegionWidth is the number of columns along one side of a region.
	RegionWidth = 32
	// RegionColumns is the number of column slots in a region.
	RegionColumns = RegionWidth * RegionWidth
)

// Column is one world column. Data holds either the serialized tag tree or its
// zlib stream; Compressed says which.
type Column struct {
	X, Z       int
	Data       []byte
	Compressed bool
}

// ChunkX returns the column's chunk coordinate along x.
func (c *Column) ChunkX() int { return c.X >> 4 }

// ChunkZ returns the column's chunk coordinate along z.
func (c *Column) ChunkZ() int { return c.Z >> 4 }

// RegionCoords returns the region holding the column.
func (c *Column) RegionCoords() (rx, rz int) {
	return RegionOf(c.X), RegionOf(c.Z)
}

// LocalIndex returns the column's directory slot within its region.
func (c *Column) LocalIndex() int {
	return SlotIndex(c.ChunkX(), c.ChunkZ())
}

// RegionOf returns the region coordinate for a block coordinate.
func RegionOf(block int) int { return block >> 9 }

// SlotIndex returns the directory slot for chunk coordinates.
func SlotIndex(cx, cz int) int {
	return (cx & (RegionWidth - 1)) + (cz&(RegionWidth-1))*RegionWidth
}

// Compress replaces raw data with its zlib stream. It is a no-op on a
// compressed column.
func (c *Column) Compress() error {
	if c.Compressed {
		return nil
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return fmt.Errorf("create zlib writer: %w", err)
	}
	if _, err := zw.Write(c.Data); err != nil {
		return fmt.Errorf("compress column (%d,%d): %w", c.X, c.Z, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zlib writer: %w", err)
	}
	c.Data = buf.Bytes()
	c.Compressed = true
	return nil
}

// Decompress inflates the column data. It is a no-op on a raw column.
func (c *Column) Decompress() error {
	if !c.Compressed {
		return nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(c.Data))
	if err != nil {
		return fmt.Errorf("open zlib stream (%d,%d): %w", c.X, c.Z, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress column (%d,%d): %w", c.X, c.Z, err)
	}
	c.Data = raw
	c.Compressed = false
	return nil
}

// Tag decodes the column's tag tree, decompressing first when needed.
func (c *Column) Tag() (*nbt.Tag, error) {
	if err := c.Decompress(); err != nil {
		return nil, err
	}
	t, err := nbt.Parse(c.Data)
	if err != nil {
		return nil, fmt.Errorf("parse column (%d,%d): %w", c.X, c.Z, err)
	}
	return t, nil
}

// SetTag serializes t into the column as raw data.
func (c *Column) SetTag(t *nbt.Tag) error {
	data, err := nbt.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal column (%d,%d): %w", c.X, c.Z, err)
	}
	c.Data = data
	c.Compressed = false
	return nil
}

// Sections returns the column's Level.Sections list, creating it if absent.
func Sections(root *nbt.Tag) (*nbt.Tag, error) {
	level, err := root.Key("Level")
	if err != nil {
		return nil, fmt.Errorf("level: %w", err)
	}
	sections, err := level.Key("Sections")
	if err != nil {
		return nil, fmt.Errorf("sections: %w", err)
	}
	if sections.IsNull() {
		sections.Replace(nbt.List())
	}
	return sections, nil
}
