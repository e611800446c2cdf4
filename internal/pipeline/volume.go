package pipeline

import (
	"fmt"
	"math"

	"github.com/OCharnyshevich/voxelmerge/internal/raster"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
)

// Volume is the part of the world a mesh occupies.
type Volume struct {
	Bounds   raster.AABB
	Sections raster.Sections

	// Chunk ranges of the columns whose footprint overlaps Bounds, inclusive.
	MinChunkX, MaxChunkX int
	MinChunkZ, MaxChunkZ int
}

// NewVolume returns the volume covered by bounds. A column touches the volume
// when its closed 16x16 footprint overlaps the bounds on x and z.
func NewVolume(bounds raster.AABB) Volume {
	lo := func(v float32) int { return int(math.Ceil(float64(v)/chunk.Width)) - 1 }
	hi := func(v float32) int { return int(math.Floor(float64(v) / chunk.Width)) }
	return Volume{
		Bounds:    bounds,
		Sections:  raster.SectionsFor(bounds.Min.Y(), bounds.Max.Y()),
		MinChunkX: lo(bounds.Min.X()),
		MaxChunkX: hi(bounds.Max.X()),
		MinChunkZ: lo(bounds.Min.Z()),
		MaxChunkZ: hi(bounds.Max.Z()),
	}
}

// Touches reports whether the column at block origin (x, z) overlaps the volume.
func (v Volume) Touches(x, z int) bool {
	cx, cz := x>>4, z>>4
	return cx >= v.MinChunkX && cx <= v.MaxChunkX && cz >= v.MinChunkZ && cz <= v.MaxChunkZ
}

// Regions returns the inclusive region ranges holding touched columns.
func (v Volume) Regions() (minX, maxX, minZ, maxZ int) {
	return v.MinChunkX >> 5, v.MaxChunkX >> 5, v.MinChunkZ >> 5, v.MaxChunkZ >> 5
}

// RegionCount returns the number of regions the volume spans.
func (v Volume) RegionCount() int {
	minX, maxX, minZ, maxZ := v.Regions()
	return (maxX - minX + 1) * (maxZ - minZ + 1)
}

// ColumnCount returns the number of touched columns.
func (v Volume) ColumnCount() int64 {
	return int64(v.MaxChunkX-v.MinChunkX+1) * int64(v.MaxChunkZ-v.MinChunkZ+1)
}

func (v Volume) String() string {
	minX, maxX, minZ, maxZ := v.Regions()
	return fmt.Sprintf("chunks x %d..%d z %d..%d, regions x %d..%d z %d..%d, sections %d..%d",
		v.MinChunkX, v.MaxChunkX, v.MinChunkZ, v.MaxChunkZ, minX, maxX, minZ, maxZ, v.Sections.Min, v.Sections.Max)
}
