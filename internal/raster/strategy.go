package raster

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelmerge/internal/report"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

// Strategy rewrites the cells of one column that the scene covers.
//
// ModifyColumn leaves c untouched and returns false when no triangle reaches
// the column. On error c keeps its original data.
type Strategy interface {
	Name() string
	ModifyColumn(ctx context.Context, c *chunk.Column) (modified bool, err error)
}

// Sections is a half-open range [Min, Max) of section indices.
type Sections struct {
	Min, Max int
}

// SectionsFor returns the sections spanned by heights minY..maxY, clamped to
// the column.
func SectionsFor(minY, maxY float32) Sections {
	clamp := func(v int) int { return max(0, min(chunk.SectionCount, v)) }
	return Sections{
		Min: clamp(floorDiv(minY, chunk.SectionHeight)),
		Max: clamp(floorDiv(maxY, chunk.SectionHeight) + 1),
	}
}

func floorDiv(v float32, d int) int {
	q := v / float32(d)
	i := int(q)
	if float32(i) > q {
		i--
	}
	return i
}

// Len returns the number of sections in the range.
func (s Sections) Len() int { return max(0, s.Max-s.Min) }

func columnBox(c *chunk.Column) AABB {
	return AABB{
		Min: mgl32.Vec3{float32(c.X), 0, float32(c.Z)},
		Max: mgl32.Vec3{float32(c.X + chunk.Width), float32(chunk.SectionCount * chunk.SectionHeight), float32(c.Z + chunk.Width)},
	}
}

func sectionBox(c *chunk.Column, y int) AABB {
	return Box(mgl32.Vec3{float32(c.X), float32(y * chunk.SectionHeight), float32(c.Z)}, chunk.SectionHeight)
}

// openColumn decodes a copy of c's tree and stamps its chunk coordinates.
func openColumn(c *chunk.Column) (*chunk.Column, *nbt.Tag, *nbt.Tag, error) {
	work := &chunk.Column{X: c.X, Z: c.Z, Data: c.Data, Compressed: c.Compressed}
	root, err := work.Tag()
	if err != nil {
		return nil, nil, nil, err
	}
	level, err := root.Key("Level")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("column (%d,%d): level: %w", c.X, c.Z, err)
	}
	if err := level.Put("xPos", nbt.Int(int32(c.ChunkX()))); err != nil {
		return nil, nil, nil, err
	}
	if err := level.Put("zPos", nbt.Int(int32(c.ChunkZ()))); err != nil {
		return nil, nil, nil, err
	}
	sections, err := chunk.Sections(root)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("column (%d,%d): %w", c.X, c.Z, err)
	}
	return work, root, sections, nil
}

// editSection runs paint on section y, creating it when absent, and commits
// the result. A failed section is restored so its palette and block states
// stay consistent.
func editSection(sections *nbt.Tag, y int, paint func(*chunk.SectionEditor) error) error {
	section, err := chunk.FindOrCreateSection(sections, y)
	if err != nil {
		return err
	}
	backup := section.Clone()
	err = func() error {
		ed, err := chunk.OpenSection(section)
		if err != nil {
			return err
		}
		if err := paint(ed); err != nil {
			return err
		}
		return ed.Commit()
	}()
	if err != nil {
		section.Replace(backup)
	}
	return err
}

func reportSection(sink report.Sink, c *chunk.Column, y int, err error) {
	sink.Report(slog.LevelError, "section skipped", "x", c.X, "z", c.Z, "section", y, "error", err)
}
