package raster

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelmerge/internal/report"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

// Reference rasterizes one section at a time on the calling goroutine.
type Reference struct {
	scene    *Scene
	sections Sections
	sink     report.Sink
}

// NewReference returns the sequential strategy.
func NewReference(scene *Scene, sections Sections, sink report.Sink) *Reference {
	if sink == nil {
		sink = report.Discard
	}
	return &Reference{scene: scene, sections: sections, sink: sink}
}

func (r *Reference) Name() string { return "reference" }

func (r *Reference) ModifyColumn(ctx context.Context, c *chunk.Column) (bool, error) {
	candidates := r.scene.columnCandidates(columnBox(c))
	if len(candidates) == 0 {
		return false, nil
	}

	work, root, sections, err := openColumn(c)
	if err != nil {
		return false, err
	}

	for y := r.sections.Min; y < r.sections.Max; y++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		list := r.scene.filter(candidates, sectionBox(c, y))
		if len(list) == 0 {
			continue
		}
		if err := r.modifySection(c, sections, y, list); err != nil {
			reportSection(r.sink, c, y, err)
		}
	}

	if err := work.SetTag(root); err != nil {
		return false, err
	}
	*c = *work
	return true, nil
}

func (r *Reference) modifySection(c *chunk.Column, sections *nbt.Tag, y int, list []int32) error {
	baseY := y * chunk.SectionHeight
	return editSection(sections, y, func(ed *chunk.SectionEditor) error {
		for x := range chunk.Width {
			for cy := range chunk.SectionHeight {
				for z := range chunk.Width {
					origin := mgl32.Vec3{float32(c.X + x), float32(baseY + cy), float32(c.Z + z)}
					hit, ok := r.scene.firstHit(list, origin)
					if !ok {
						continue
					}
					if err := ed.SetName(chunk.CellIndex(x, cy, z), r.scene.blockFor(hit, origin)); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}
