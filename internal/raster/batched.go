package raster

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/voxelmerge/internal/report"
	"github.com/OCharnyshevich/voxelmerge/pkg/colorlookup"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

// noHit marks a cell no triangle reached.
const noHit = 0

// Interner assigns dense ids to block names. Id 0 is reserved. It is not
// safe for concurrent writes; Batched fills it before any column is touched.
type Interner struct {
	byHash   map[uint64]uint32
	overflow map[string]uint32
	names    []string
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{
		byHash:   make(map[uint64]uint32),
		overflow: make(map[string]uint32),
		names:    []string{""},
	}
}

// ID returns the id of name, assigning the next one when it is new.
func (in *Interner) ID(name string) uint32 {
	if id, ok := in.Lookup(name); ok {
		return id
	}
	id := uint32(len(in.names))
	in.names = append(in.names, name)
	h := xxhash.Sum64String(name)
	if _, taken := in.byHash[h]; taken {
		in.overflow[name] = id
	} else {
		in.byHash[h] = id
	}
	return id
}

// Lookup returns the id of a known name.
func (in *Interner) Lookup(name string) (uint32, bool) {
	if id, ok := in.byHash[xxhash.Sum64String(name)]; ok && in.names[id] == name {
		return id, true
	}
	id, ok := in.overflow[name]
	return id, ok
}

// Name returns the name behind id.
func (in *Interner) Name(id uint32) string { return in.names[id] }

// Len returns the number of assigned ids, excluding the reserved one.
func (in *Interner) Len() int { return len(in.names) - 1 }

// Batched rasterizes all sections of a column concurrently into a buffer of
// interned block ids, then writes palettes and block states in one pass.
// It produces the same columns as Reference.
type Batched struct {
	scene    *Scene
	sections Sections
	sink     report.Sink
	limit    int

	names    *Interner
	matIDs   []uint32
	colorIDs *colorlookup.Table[uint32]
}

// NewBatched returns the batched strategy. parallel bounds the number of
// sections rasterized at once; values below 1 use GOMAXPROCS.
func NewBatched(scene *Scene, sections Sections, sink report.Sink, parallel int) *Batched {
	if sink == nil {
		sink = report.Discard
	}
	if parallel < 1 {
		parallel = runtime.GOMAXPROCS(0)
	}
	b := &Batched{
		scene:    scene,
		sections: sections,
		sink:     sink,
		limit:    parallel,
		names:    NewInterner(),
		colorIDs: &colorlookup.Table[uint32]{},
	}
	for i := range scene.materials {
		b.matIDs = append(b.matIDs, b.names.ID(scene.materials[i].BlockID))
	}
	keys, values := scene.blocks.Keys(), scene.blocks.Values()
	for i, k := range keys {
		b.colorIDs.Insert(k, b.names.ID(values[i]))
	}
	return b
}

func (b *Batched) Name() string { return "batched" }

// sectionHits is the rasterized content of one section.
type sectionHits struct {
	touched bool
	ids     [chunk.SectionVolume]uint32
}

func (b *Batched) ModifyColumn(ctx context.Context, c *chunk.Column) (bool, error) {
	candidates := b.scene.columnCandidates(columnBox(c))
	if len(candidates) == 0 {
		return false, nil
	}

	hits := make([]sectionHits, b.sections.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i := range hits {
		y := b.sections.Min + i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b.rasterize(c, y, candidates, &hits[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	work, root, sections, err := openColumn(c)
	if err != nil {
		return false, err
	}
	for i := range hits {
		if !hits[i].touched {
			continue
		}
		y := b.sections.Min + i
		if err := b.writeSection(sections, y, &hits[i]); err != nil {
			reportSection(b.sink, c, y, err)
		}
	}

	if err := work.SetTag(root); err != nil {
		return false, err
	}
	*c = *work
	return true, nil
}

func (b *Batched) rasterize(c *chunk.Column, y int, candidates []int32, out *sectionHits) {
	list := b.scene.filter(candidates, sectionBox(c, y))
	if len(list) == 0 {
		return
	}
	out.touched = true

	baseY := y * chunk.SectionHeight
	for x := range chunk.Width {
		for cy := range chunk.SectionHeight {
			for z := range chunk.Width {
				origin := mgl32.Vec3{float32(c.X + x), float32(baseY + cy), float32(c.Z + z)}
				hit, ok := b.scene.firstHit(list, origin)
				if !ok {
					continue
				}
				out.ids[chunk.CellIndex(x, cy, z)] = b.blockID(hit, origin)
			}
		}
	}
}

func (b *Batched) blockID(i int32, origin mgl32.Vec3) uint32 {
	t := &b.scene.tris[i]
	if !t.textured {
		return b.matIDs[t.material]
	}
	id, _ := b.colorIDs.Get(b.scene.sampleColor(t, origin.Add(cellHalf)))
	return id
}

// writeSection resolves hit ids against the section palette in the same cell
// order Reference uses, so palettes grow identically.
func (b *Batched) writeSection(sections *nbt.Tag, y int, hits *sectionHits) error {
	return editSection(sections, y, func(ed *chunk.SectionEditor) error {
		for x := range chunk.Width {
			for cy := range chunk.SectionHeight {
				for z := range chunk.Width {
					i := chunk.CellIndex(x, cy, z)
					id := hits.ids[i]
					if id == noHit {
						continue
					}
					if err := ed.SetName(i, b.names.Name(id)); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func (b *Batched) String() string {
	return fmt.Sprintf("batched(%d names, %d sections, limit %d)", b.names.Len(), b.sections.Len(), b.limit)
}
