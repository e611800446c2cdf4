package raster

import (
	"context"
	"image/color"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/voxelmerge/internal/report"
	"github.com/OCharnyshevich/voxelmerge/pkg/colorlookup"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

// gradient maps u to red and v to green.
type gradient struct{}

func (gradient) Size() (int, int) { return 256, 256 }

func (gradient) Sample(u, v float64) color.RGBA {
	clamp := func(f float64) uint8 { return uint8(max(0, min(255, f*255))) }
	return color.RGBA{R: clamp(u), G: clamp(v), A: 255}
}

func testBlocks() *colorlookup.Table[string] {
	t := &colorlookup.Table[string]{}
	t.Insert(color.RGBA{0, 0, 0, 255}, "minecraft:black_wool")
	t.Insert(color.RGBA{255, 0, 0, 255}, "minecraft:red_wool")
	t.Insert(color.RGBA{0, 255, 0, 255}, "minecraft:lime_wool")
	t.Insert(color.RGBA{255, 255, 0, 255}, "minecraft:yellow_wool")
	t.Insert(color.RGBA{128, 128, 0, 255}, "minecraft:olive_terracotta")
	return t
}

func testScene(t *testing.T) *Scene {
	t.Helper()
	in := SceneInput{
		Vertices: []mgl32.Vec3{
			{0.3, 2.1, 0.4}, {30.7, 40.2, 5.5}, {7.1, 20.3, 29.8},
			{2, 60, 2}, {28, 60, 3}, {4, 70, 27},
		},
		TexCoords: []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}},
		Triangles: []Triangle{
			{Vertices: [3]int{0, 1, 2}, TexCoords: [3]int{0, 1, 2}, Material: 0},
			{Vertices: [3]int{3, 4, 5}, TexCoords: [3]int{-1, -1, -1}, Material: 1},
		},
		Materials: []Material{
			{Name: "painted", Texture: 0},
			{Name: "stone", BlockID: "minecraft:stone", Texture: -1},
		},
		Textures: []Texture{gradient{}},
	}
	s, err := NewScene(in, testBlocks())
	require.NoError(t, err)
	return s
}

func newColumn(t *testing.T, x, z int) *chunk.Column {
	t.Helper()
	c, err := chunk.NewColumn(x, z)
	require.NoError(t, err)
	return c
}

func openAt(t *testing.T, c *chunk.Column, y int) (*chunk.SectionEditor, bool) {
	t.Helper()
	root, err := c.Tag()
	require.NoError(t, err)
	sections, err := chunk.Sections(root)
	require.NoError(t, err)
	s, ok, err := chunk.FindSection(sections, y)
	require.NoError(t, err)
	if !ok {
		return nil, false
	}
	ed, err := chunk.OpenSection(s)
	require.NoError(t, err)
	return ed, true
}

func TestSectionsFor(t *testing.T) {
	tests := []struct {
		minY, maxY float32
		want       Sections
	}{
		{0, 15.9, Sections{0, 1}},
		{16, 16, Sections{1, 2}},
		{2.1, 70, Sections{0, 5}},
		{-5, 300, Sections{0, 16}},
		{-40, -20, Sections{0, 0}},
		{255.5, 400, Sections{15, 16}},
	}
	for _, tt := range tests {
		got := SectionsFor(tt.minY, tt.maxY)
		assert.Equal(t, tt.want, got, "SectionsFor(%v, %v)", tt.minY, tt.maxY)
	}
	assert.Equal(t, 0, Sections{3, 1}.Len())
}

func TestNewSceneValidation(t *testing.T) {
	verts := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	plain := []Material{{Name: "m", BlockID: "minecraft:stone", Texture: -1}}
	tri := Triangle{Vertices: [3]int{0, 1, 2}, TexCoords: [3]int{-1, -1, -1}}

	_, err := NewScene(SceneInput{Vertices: verts, Materials: plain}, nil)
	assert.ErrorIs(t, err, ErrEmptyScene)

	bad := tri
	bad.Vertices[2] = 3
	_, err = NewScene(SceneInput{Vertices: verts, Materials: plain, Triangles: []Triangle{bad}}, nil)
	assert.ErrorContains(t, err, "vertex 3 out of range")

	bad = tri
	bad.Material = 1
	_, err = NewScene(SceneInput{Vertices: verts, Materials: plain, Triangles: []Triangle{bad}}, nil)
	assert.ErrorContains(t, err, "material 1 out of range")

	bad = tri
	bad.TexCoords = [3]int{0, 1, 5}
	_, err = NewScene(SceneInput{Vertices: verts, Materials: plain, Triangles: []Triangle{bad}}, nil)
	assert.ErrorContains(t, err, "texture coordinate 5 out of range")

	textured := []Material{{Name: "t", Texture: 0}}
	_, err = NewScene(SceneInput{Vertices: verts, Materials: textured, Textures: []Texture{gradient{}}, Triangles: []Triangle{tri}}, nil)
	assert.ErrorContains(t, err, "block colour list")

	unnamed := []Material{{Name: "u", Color: color.RGBA{250, 10, 5, 255}, Texture: -1}}
	_, err = NewScene(SceneInput{Vertices: verts, Materials: unnamed, Triangles: []Triangle{tri}}, nil)
	assert.ErrorContains(t, err, "no block id")

	s, err := NewScene(SceneInput{Vertices: verts, Materials: unnamed, Triangles: []Triangle{tri}}, testBlocks())
	require.NoError(t, err)
	assert.Equal(t, "minecraft:red_wool", s.Material(0).BlockID)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, s.Bounds().Min)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, s.Bounds().Max)
}

func TestModifyColumnOutsideScene(t *testing.T) {
	s := testScene(t)
	sections := SectionsFor(s.Bounds().Min.Y(), s.Bounds().Max.Y())

	for _, st := range []Strategy{
		NewReference(s, sections, nil),
		NewBatched(s, sections, nil, 2),
	} {
		t.Run(st.Name(), func(t *testing.T) {
			c := newColumn(t, 64, -32)
			before := append([]byte(nil), c.Data...)
			modified, err := st.ModifyColumn(context.Background(), c)
			require.NoError(t, err)
			assert.False(t, modified)
			assert.Equal(t, before, c.Data)
		})
	}
}

func TestSingleCellTriangle(t *testing.T) {
	in := SceneInput{
		Vertices:  []mgl32.Vec3{{1.2, 17.2, 1.2}, {1.8, 17.2, 1.2}, {1.2, 17.8, 1.5}},
		Triangles: []Triangle{{Vertices: [3]int{0, 1, 2}, TexCoords: [3]int{-1, -1, -1}}},
		Materials: []Material{{Name: "m", BlockID: "minecraft:gold_block", Texture: -1}},
	}
	s, err := NewScene(in, nil)
	require.NoError(t, err)
	sections := SectionsFor(s.Bounds().Min.Y(), s.Bounds().Max.Y())
	require.Equal(t, Sections{1, 2}, sections)

	for _, st := range []Strategy{
		NewReference(s, sections, nil),
		NewBatched(s, sections, nil, 0),
	} {
		t.Run(st.Name(), func(t *testing.T) {
			c := newColumn(t, 0, 0)
			modified, err := st.ModifyColumn(context.Background(), c)
			require.NoError(t, err)
			require.True(t, modified)

			_, ok := openAt(t, c, 0)
			assert.False(t, ok, "section 0 has no triangles and must not be created")

			ed, ok := openAt(t, c, 1)
			require.True(t, ok)
			assert.Equal(t, 2, ed.PaletteLen())
			hit := chunk.CellIndex(1, 1, 1)
			for i := range chunk.SectionVolume {
				if i == hit {
					assert.Equal(t, uint16(1), ed.Get(i))
					continue
				}
				if ed.Get(i) != 0 {
					t.Fatalf("cell %d = %d, want air", i, ed.Get(i))
				}
			}

			root, err := c.Tag()
			require.NoError(t, err)
			xPos, ok := root.Path("Level", "xPos")
			require.True(t, ok)
			v, err := xPos.Int32()
			require.NoError(t, err)
			assert.Equal(t, int32(0), v)
		})
	}
}

func TestStrategiesAgree(t *testing.T) {
	s := testScene(t)
	sections := SectionsFor(s.Bounds().Min.Y(), s.Bounds().Max.Y())
	ref := NewReference(s, sections, nil)
	rec := &report.Recorder{}
	batched := NewBatched(s, sections, rec, 4)

	modified := 0
	for _, x := range []int{-16, 0, 16, 32} {
		for _, z := range []int{-16, 0, 16, 32} {
			a := newColumn(t, x, z)
			b := newColumn(t, x, z)

			okA, err := ref.ModifyColumn(context.Background(), a)
			require.NoError(t, err)
			okB, err := batched.ModifyColumn(context.Background(), b)
			require.NoError(t, err)

			assert.Equal(t, okA, okB, "column (%d,%d)", x, z)
			assert.Equal(t, a.Data, b.Data, "column (%d,%d)", x, z)
			if okA {
				modified++
			}
		}
	}
	assert.Equal(t, 4, modified)
	assert.Zero(t, rec.Count(0))
}

func TestStrategiesAgreeOnEditedColumn(t *testing.T) {
	s := testScene(t)
	sections := SectionsFor(s.Bounds().Min.Y(), s.Bounds().Max.Y())

	a := newColumn(t, 0, 0)
	_, err := NewReference(s, sections, nil).ModifyColumn(context.Background(), a)
	require.NoError(t, err)
	b := &chunk.Column{X: a.X, Z: a.Z, Data: append([]byte(nil), a.Data...)}

	// A second pass merges into populated palettes.
	_, err = NewReference(s, sections, nil).ModifyColumn(context.Background(), a)
	require.NoError(t, err)
	_, err = NewBatched(s, sections, nil, 3).ModifyColumn(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestFailedSectionRestored(t *testing.T) {
	s := testScene(t)
	sections := SectionsFor(s.Bounds().Min.Y(), s.Bounds().Max.Y())

	for _, name := range []string{"reference", "batched"} {
		t.Run(name, func(t *testing.T) {
			c := newColumn(t, 0, 0)
			root, err := c.Tag()
			require.NoError(t, err)
			secs, err := chunk.Sections(root)
			require.NoError(t, err)

			// Too few words for its palette; opening it fails after Air is added.
			broken := chunk.NewSection(1)
			require.NoError(t, broken.Put("Palette", nbt.List(nbt.CompoundOf(
				nbt.Entry{Key: "Name", Value: nbt.String("minecraft:stone")},
			))))
			require.NoError(t, broken.Put("BlockStates", nbt.LongArray(make([]int64, 3))))
			require.NoError(t, secs.Append(broken))
			require.NoError(t, c.SetTag(root))

			rec := &report.Recorder{}
			var st Strategy = NewReference(s, sections, rec)
			if name == "batched" {
				st = NewBatched(s, sections, rec, 2)
			}
			modified, err := st.ModifyColumn(context.Background(), c)
			require.NoError(t, err)
			assert.True(t, modified)
			assert.Equal(t, 1, rec.Count(slog.LevelError))

			root, err = c.Tag()
			require.NoError(t, err)
			secs, err = chunk.Sections(root)
			require.NoError(t, err)
			got, ok, err := chunk.FindSection(secs, 1)
			require.NoError(t, err)
			require.True(t, ok)
			palette, err := got.Key("Palette")
			require.NoError(t, err)
			assert.Equal(t, 1, palette.Len())
			states, err := got.Key("BlockStates")
			require.NoError(t, err)
			assert.Equal(t, 3, states.Len())

			ed, ok := openAt(t, c, 0)
			require.True(t, ok)
			assert.Greater(t, ed.PaletteLen(), 1)
		})
	}
}

func TestTexturedSampling(t *testing.T) {
	s := testScene(t)
	sections := SectionsFor(s.Bounds().Min.Y(), s.Bounds().Max.Y())
	c := newColumn(t, 0, 0)
	_, err := NewReference(s, sections, nil).ModifyColumn(context.Background(), c)
	require.NoError(t, err)

	seen := map[string]bool{}
	root, err := c.Tag()
	require.NoError(t, err)
	list, err := chunk.Sections(root)
	require.NoError(t, err)
	elems, err := list.Elems()
	require.NoError(t, err)
	for _, sec := range elems {
		pal, ok := sec.Get("Palette")
		require.True(t, ok)
		entries, err := pal.Elems()
		require.NoError(t, err)
		for _, e := range entries {
			n, ok := e.Get("Name")
			require.True(t, ok)
			name, err := n.Str()
			require.NoError(t, err)
			seen[name] = true
		}
	}
	assert.True(t, seen[chunk.Air])
	assert.True(t, seen["minecraft:black_wool"], "cells near the uv origin sample black")
	for name := range seen {
		assert.Contains(t, []string{
			chunk.Air, "minecraft:black_wool", "minecraft:red_wool", "minecraft:lime_wool",
			"minecraft:yellow_wool", "minecraft:olive_terracotta", "minecraft:stone",
		}, name)
	}
}

func TestModifyColumnCancelled(t *testing.T) {
	s := testScene(t)
	sections := SectionsFor(s.Bounds().Min.Y(), s.Bounds().Max.Y())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, st := range []Strategy{
		NewReference(s, sections, nil),
		NewBatched(s, sections, nil, 2),
	} {
		t.Run(st.Name(), func(t *testing.T) {
			c := newColumn(t, 0, 0)
			before := append([]byte(nil), c.Data...)
			_, err := st.ModifyColumn(ctx, c)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, before, c.Data)
		})
	}
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	a := in.ID("minecraft:stone")
	b := in.ID("minecraft:dirt")
	assert.Equal(t, uint32(1), a)
	assert.Equal(t, uint32(2), b)
	assert.Equal(t, a, in.ID("minecraft:stone"))
	assert.Equal(t, "minecraft:dirt", in.Name(b))
	_, ok := in.Lookup("minecraft:glass")
	assert.False(t, ok)
	assert.Equal(t, 2, in.Len())
}
