// Package raster classifies voxel cells against a triangle mesh and writes the
// resulting blocks into world columns.
package raster

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelmerge/pkg/colorlookup"
)

// ErrEmptyScene is returned when a scene has no triangles to rasterize.
var ErrEmptyScene = errors.New("raster: no triangles found")

// Texture is a point-sampled image addressed by normalized coordinates with
// (0, 0) at the top-left texel.
type Texture interface {
	Size() (width, height int)
	Sample(u, v float64) color.RGBA
}

// Material describes how cells hit by a triangle are filled. Texture is an
// index into the scene's textures, or -1. Without a texture, BlockID is used;
// an empty BlockID is resolved from Color when the scene is built.
type Material struct {
	Name    string
	Color   color.RGBA
	BlockID string
	Texture int
}

// Triangle references three vertices, three texture coordinates (or -1) and a
// material by index.
type Triangle struct {
	Vertices  [3]int
	TexCoords [3]int
	Material  int
}

// SceneInput is the mesh data a Scene is built from. Degenerate triangles must
// have been removed.
type SceneInput struct {
	Vertices  []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Triangles []Triangle
	Materials []Material
	Textures  []Texture
}

// Scene is an immutable snapshot of a mesh prepared for rasterization. It is
// shared by all workers without locking.
type Scene struct {
	vertices  []mgl32.Vec3
	texCoords []mgl32.Vec2
	materials []Material
	textures  []Texture
	tris      []triangle
	blocks    *colorlookup.Table[string]
	bounds    AABB
}

type triangle struct {
	v        [3]mgl32.Vec3
	uv       [3]int
	bounds   AABB
	material int
	textured bool
}

// NewScene validates in and copies it into a Scene. blocks maps average colours
// to block ids and is used for textured materials and for materials without
// a block id.
func NewScene(in SceneInput, blocks *colorlookup.Table[string]) (*Scene, error) {
	if len(in.Triangles) == 0 {
		return nil, ErrEmptyScene
	}
	if blocks == nil {
		blocks = &colorlookup.Table[string]{}
	}

	s := &Scene{
		vertices:  append([]mgl32.Vec3(nil), in.Vertices...),
		texCoords: append([]mgl32.Vec2(nil), in.TexCoords...),
		materials: append([]Material(nil), in.Materials...),
		textures:  append([]Texture(nil), in.Textures...),
		tris:      make([]triangle, 0, len(in.Triangles)),
		blocks:    blocks,
	}

	for i := range s.materials {
		m := &s.materials[i]
		if m.Texture >= len(s.textures) {
			return nil, fmt.Errorf("material %q: texture %d out of range", m.Name, m.Texture)
		}
		if m.Texture >= 0 && blocks.Len() == 0 {
			return nil, fmt.Errorf("material %q: textured materials need a block colour list", m.Name)
		}
		if m.BlockID == "" {
			id, ok := blocks.Get(m.Color)
			if !ok && m.Texture < 0 {
				return nil, fmt.Errorf("material %q: no block id and no block colour list", m.Name)
			}
			m.BlockID = id
		}
	}

	for i, t := range in.Triangles {
		tri := triangle{material: t.Material, uv: t.TexCoords}
		if t.Material < 0 || t.Material >= len(s.materials) {
			return nil, fmt.Errorf("triangle %d: material %d out of range", i, t.Material)
		}
		for k, vi := range t.Vertices {
			if vi < 0 || vi >= len(s.vertices) {
				return nil, fmt.Errorf("triangle %d: vertex %d out of range", i, vi)
			}
			tri.v[k] = s.vertices[vi]
		}
		tri.textured = s.materials[t.Material].Texture >= 0
		for _, ti := range t.TexCoords {
			if ti < 0 {
				tri.textured = false
				continue
			}
			if ti >= len(s.texCoords) {
				return nil, fmt.Errorf("triangle %d: texture coordinate %d out of range", i, ti)
			}
		}
		tri.bounds = TriangleBounds(tri.v[0], tri.v[1], tri.v[2])
		if len(s.tris) == 0 {
			s.bounds = tri.bounds
		} else {
			for k := range 3 {
				s.bounds.Min[k] = min(s.bounds.Min[k], tri.bounds.Min[k])
				s.bounds.Max[k] = max(s.bounds.Max[k], tri.bounds.Max[k])
			}
		}
		s.tris = append(s.tris, tri)
	}
	return s, nil
}

// Len returns the number of triangles.
func (s *Scene) Len() int { return len(s.tris) }

// Bounds returns the box holding every triangle.
func (s *Scene) Bounds() AABB { return s.bounds }

// Blocks returns the colour table used for sampling.
func (s *Scene) Blocks() *colorlookup.Table[string] { return s.blocks }

// Material returns material i with its resolved block id.
func (s *Scene) Material(i int) Material { return s.materials[i] }

// columnCandidates returns the triangles whose bounds overlap box on x and z.
func (s *Scene) columnCandidates(box AABB) []int32 {
	var out []int32
	for i := range s.tris {
		if s.tris[i].bounds.Overlaps2D(box) {
			out = append(out, int32(i))
		}
	}
	return out
}

// filter returns the members of from whose bounds overlap box.
func (s *Scene) filter(from []int32, box AABB) []int32 {
	var out []int32
	for _, i := range from {
		if s.tris[i].bounds.Overlaps(box) {
			out = append(out, i)
		}
	}
	return out
}

// firstHit returns the first triangle in list intersecting the unit cell at
// origin.
func (s *Scene) firstHit(list []int32, origin mgl32.Vec3) (int32, bool) {
	cell := Box(origin, 1)
	center := origin.Add(cellHalf)
	for _, i := range list {
		t := &s.tris[i]
		if t.bounds.Overlaps(cell) && TriBoxOverlap(center, cellHalf, t.v[0], t.v[1], t.v[2]) {
			return i, true
		}
	}
	return 0, false
}

var cellHalf = mgl32.Vec3{0.5, 0.5, 0.5}

// sampleColor returns the texel under the cell center on a textured triangle.
func (s *Scene) sampleColor(t *triangle, center mgl32.Vec3) color.RGBA {
	u, v, w := Barycentric(vec64(center), vec64(t.v[0]), vec64(t.v[1]), vec64(t.v[2]))
	t0, t1, t2 := s.texCoords[t.uv[0]], s.texCoords[t.uv[1]], s.texCoords[t.uv[2]]
	su := u*float64(t0.X()) + v*float64(t1.X()) + w*float64(t2.X())
	sv := u*float64(t0.Y()) + v*float64(t1.Y()) + w*float64(t2.Y())
	return s.textures[s.materials[t.material].Texture].Sample(su, sv)
}

// blockFor returns the block id for a cell hit by triangle i.
func (s *Scene) blockFor(i int32, origin mgl32.Vec3) string {
	t := &s.tris[i]
	if !t.textured {
		return s.materials[t.material].BlockID
	}
	id, _ := s.blocks.Get(s.sampleColor(t, origin.Add(cellHalf)))
	return id
}
