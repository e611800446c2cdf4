// Package mesh loads triangle meshes and places them in world space.
package mesh

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelmerge/internal/raster"
	"github.com/OCharnyshevich/voxelmerge/pkg/colorlookup"
)

// ErrEmptyMesh is returned when a transform needs the bounds of a mesh with
// no vertices.
var ErrEmptyMesh = errors.New("mesh: no vertices")

// Mesh is an indexed triangle mesh with its materials and textures. Vertices
// are kept as loaded; the placement transform is applied by Transformed.
type Mesh struct {
	Vertices  []mgl32.Vec3
	TexCoords []mgl32.Vec2
	Triangles []raster.Triangle
	Materials []raster.Material
	Textures  []*ImageTexture

	transform mgl32.Mat4
	set       bool
}

// Load reads a mesh, picking the format from the file extension.
func Load(path string, log *slog.Logger) (*Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return LoadOBJ(path, log)
	case ".gltf", ".glb":
		return LoadGLTF(path, log)
	default:
		return nil, fmt.Errorf("mesh %s: unsupported format", path)
	}
}

// Transform returns the placement transform.
func (m *Mesh) Transform() mgl32.Mat4 {
	if !m.set {
		return mgl32.Ident4()
	}
	return m.transform
}

// Apply appends t to the placement transform.
func (m *Mesh) Apply(t mgl32.Mat4) {
	m.transform = t.Mul4(m.Transform())
	m.set = true
}

// Translate moves the mesh by v.
func (m *Mesh) Translate(v mgl32.Vec3) {
	m.Apply(mgl32.Translate3D(v.X(), v.Y(), v.Z()))
}

// Scale scales the mesh per axis around the origin.
func (m *Mesh) Scale(v mgl32.Vec3) {
	m.Apply(mgl32.Scale3D(v.X(), v.Y(), v.Z()))
}

// Rotate rotates the mesh around x, then y, then z by the given degrees.
func (m *Mesh) Rotate(degrees mgl32.Vec3) {
	m.Apply(mgl32.HomogRotate3DX(mgl32.DegToRad(degrees.X())))
	m.Apply(mgl32.HomogRotate3DY(mgl32.DegToRad(degrees.Y())))
	m.Apply(mgl32.HomogRotate3DZ(mgl32.DegToRad(degrees.Z())))
}

// Center moves the middle of the mesh's bounds to the origin.
func (m *Mesh) Center() error {
	if len(m.Vertices) == 0 {
		return ErrEmptyMesh
	}
	b := m.Bounds()
	m.Translate(b.Min.Add(b.Max).Mul(-0.5))
	return nil
}

// ScaleTo scales the mesh so its bounds measure size. Axes where size is not
// positive keep their scale.
func (m *Mesh) ScaleTo(size mgl32.Vec3) error {
	if len(m.Vertices) == 0 {
		return ErrEmptyMesh
	}
	b := m.Bounds()
	ext := b.Max.Sub(b.Min)
	factor := mgl32.Vec3{1, 1, 1}
	for i := range 3 {
		if size[i] <= 0 {
			continue
		}
		if ext[i] == 0 {
			return fmt.Errorf("scale to %v: mesh is flat on axis %d", size, i)
		}
		factor[i] = size[i] / ext[i]
	}
	m.Scale(factor)
	return nil
}

// TransformedVertices returns the vertices with the placement transform
// applied.
func (m *Mesh) TransformedVertices() []mgl32.Vec3 {
	t := m.Transform()
	out := make([]mgl32.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = mgl32.TransformCoordinate(v, t)
	}
	return out
}

// Bounds returns the box holding every transformed vertex.
func (m *Mesh) Bounds() raster.AABB {
	return boundsOf(m.TransformedVertices())
}

func boundsOf(vs []mgl32.Vec3) raster.AABB {
	if len(vs) == 0 {
		return raster.AABB{}
	}
	b := raster.AABB{Min: vs[0], Max: vs[0]}
	for _, v := range vs[1:] {
		for i := range 3 {
			b.Min[i] = min(b.Min[i], v[i])
			b.Max[i] = max(b.Max[i], v[i])
		}
	}
	return b
}

// Transformed returns the scene input for the placed mesh and the number of
// triangles dropped because they have no area or reference missing vertices.
func (m *Mesh) Transformed() (raster.SceneInput, int) {
	verts := m.TransformedVertices()
	in := raster.SceneInput{
		Vertices:  verts,
		TexCoords: m.TexCoords,
		Materials: m.Materials,
		Triangles: make([]raster.Triangle, 0, len(m.Triangles)),
	}
	for _, t := range m.Textures {
		in.Textures = append(in.Textures, t)
	}

	dropped := 0
	for _, t := range m.Triangles {
		if degenerate(verts, t) {
			dropped++
			continue
		}
		in.Triangles = append(in.Triangles, t)
	}
	return in, dropped
}

func degenerate(verts []mgl32.Vec3, t raster.Triangle) bool {
	for _, i := range t.Vertices {
		if i < 0 || i >= len(verts) {
			return true
		}
	}
	a, b, c := verts[t.Vertices[0]], verts[t.Vertices[1]], verts[t.Vertices[2]]
	n := b.Sub(a).Cross(c.Sub(a))
	return n.Dot(n) == 0
}

// Scene builds the rasterizer scene for the placed mesh.
func (m *Mesh) Scene(blocks *colorlookup.Table[string]) (*raster.Scene, int, error) {
	in, dropped := m.Transformed()
	s, err := raster.NewScene(in, blocks)
	if err != nil {
		return nil, dropped, err
	}
	return s, dropped, nil
}

func (m *Mesh) addTexture(t *ImageTexture) int {
	m.Textures = append(m.Textures, t)
	return len(m.Textures) - 1
}

func rgba(r, g, b, a float64) color.RGBA {
	c := func(v float64) uint8 { return uint8(max(0, min(255, v*255))) }
	return color.RGBA{R: c(r), G: c(g), B: c(b), A: c(a)}
}
