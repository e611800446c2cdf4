package mesh

import (
	"fmt"
	"image/color"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/OCharnyshevich/voxelmerge/internal/raster"
)

// blockIDExtra is the material extras key naming the block a material is
// written as.
const blockIDExtra = "blockID"

// LoadGLTF reads a glTF 2.0 file (.gltf or .glb). Triangle primitives of the
// default scene are baked into the mesh with their node transforms. Base
// colour factors and base colour textures become materials.
func LoadGLTF(path string, log *slog.Logger) (*Mesh, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	l := &gltfLoader{
		doc:       doc,
		dir:       filepath.Dir(path),
		log:       log,
		mesh:      &Mesh{},
		materials: make(map[int]int),
		textures:  make(map[int]int),
	}
	l.set = newTextureSet(l.mesh)

	for _, n := range l.roots() {
		if err := l.walk(n, mgl32.Ident4(), 0); err != nil {
			return nil, fmt.Errorf("gltf %s: %w", path, err)
		}
	}
	log.Debug("loaded gltf", "path", path,
		"vertices", len(l.mesh.Vertices),
		"triangles", len(l.mesh.Triangles),
		"materials", len(l.mesh.Materials),
		"textures", len(l.mesh.Textures),
	)
	return l.mesh, nil
}

type gltfLoader struct {
	doc  *gltf.Document
	dir  string
	log  *slog.Logger
	mesh *Mesh
	set  *textureSet

	materials map[int]int // document material (-1 default) -> mesh material
	textures  map[int]int // document texture -> mesh texture
}

// roots returns the root nodes of the default scene, or every node that is
// nobody's child when the document has no scenes.
func (l *gltfLoader) roots() []int {
	if len(l.doc.Scenes) > 0 {
		s := 0
		if l.doc.Scene != nil {
			s = int(*l.doc.Scene)
		}
		var out []int
		for _, n := range l.doc.Scenes[s].Nodes {
			out = append(out, int(n))
		}
		return out
	}

	child := make(map[int]bool)
	for _, n := range l.doc.Nodes {
		for _, c := range n.Children {
			child[int(c)] = true
		}
	}
	var out []int
	for i := range l.doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

const maxNodeDepth = 64

func (l *gltfLoader) walk(i int, parent mgl32.Mat4, depth int) error {
	if depth > maxNodeDepth {
		return fmt.Errorf("node %d: hierarchy deeper than %d", i, maxNodeDepth)
	}
	if i < 0 || i >= len(l.doc.Nodes) {
		return fmt.Errorf("node %d out of range", i)
	}
	n := l.doc.Nodes[i]
	world := parent.Mul4(localMatrix(n))

	if n.Mesh != nil {
		if err := l.addMesh(int(*n.Mesh), world); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
	}
	for _, c := range n.Children {
		if err := l.walk(int(c), world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func localMatrix(n *gltf.Node) mgl32.Mat4 {
	var m mgl32.Mat4
	for i, v := range n.MatrixOrDefault() {
		m[i] = float32(v)
	}
	if m != mgl32.Ident4() {
		return m
	}
	t, r, s := n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()
	q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func (l *gltfLoader) addMesh(i int, world mgl32.Mat4) error {
	if i < 0 || i >= len(l.doc.Meshes) {
		return fmt.Errorf("mesh %d out of range", i)
	}
	for p, prim := range l.doc.Meshes[i].Primitives {
		if err := l.addPrimitive(prim, world); err != nil {
			return fmt.Errorf("mesh %d primitive %d: %w", i, p, err)
		}
	}
	return nil
}

func (l *gltfLoader) addPrimitive(prim *gltf.Primitive, world mgl32.Mat4) error {
	if prim.Mode != gltf.PrimitiveTriangles {
		l.log.Warn("skipping non-triangle primitive", "mode", prim.Mode)
		return nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil
	}
	positions, err := modeler.ReadPosition(l.doc, l.doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	m := l.mesh
	base := len(m.Vertices)
	for _, p := range positions {
		m.Vertices = append(m.Vertices, mgl32.TransformCoordinate(mgl32.Vec3{p[0], p[1], p[2]}, world))
	}

	uvBase := -1
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(l.doc, l.doc.Accessors[uvIdx], nil)
		if err != nil {
			return fmt.Errorf("texture coordinates: %w", err)
		}
		uvBase = len(m.TexCoords)
		for _, uv := range uvs {
			m.TexCoords = append(m.TexCoords, mgl32.Vec2{uv[0], uv[1]})
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(l.doc, l.doc.Accessors[*prim.Indices], nil); err != nil {
			return fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	matIdx := -1
	if prim.Material != nil {
		matIdx = int(*prim.Material)
	}
	material, err := l.material(matIdx)
	if err != nil {
		return err
	}

	for i := 0; i+2 < len(indices); i += 3 {
		t := raster.Triangle{TexCoords: [3]int{-1, -1, -1}, Material: material}
		for k := range 3 {
			idx := int(indices[i+k])
			if idx >= len(positions) {
				return fmt.Errorf("index %d out of range", idx)
			}
			t.Vertices[k] = base + idx
			if uvBase >= 0 {
				t.TexCoords[k] = uvBase + idx
			}
		}
		m.Triangles = append(m.Triangles, t)
	}
	return nil
}

func (l *gltfLoader) material(i int) (int, error) {
	if mi, ok := l.materials[i]; ok {
		return mi, nil
	}
	mat := raster.Material{Name: "default", Color: color.RGBA{255, 255, 255, 255}, Texture: -1}
	if i >= 0 {
		if i >= len(l.doc.Materials) {
			return 0, fmt.Errorf("material %d out of range", i)
		}
		gm := l.doc.Materials[i]
		mat.Name = gm.Name
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material%d", i)
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if f := pbr.BaseColorFactor; f != nil {
				mat.Color = rgba(float64(f[0]), float64(f[1]), float64(f[2]), float64(f[3]))
			}
			if ti := pbr.BaseColorTexture; ti != nil {
				tex, err := l.texture(int(ti.Index))
				if err != nil {
					l.log.Error("load texture", "material", mat.Name, "error", err)
				} else {
					mat.Texture = tex
				}
			}
		}
		if id, ok := blockIDOf(gm.Extras); ok {
			mat.BlockID = id
		}
	}
	l.mesh.Materials = append(l.mesh.Materials, mat)
	mi := len(l.mesh.Materials) - 1
	l.materials[i] = mi
	return mi, nil
}

func blockIDOf(extras any) (string, bool) {
	m, ok := extras.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := m[blockIDExtra].(string)
	return id, ok && id != ""
}

func (l *gltfLoader) texture(i int) (int, error) {
	if ti, ok := l.textures[i]; ok {
		return ti, nil
	}
	if i < 0 || i >= len(l.doc.Textures) {
		return -1, fmt.Errorf("texture %d out of range", i)
	}
	src := l.doc.Textures[i].Source
	if src == nil {
		return -1, fmt.Errorf("texture %d has no image", i)
	}
	img := l.doc.Images[*src]
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("image%d", *src)
	}

	data, err := l.imageData(img)
	if err != nil {
		return -1, fmt.Errorf("image %s: %w", name, err)
	}
	ti, err := l.set.add(name, data)
	if err != nil {
		return -1, err
	}
	l.textures[i] = ti
	return ti, nil
}

func (l *gltfLoader) imageData(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		bv := l.doc.BufferViews[*img.BufferView]
		buf := l.doc.Buffers[bv.Buffer].Data
		end := int(bv.ByteOffset) + int(bv.ByteLength)
		if end > len(buf) {
			return nil, fmt.Errorf("buffer view %d past end of buffer", *img.BufferView)
		}
		return buf[bv.ByteOffset:end], nil
	case img.IsEmbeddedResource():
		return img.MarshalData()
	default:
		name, err := url.PathUnescape(img.URI)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(resolve(l.dir, name))
	}
}
