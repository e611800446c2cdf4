package mesh

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxelmerge/internal/raster"
)

// DefaultMaterial is used by faces that precede any usemtl statement.
var DefaultMaterial = raster.Material{
	Name:    "defaultMTL",
	Color:   color.RGBA{A: 255},
	BlockID: "minecraft:air",
	Texture: -1,
}

// LoadOBJ reads a Wavefront OBJ file and the first material library it names.
// Faces are fan-triangulated. Materials may carry a non-standard
// "blockID <id>" statement naming the block they are written as.
func LoadOBJ(path string, log *slog.Logger) (*Mesh, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	m, err := parseOBJ(f, filepath.Dir(path), log)
	if err != nil {
		return nil, fmt.Errorf("obj %s: %w", path, err)
	}
	log.Debug("loaded obj", "path", path,
		"vertices", len(m.Vertices),
		"triangles", len(m.Triangles),
		"materials", len(m.Materials),
		"textures", len(m.Textures),
	)
	return m, nil
}

func parseOBJ(r io.Reader, dir string, log *slog.Logger) (*Mesh, error) {
	m := &Mesh{Materials: []raster.Material{DefaultMaterial}}
	textures := newTextureSet(m)
	foundLib := false
	material := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		args := fields[1:]

		switch fields[0] {
		case "mtllib":
			if foundLib || len(args) == 0 {
				continue
			}
			lib := resolve(dir, strings.Join(args, " "))
			if err := loadMTL(lib, m, textures, log); err != nil {
				log.Error("load material library", "path", lib, "error", err)
				continue
			}
			foundLib = true

		case "v":
			v, err := parseFloats(args, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", line, err)
			}
			m.Vertices = append(m.Vertices, mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])})

		case "vt":
			v, err := parseFloats(args, 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: texture coordinate: %w", line, err)
			}
			// OBJ rows count up from the bottom of the image.
			m.TexCoords = append(m.TexCoords, mgl32.Vec2{float32(v[0]), 1 - float32(v[1])})

		case "usemtl":
			name := strings.Join(args, " ")
			material = -1
			for i, mat := range m.Materials {
				if mat.Name == name {
					material = i
					break
				}
			}
			if material < 0 {
				return nil, fmt.Errorf("line %d: unknown material %q", line, name)
			}

		case "f":
			if err := m.addFace(args, material); err != nil {
				return nil, fmt.Errorf("line %d: face: %w", line, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mesh) addFace(args []string, material int) error {
	if len(args) < 3 {
		return fmt.Errorf("%d vertices", len(args))
	}
	verts := make([]int, len(args))
	uvs := make([]int, len(args))
	for i, a := range args {
		parts := strings.Split(a, "/")
		v, err := objIndex(parts[0], len(m.Vertices))
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("missing vertex index in %q", a)
		}
		verts[i] = v
		uvs[i] = -1
		if len(parts) > 1 {
			if uvs[i], err = objIndex(parts[1], len(m.TexCoords)); err != nil {
				return err
			}
		}
	}

	textured := m.Materials[material].Texture >= 0
	for i := 2; i < len(verts); i++ {
		t := raster.Triangle{
			Vertices:  [3]int{verts[0], verts[i-1], verts[i]},
			TexCoords: [3]int{-1, -1, -1},
			Material:  material,
		}
		if textured {
			t.TexCoords = [3]int{uvs[0], uvs[i-1], uvs[i]}
		}
		m.Triangles = append(m.Triangles, t)
	}
	return nil
}

// objIndex converts a one-based or negative relative index to zero-based.
// An empty field yields -1.
func objIndex(s string, n int) (int, error) {
	if s == "" {
		return -1, nil
	}
	i, err := strconv.Atoi(s)
	switch {
	case err != nil:
		return 0, fmt.Errorf("index %q: %w", s, err)
	case i > 0:
		return i - 1, nil
	case i < 0:
		return n + i, nil
	default:
		return 0, fmt.Errorf("index 0")
	}
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) < n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i := range n {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// loadMTL appends the materials of a material library to m. Textures that
// fail to load are logged and leave the material untextured.
func loadMTL(path string, m *Mesh, textures *textureSet, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var cur *raster.Material
	flush := func() {
		if cur != nil && cur.Name != "" {
			m.Materials = append(m.Materials, *cur)
		}
	}

	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		rest := strings.Join(fields[1:], " ")

		if fields[0] == "newmtl" {
			flush()
			cur = &raster.Material{Name: rest, Color: color.RGBA{A: 255}, Texture: -1}
			continue
		}
		if cur == nil {
			continue
		}

		switch fields[0] {
		case "Kd":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return fmt.Errorf("line %d: Kd: %w", line, err)
			}
			c := rgba(v[0], v[1], v[2], 1)
			cur.Color.R, cur.Color.G, cur.Color.B = c.R, c.G, c.B
		case "d":
			v, err := parseFloats(fields[1:], 1)
			if err != nil {
				return fmt.Errorf("line %d: d: %w", line, err)
			}
			cur.Color.A = rgba(0, 0, 0, v[0]).A
		case "blockID":
			cur.BlockID = rest
		case "map_Kd":
			// Options before the file name are not supported.
			img := resolve(dir, fields[len(fields)-1])
			data, err := os.ReadFile(img)
			if err != nil {
				log.Error("load texture", "path", img, "error", err)
				continue
			}
			i, err := textures.add(img, data)
			if err != nil {
				log.Error("load texture", "path", img, "error", err)
				continue
			}
			cur.Texture = i
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	flush()
	return nil
}
