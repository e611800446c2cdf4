package mesh

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // texture formats
	_ "image/png"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
)

// ImageTexture is a decoded RGBA texture with (0, 0) at the top-left texel.
type ImageTexture struct {
	Name string
	img  *image.NRGBA
	hash uint64
}

// DecodeTexture decodes a PNG or JPEG image.
func DecodeTexture(name string, data []byte) (*ImageTexture, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", name, err)
	}
	return NewTexture(name, src, xxhash.Sum64(data)), nil
}

// LoadTexture reads and decodes the image file at path.
func LoadTexture(path string) (*ImageTexture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	return DecodeTexture(path, data)
}

// NewTexture wraps img. hash identifies the source bytes; zero when unknown.
func NewTexture(name string, img image.Image, hash uint64) *ImageTexture {
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Rect, img, b.Min, draw.Src)
	}
	return &ImageTexture{Name: name, img: nrgba, hash: hash}
}

// Hash returns the xxhash of the encoded bytes the texture was decoded from.
func (t *ImageTexture) Hash() uint64 { return t.hash }

func (t *ImageTexture) Size() (int, int) {
	return t.img.Rect.Dx(), t.img.Rect.Dy()
}

// Sample returns the texel at floor((w-1)*u), floor((h-1)*v), clamped to the
// image.
func (t *ImageTexture) Sample(u, v float64) color.RGBA {
	w, h := t.Size()
	x := texel(u, w)
	y := texel(v, h)
	c := t.img.NRGBAAt(x, y)
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func texel(f float64, n int) int {
	i := math.Floor(float64(n-1) * f)
	if math.IsNaN(i) {
		return 0
	}
	return int(max(0, min(float64(n-1), i)))
}

// AverageColor returns the per-channel mean over all texels, truncated.
func (t *ImageTexture) AverageColor() color.RGBA {
	w, h := t.Size()
	n := uint64(w * h)
	if n == 0 {
		return color.RGBA{}
	}
	var sum [4]uint64
	pix := t.img.Pix
	for y := range h {
		row := pix[y*t.img.Stride : y*t.img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			sum[0] += uint64(row[i])
			sum[1] += uint64(row[i+1])
			sum[2] += uint64(row[i+2])
			sum[3] += uint64(row[i+3])
		}
	}
	return color.RGBA{R: uint8(sum[0] / n), G: uint8(sum[1] / n), B: uint8(sum[2] / n), A: uint8(sum[3] / n)}
}

// textureSet adds textures to a mesh once per distinct encoded image.
type textureSet struct {
	mesh   *Mesh
	byHash map[uint64]int
}

func newTextureSet(m *Mesh) *textureSet {
	return &textureSet{mesh: m, byHash: make(map[uint64]int)}
}

// add decodes data unless an identical image was added before, and returns
// the texture index.
func (s *textureSet) add(name string, data []byte) (int, error) {
	h := xxhash.Sum64(data)
	if i, ok := s.byHash[h]; ok {
		return i, nil
	}
	t, err := DecodeTexture(name, data)
	if err != nil {
		return -1, err
	}
	i := s.mesh.addTexture(t)
	s.byHash[h] = i
	return i, nil
}
