package blocks

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	src := "minecraft:stone, stone.png, 125 125 125 255\n" +
		"\n" +
		"minecraft:dirt, dirt.png\r\n" +
		"minecraft:sand, sand.png, 1 2 3\n" +
		"minecraft:glass, glass.png, 1 2 3 400\n"

	entries, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{"minecraft:stone", "stone.png", color.RGBA{125, 125, 125, 255}, true}, entries[0])
	assert.Equal(t, Entry{BlockID: "minecraft:dirt", Texture: "dirt.png"}, entries[1])
	assert.False(t, entries[2].HasColor, "three components")
	assert.False(t, entries[3].HasColor, "component out of range")
}

func TestParseMalformed(t *testing.T) {
	for _, src := range []string{
		"minecraft:stone\n",
		"minecraft:stone,stone.png\n",
		"a, b, 1 2 3 4, d\n",
		", stone.png\n",
	} {
		_, err := Parse(strings.NewReader(src))
		assert.ErrorIs(t, err, ErrMalformedLine, src)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []Entry{
		{BlockID: "minecraft:dirt", Texture: "dirt.png"},
		{"minecraft:stone", "stone.png", color.RGBA{1, 2, 3, 4}, true},
	}))
	assert.Equal(t, "minecraft:dirt, dirt.png\nminecraft:stone, stone.png, 1 2 3 4\n", buf.String())
}

func writePNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range 4 {
		img.Set(i%2, i/2, c)
	}
	img.Set(1, 1, color.NRGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLoadFillsAndRewrites(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "textures", "red.png"), color.NRGBA{200, 0, 0, 255})
	list := filepath.Join(dir, "blocks.txt")
	src := "minecraft:stone, stone.png, 125 125 125 255\nminecraft:red_wool, textures/red.png\n"
	require.NoError(t, os.WriteFile(list, []byte(src), 0o644))

	table, err := Load(list, nil)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	id, ok := table.Get(color.RGBA{150, 0, 0, 255})
	require.True(t, ok)
	assert.Equal(t, "minecraft:red_wool", id)

	data, err := os.ReadFile(list)
	require.NoError(t, err)
	assert.Equal(t,
		"minecraft:stone, stone.png, 125 125 125 255\nminecraft:red_wool, textures/red.png, 150 0 0 255\n",
		string(data))

	// A complete list is left untouched.
	info, err := os.Stat(list)
	require.NoError(t, err)
	_, err = Load(list, nil)
	require.NoError(t, err)
	again, err := os.Stat(list)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestLoadMissingTexture(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "blocks.txt")
	require.NoError(t, os.WriteFile(list, []byte("minecraft:dirt, dirt.png\n"), 0o644))

	_, err := Load(list, nil)
	assert.ErrorContains(t, err, "minecraft:dirt")

	data, err := os.ReadFile(list)
	require.NoError(t, err)
	assert.Equal(t, "minecraft:dirt, dirt.png\n", string(data))
}

func TestLoadMissingList(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
