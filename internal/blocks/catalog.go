package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// RegistryBlock is the part of a minecraft-data blocks.json entry used to
// pick blocks for a list.
type RegistryBlock struct {
	Name        string `json:"name"`
	BoundingBox string `json:"boundingBox"`
	Transparent bool   `json:"transparent"`
	Diggable    bool   `json:"diggable"`
}

// Solid reports whether the block fills its whole cell and can be seen
// through nowhere.
func (b RegistryBlock) Solid() bool {
	return b.BoundingBox == "block" && !b.Transparent && b.Diggable
}

// ParseRegistry decodes a minecraft-data blocks.json document.
func ParseRegistry(r io.Reader) ([]RegistryBlock, error) {
	var out []RegistryBlock
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse blocks registry: %w", err)
	}
	return out, nil
}

// Catalog returns an entry for every solid block that has a texture named
// after it in textureDir. Texture names are written relative to listDir.
// Colours are left for Fill.
func Catalog(registry []RegistryBlock, textureDir, listDir string) ([]Entry, error) {
	var out []Entry
	for _, b := range registry {
		if !b.Solid() {
			continue
		}
		tex := filepath.Join(textureDir, b.Name+".png")
		if _, err := os.Stat(tex); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		rel, err := filepath.Rel(listDir, tex)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{BlockID: "minecraft:" + b.Name, Texture: filepath.ToSlash(rel)})
	}
	return out, nil
}
