// Package blocks reads block lists: the blocks a sampled colour may become,
// each with the average colour of its texture.
//
// A list has one block per line:
//
//	blockID, textureName[, r g b a]
//
// Texture names are relative to the list's directory. Lines without a colour
// get one computed from the texture, and the list is rewritten with it.
package blocks

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OCharnyshevich/voxelmerge/internal/mesh"
	"github.com/OCharnyshevich/voxelmerge/internal/storage"
	"github.com/OCharnyshevich/voxelmerge/pkg/colorlookup"
)

// ErrMalformedLine is returned for lines that do not name a block and a texture.
var ErrMalformedLine = errors.New("malformed block list line")

const sep = ", "

// Entry is one block of a list.
type Entry struct {
	BlockID  string
	Texture  string
	Color    color.RGBA
	HasColor bool
}

func (e Entry) String() string {
	if !e.HasColor {
		return e.BlockID + sep + e.Texture
	}
	c := e.Color
	return fmt.Sprintf("%s%s%s%s%d %d %d %d", e.BlockID, sep, e.Texture, sep, c.R, c.G, c.B, c.A)
}

// Parse reads a list. Blank lines are skipped. A colour field that is not
// four bytes counts as missing.
func Parse(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		e, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseLine(s string) (Entry, error) {
	fields := strings.Split(s, sep)
	if len(fields) < 2 || len(fields) > 3 || fields[0] == "" || fields[1] == "" {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedLine, s)
	}
	e := Entry{BlockID: fields[0], Texture: fields[1]}
	if len(fields) == 3 {
		e.Color, e.HasColor = parseColor(fields[2])
	}
	return e, nil
}

func parseColor(s string) (color.RGBA, bool) {
	f := strings.Fields(s)
	if len(f) < 4 {
		return color.RGBA{}, false
	}
	var c [4]uint8
	for i := range c {
		v, err := strconv.ParseUint(f[i], 10, 8)
		if err != nil {
			return color.RGBA{}, false
		}
		c[i] = uint8(v)
	}
	return color.RGBA{c[0], c[1], c[2], c[3]}, true
}

// Write writes entries one per line.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(e.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Fill computes the colour of every entry that lacks one from the average
// colour of its texture in dir. It reports whether any entry changed.
func Fill(entries []Entry, dir string) (bool, error) {
	changed := false
	for i := range entries {
		e := &entries[i]
		if e.HasColor {
			continue
		}
		tex, err := mesh.LoadTexture(filepath.Join(dir, e.Texture))
		if err != nil {
			return changed, fmt.Errorf("block %s: %w", e.BlockID, err)
		}
		e.Color, e.HasColor = tex.AverageColor(), true
		changed = true
	}
	return changed, nil
}

// Table maps each entry's colour to its block id, in list order.
func Table(entries []Entry) *colorlookup.Table[string] {
	t := &colorlookup.Table[string]{}
	for _, e := range entries {
		t.Insert(e.Color, e.BlockID)
	}
	return t
}

// Load reads the list at path, fills in missing colours and rewrites the
// file when any were added.
func Load(path string, log *slog.Logger) (*colorlookup.Table[string], error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open block list: %w", err)
	}
	entries, err := Parse(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("block list %s: %w", path, err)
	}

	changed, err := Fill(entries, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("block list %s: %w", path, err)
	}
	if changed {
		var buf bytes.Buffer
		if err := Write(&buf, entries); err != nil {
			return nil, err
		}
		if err := storage.WriteFile(path, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("rewrite block list: %w", err)
		}
		log.Info("computed block colours", "path", path)
	}
	log.Debug("loaded block list", "path", path, "blocks", len(entries))
	return Table(entries), nil
}
