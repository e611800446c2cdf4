package chunk

import (
	"fmt"

	"github.com/OCharnyshevich/voxelmerge/pkg/world/nbt"
)

// Air is the block every edited section's palette is guaranteed to contain.
const Air = "minecraft:air"

// blockLightFill is the per-byte BlockLight value of sections created here.
const blockLightFill = 1

// FindOrAddIndex returns the palette index of name, appending {Name: name}
// when absent.
func FindOrAddIndex(palette *nbt.Tag, name string) (uint16, error) {
	elems, err := listElems(palette)
	if err != nil {
		return 0, err
	}
	for i, e := range elems {
		n, err := paletteName(e)
		if err != nil {
			return 0, fmt.Errorf("palette entry %d: %w", i, err)
		}
		if n == name {
			return uint16(i), nil
		}
	}
	return appendPalette(palette, name)
}

func listElems(palette *nbt.Tag) ([]*nbt.Tag, error) {
	if palette.IsNull() {
		return nil, nil
	}
	return palette.Elems()
}

func paletteName(e *nbt.Tag) (string, error) {
	name, ok := e.Get("Name")
	if !ok {
		return "", nil
	}
	return name.Str()
}

func appendPalette(palette *nbt.Tag, name string) (uint16, error) {
	n := palette.Len()
	if n >= MaxPaletteSize {
		return 0, fmt.Errorf("palette full: cannot add %q", name)
	}
	if err := palette.Append(nbt.CompoundOf(nbt.Entry{Key: "Name", Value: nbt.String(name)})); err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// NewSection returns an empty section at height y.
func NewSection(y int) *nbt.Tag {
	light := make([]int8, SectionVolume/2)
	for i := range light {
		light[i] = blockLightFill
	}
	return nbt.CompoundOf(
		nbt.Entry{Key: "Y", Value: nbt.Byte(int8(y))},
		nbt.Entry{Key: "BlockLight", Value: nbt.ByteArray(light)},
		nbt.Entry{Key: "Palette", Value: nbt.List()},
		nbt.Entry{Key: "BlockStates", Value: nbt.LongArray(make([]int64, WordCount(0)))},
	)
}

// FindSection returns the section in sections whose Y equals y.
func FindSection(sections *nbt.Tag, y int) (*nbt.Tag, bool, error) {
	elems, err := listElems(sections)
	if err != nil {
		return nil, false, fmt.Errorf("sections: %w", err)
	}
	for _, s := range elems {
		yt, ok := s.Get("Y")
		if !ok {
			continue
		}
		sy, err := yt.Int8()
		if err != nil {
			return nil, false, fmt.Errorf("section Y: %w", err)
		}
		if int(sy) == y {
			return s, true, nil
		}
	}
	return nil, false, nil
}

// FindOrCreateSection returns the section at height y, appending a new empty
// one when the column has none.
func FindOrCreateSection(sections *nbt.Tag, y int) (*nbt.Tag, error) {
	s, ok, err := FindSection(sections, y)
	if err != nil {
		return nil, err
	}
	if ok {
		return s, nil
	}
	s = NewSection(y)
	if err := sections.Append(s); err != nil {
		return nil, fmt.Errorf("append section %d: %w", y, err)
	}
	return s, nil
}

// SectionEditor holds the decoded cells of one section while they are
// rewritten. Decoding uses the palette size found on open; Commit encodes
// with the palette size at that time.
type SectionEditor struct {
	palette *nbt.Tag
	states  *nbt.Tag
	names   map[string]uint16
	cells   *Indices
}

// OpenSection decodes section and makes sure its palette contains Air.
func OpenSection(section *nbt.Tag) (*SectionEditor, error) {
	palette, err := section.Key("Palette")
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	if palette.IsNull() {
		palette.Replace(nbt.List())
	}
	states, err := section.Key("BlockStates")
	if err != nil {
		return nil, fmt.Errorf("block states: %w", err)
	}
	if states.IsNull() {
		states.Replace(nbt.LongArray(nil))
	}
	words, err := states.Int64s()
	if err != nil {
		return nil, fmt.Errorf("block states: %w", err)
	}
	if len(words) == 0 {
		words = make([]int64, WordCount(0))
	}

	elems, err := palette.Elems()
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	e := &SectionEditor{
		palette: palette,
		states:  states,
		names:   make(map[string]uint16, len(elems)+1),
	}
	for i, p := range elems {
		name, err := paletteName(p)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		if _, dup := e.names[name]; !dup {
			e.names[name] = uint16(i)
		}
	}

	sizeBefore := len(elems)
	if _, err := e.Index(Air); err != nil {
		return nil, err
	}
	e.cells, err = DecodeBlockStates(words, sizeBefore)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Index returns the palette index for name, adding it when absent.
func (e *SectionEditor) Index(name string) (uint16, error) {
	if i, ok := e.names[name]; ok {
		return i, nil
	}
	i, err := appendPalette(e.palette, name)
	if err != nil {
		return 0, err
	}
	e.names[name] = i
	return i, nil
}

// Get returns the palette index stored at cell i.
func (e *SectionEditor) Get(i int) uint16 { return e.cells[i] }

// Set stores palette index v at cell i.
func (e *SectionEditor) Set(i int, v uint16) { e.cells[i] = v }

// SetName stores name at cell i, growing the palette when needed.
func (e *SectionEditor) SetName(i int, name string) error {
	v, err := e.Index(name)
	if err != nil {
		return err
	}
	e.cells[i] = v
	return nil
}

// PaletteLen returns the current palette size.
func (e *SectionEditor) PaletteLen() int { return e.palette.Len() }

// Commit re-encodes the cells into the section's BlockStates.
func (e *SectionEditor) Commit() error {
	words := EncodeBlockStates(e.cells, e.palette.Len())
	if err := e.states.SetInt64s(words); err != nil {
		return fmt.Errorf("block states: %w", err)
	}
	return nil
}
