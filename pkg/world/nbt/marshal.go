package nbt

import (
	"fmt"

	"github.com/OCharnyshevich/voxelmerge/pkg/bestream"
)

// Marshal encodes t as a root document with an empty name. The root must be a
// compound or a list.
func Marshal(t *Tag) ([]byte, error) {
	switch t.Kind() {
	case TagCompound, TagList:
	default:
		return nil, fmt.Errorf("%w: root must be Compound or List, got %s", ErrTypeMismatch, t.Kind())
	}
	n := Size(t)
	s := bestream.New(make([]byte, n))
	w := NewWriter(s)
	w.WriteTag("", t)
	if err := w.Err(); err != nil {
		return nil, err
	}
	if s.Offset() != n {
		return nil, fmt.Errorf("nbt: wrote %d bytes, sized %d", s.Offset(), n)
	}
	return s.Bytes(), nil
}

// Size returns the exact number of bytes Marshal produces for t.
func Size(t *Tag) int {
	if t.IsNull() {
		return 0
	}
	return 1 + 2 + payloadSize(t)
}

func payloadSize(t *Tag) int {
	switch t.Kind() {
	case TagByte, TagBool:
		return 1
	case TagShort:
		return 2
	case TagInt, TagFloat:
		return 4
	case TagLong, TagDouble:
		return 8
	case TagString:
		return 2 + len(t.str)
	case TagByteArray:
		return 4 + len(t.bytes)
	case TagIntArray:
		return 4 + 4*len(t.ints)
	case TagLongArray:
		return 4 + 8*len(t.longs)
	case TagList:
		n := 1 + 4
		for _, e := range t.list {
			n += payloadSize(e)
		}
		return n
	case TagCompound:
		n := 1
		for _, key := range t.comp.keys {
			v := t.comp.vals[key]
			if v.IsNull() {
				continue
			}
			n += 1 + 2 + len(key) + payloadSize(v)
		}
		return n
	}
	return 0
}
