package nbt

import (
	"fmt"

	"github.com/OCharnyshevich/voxelmerge/pkg/bestream"
)

// maxDepth bounds recursion on hostile input.
const maxDepth = 512

// Parse decodes a document whose root is a compound or list. The root name is
// skipped.
func Parse(b []byte) (*Tag, error) {
	s := bestream.New(b)
	typ, err := s.ReadUint8()
	if err != nil {
		return nil, malformed(err)
	}
	root := Kind(typ)
	if root != TagCompound && root != TagList {
		return nil, fmt.Errorf("%w: root type %s", ErrMalformedStream, root)
	}
	if _, err := s.ReadString(); err != nil {
		return nil, malformed(err)
	}
	t, err := readPayload(s, root, 0)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedStream, err)
}

func readLength(s *bestream.Stream) (int, error) {
	u, err := s.ReadUint32()
	if err != nil {
		return 0, malformed(err)
	}
	n := int32(u)
	if n < 0 {
		return 0, fmt.Errorf("%w: negative length %d", ErrMalformedStream, n)
	}
	// Every element takes at least one byte, so a larger count cannot fit.
	if int(n) > s.Remaining() {
		return 0, fmt.Errorf("%w: length %d exceeds %d remaining bytes", ErrMalformedStream, n, s.Remaining())
	}
	return int(n), nil
}

func readPayload(s *bestream.Stream, k Kind, depth int) (*Tag, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformedStream, maxDepth)
	}
	switch k {
	case TagByte, TagBool:
		v, err := s.ReadUint8()
		if err != nil {
			return nil, malformed(err)
		}
		return &Tag{kind: k, num: int64(int8(v))}, nil
	case TagShort:
		v, err := s.ReadUint16()
		if err != nil {
			return nil, malformed(err)
		}
		return Short(int16(v)), nil
	case TagInt:
		v, err := s.ReadUint32()
		if err != nil {
			return nil, malformed(err)
		}
		return Int(int32(v)), nil
	case TagLong:
		v, err := s.ReadUint64()
		if err != nil {
			return nil, malformed(err)
		}
		return Long(int64(v)), nil
	case TagFloat:
		v, err := s.ReadFloat32()
		if err != nil {
			return nil, malformed(err)
		}
		return Float(v), nil
	case TagDouble:
		v, err := s.ReadFloat64()
		if err != nil {
			return nil, malformed(err)
		}
		return Double(v), nil
	case TagString:
		v, err := s.ReadString()
		if err != nil {
			return nil, malformed(err)
		}
		return String(v), nil
	case TagByteArray:
		n, err := readLength(s)
		if err != nil {
			return nil, err
		}
		raw, err := s.ReadBytes(n)
		if err != nil {
			return nil, malformed(err)
		}
		v := make([]int8, n)
		for i, b := range raw {
			v[i] = int8(b)
		}
		return ByteArray(v), nil
	case TagIntArray:
		n, err := readLength(s)
		if err != nil {
			return nil, err
		}
		v := make([]int32, n)
		for i := range v {
			u, err := s.ReadUint32()
			if err != nil {
				return nil, malformed(err)
			}
			v[i] = int32(u)
		}
		return IntArray(v), nil
	case TagLongArray:
		n, err := readLength(s)
		if err != nil {
			return nil, err
		}
		v := make([]int64, n)
		for i := range v {
			u, err := s.ReadUint64()
			if err != nil {
				return nil, malformed(err)
			}
			v[i] = int64(u)
		}
		return LongArray(v), nil
	case TagList:
		return readList(s, depth)
	case TagCompound:
		return readCompound(s, depth)
	}
	return nil, fmt.Errorf("%w: unknown type %d", ErrMalformedStream, byte(k))
}

func readList(s *bestream.Stream, depth int) (*Tag, error) {
	typ, err := s.ReadUint8()
	if err != nil {
		return nil, malformed(err)
	}
	n, err := readLength(s)
	if err != nil {
		return nil, err
	}
	elem := Kind(typ)
	t := &Tag{kind: TagList, list: make([]*Tag, 0, n)}
	if elem == TagEnd {
		return t, nil
	}
	for range n {
		e, err := readPayload(s, elem, depth+1)
		if err != nil {
			return nil, err
		}
		t.list = append(t.list, e)
	}
	return t, nil
}

func readCompound(s *bestream.Stream, depth int) (*Tag, error) {
	t := Compound()
	for {
		typ, err := s.ReadUint8()
		if err != nil {
			return nil, malformed(err)
		}
		if Kind(typ) == TagEnd {
			return t, nil
		}
		name, err := s.ReadString()
		if err != nil {
			return nil, malformed(err)
		}
		v, err := readPayload(s, Kind(typ), depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		t.comp.put(name, v)
	}
}
