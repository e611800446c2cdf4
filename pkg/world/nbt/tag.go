package nbt

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrMalformedStream is returned when a document overruns its buffer or
	// starts with a type that cannot be a root.
	ErrMalformedStream = errors.New("nbt: malformed stream")

	// ErrTypeMismatch is returned when a tag is read or written as a kind it
	// cannot be converted to.
	ErrTypeMismatch = errors.New("nbt: type mismatch")

	// ErrIndexOutOfRange is returned by list indexing past the auto-growth slot.
	ErrIndexOutOfRange = errors.New("nbt: index out of range")
)

// Kind identifies the variant held by a Tag. Values match the wire type codes.
type Kind byte

// Tag kinds. TagNull never appears on the wire.
const (
	TagEnd       Kind = 0
	TagByte      Kind = 1
	TagShort     Kind = 2
	TagInt       Kind = 3
	TagLong      Kind = 4
	TagFloat     Kind = 5
	TagDouble    Kind = 6
	TagByteArray Kind = 7
	TagString    Kind = 8
	TagList      Kind = 9
	TagCompound  Kind = 10
	TagIntArray  Kind = 11
	TagLongArray Kind = 12
	TagBool      Kind = 13
	TagNull      Kind = 0xFF
)

var kindNames = map[Kind]string{
	TagEnd:       "End",
	TagByte:      "Byte",
	TagShort:     "Short",
	TagInt:       "Int",
	TagLong:      "Long",
	TagFloat:     "Float",
	TagDouble:    "Double",
	TagByteArray: "ByteArray",
	TagString:    "String",
	TagList:      "List",
	TagCompound:  "Compound",
	TagIntArray:  "IntArray",
	TagLongArray: "LongArray",
	TagBool:      "Bool",
	TagNull:      "Null",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

func (k Kind) isInteger() bool {
	return k == TagByte || k == TagShort || k == TagInt || k == TagLong
}

func (k Kind) isFloat() bool {
	return k == TagFloat || k == TagDouble
}

// Tag is one node of a tag tree. The zero value is a null tag.
//
// Composite tags (lists and compounds) own their children exclusively. A child
// pointer returned by an accessor stays valid until the child is removed or the
// parent is overwritten.
type Tag struct {
	kind  Kind
	num   int64
	flt   float64
	str   string
	bytes []int8
	ints  []int32
	longs []int64
	list  []*Tag
	comp  *compound
}

// compound keeps insertion order so a parsed tree writes back in its
// original field order.
type compound struct {
	keys []string
	vals map[string]*Tag
}

func newCompound() *compound {
	return &compound{vals: make(map[string]*Tag)}
}

func (c *compound) put(key string, v *Tag) {
	if _, ok := c.vals[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.vals[key] = v
}

func (c *compound) remove(key string) bool {
	if _, ok := c.vals[key]; !ok {
		return false
	}
	delete(c.vals, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
	return true
}

// Null returns a new null tag.
func Null() *Tag { return &Tag{} }

// Bool returns a boolean tag.
func Bool(v bool) *Tag {
	t := &Tag{kind: TagBool}
	if v {
		t.num = 1
	}
	return t
}

// Byte returns an 8-bit integer tag.
func Byte(v int8) *Tag { return &Tag{kind: TagByte, num: int64(v)} }

// Short returns a 16-bit integer tag.
func Short(v int16) *Tag { return &Tag{kind: TagShort, num: int64(v)} }

// Int returns a 32-bit integer tag.
func Int(v int32) *Tag { return &Tag{kind: TagInt, num: int64(v)} }

// Long returns a 64-bit integer tag.
func Long(v int64) *Tag { return &Tag{kind: TagLong, num: v} }

// Float returns a 32-bit float tag.
func Float(v float32) *Tag { return &Tag{kind: TagFloat, flt: float64(v)} }

// Double returns a 64-bit float tag.
func Double(v float64) *Tag { return &Tag{kind: TagDouble, flt: v} }

// String returns a string tag.
func String(v string) *Tag { return &Tag{kind: TagString, str: v} }

// ByteArray returns a byte array tag that takes ownership of v.
func ByteArray(v []int8) *Tag { return &Tag{kind: TagByteArray, bytes: v} }

// IntArray returns an int array tag that takes ownership of v.
func IntArray(v []int32) *Tag { return &Tag{kind: TagIntArray, ints: v} }

// LongArray returns a long array tag that takes ownership of v.
func LongArray(v []int64) *Tag { return &Tag{kind: TagLongArray, longs: v} }

// List returns a list tag owning elems.
func List(elems ...*Tag) *Tag {
	return &Tag{kind: TagList, list: elems}
}

// Compound returns an empty compound tag.
func Compound() *Tag {
	return &Tag{kind: TagCompound, comp: newCompound()}
}

// Entry is a key/value pair for building compounds.
type Entry struct {
	Key   string
	Value *Tag
}

// CompoundOf returns a compound holding entries in the given order.
func CompoundOf(entries ...Entry) *Tag {
	t := Compound()
	for _, e := range entries {
		t.comp.put(e.Key, e.Value)
	}
	return t
}

// Kind returns the variant held by t. Nil and zero tags report TagNull.
func (t *Tag) Kind() Kind {
	if t == nil || t.kind == TagEnd {
		return TagNull
	}
	return t.kind
}

// IsNull reports whether t holds no value.
func (t *Tag) IsNull() bool { return t.Kind() == TagNull }

func (t *Tag) mismatch(want string) error {
	return fmt.Errorf("%w: %s is not %s", ErrTypeMismatch, t.Kind(), want)
}

// Clone returns a deep copy of t.
func (t *Tag) Clone() *Tag {
	if t == nil {
		return Null()
	}
	c := &Tag{kind: t.kind, num: t.num, flt: t.flt, str: t.str}
	if t.bytes != nil {
		c.bytes = slices.Clone(t.bytes)
	}
	if t.ints != nil {
		c.ints = slices.Clone(t.ints)
	}
	if t.longs != nil {
		c.longs = slices.Clone(t.longs)
	}
	if t.list != nil {
		c.list = make([]*Tag, len(t.list))
		for i, e := range t.list {
			c.list[i] = e.Clone()
		}
	}
	if t.comp != nil {
		c.comp = &compound{
			keys: slices.Clone(t.comp.keys),
			vals: make(map[string]*Tag, len(t.comp.vals)),
		}
		for k, v := range t.comp.vals {
			c.comp.vals[k] = v.Clone()
		}
	}
	return c
}

// Take moves the contents of t into a new tag and leaves t null.
func (t *Tag) Take() *Tag {
	moved := *t
	*t = Tag{}
	return &moved
}

// Replace moves the contents of v into t. v is left null.
func (t *Tag) Replace(v *Tag) {
	if v == nil {
		*t = Tag{}
		return
	}
	*t = *v.Take()
}

// Equal reports whether a and b hold the same tree. Compound key order is
// ignored and floating point values compare by bit pattern.
func Equal(a, b *Tag) bool {
	ka, kb := a.Kind(), b.Kind()
	if ka != kb {
		return false
	}
	switch ka {
	case TagNull:
		return true
	case TagBool, TagByte, TagShort, TagInt, TagLong:
		return a.num == b.num
	case TagFloat, TagDouble:
		return math.Float64bits(a.flt) == math.Float64bits(b.flt)
	case TagString:
		return a.str == b.str
	case TagByteArray:
		return slices.Equal(a.bytes, b.bytes)
	case TagIntArray:
		return slices.Equal(a.ints, b.ints)
	case TagLongArray:
		return slices.Equal(a.longs, b.longs)
	case TagList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case TagCompound:
		if len(a.comp.vals) != len(b.comp.vals) {
			return false
		}
		for k, av := range a.comp.vals {
			bv, ok := b.comp.vals[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}
