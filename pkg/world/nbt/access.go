package nbt

import (
	"fmt"
	"math"
)

func (t *Tag) integer() (int64, error) {
	switch k := t.Kind(); {
	case k.isInteger(), k == TagBool:
		return t.num, nil
	case k.isFloat():
		return int64(t.flt), nil
	}
	return 0, t.mismatch("numeric")
}

func (t *Tag) float() (float64, error) {
	switch k := t.Kind(); {
	case k.isFloat():
		return t.flt, nil
	case k.isInteger(), k == TagBool:
		return float64(t.num), nil
	}
	return 0, t.mismatch("numeric")
}

// Int8 reads t as an int8, truncating wider numeric values.
func (t *Tag) Int8() (int8, error) {
	v, err := t.integer()
	return int8(v), err
}

// Int16 reads t as an int16, truncating wider numeric values.
func (t *Tag) Int16() (int16, error) {
	v, err := t.integer()
	return int16(v), err
}

// Int32 reads t as an int32, truncating wider numeric values.
func (t *Tag) Int32() (int32, error) {
	v, err := t.integer()
	return int32(v), err
}

// Int64 reads t as an int64.
func (t *Tag) Int64() (int64, error) {
	return t.integer()
}

// Float32 reads t as a float32.
func (t *Tag) Float32() (float32, error) {
	v, err := t.float()
	return float32(v), err
}

// Float64 reads t as a float64.
func (t *Tag) Float64() (float64, error) {
	return t.float()
}

// Bool reads a Bool or Byte tag.
func (t *Tag) Bool() (bool, error) {
	switch t.Kind() {
	case TagBool, TagByte:
		return t.num != 0, nil
	}
	return false, t.mismatch("Bool")
}

// Str reads a String tag.
func (t *Tag) Str() (string, error) {
	if t.Kind() != TagString {
		return "", t.mismatch("String")
	}
	return t.str, nil
}

// Int8s returns the backing slice of a ByteArray tag.
func (t *Tag) Int8s() ([]int8, error) {
	if t.Kind() != TagByteArray {
		return nil, t.mismatch("ByteArray")
	}
	return t.bytes, nil
}

// Int32s returns the backing slice of an IntArray tag.
func (t *Tag) Int32s() ([]int32, error) {
	if t.Kind() != TagIntArray {
		return nil, t.mismatch("IntArray")
	}
	return t.ints, nil
}

// Int64s returns the backing slice of a LongArray tag.
func (t *Tag) Int64s() ([]int64, error) {
	if t.Kind() != TagLongArray {
		return nil, t.mismatch("LongArray")
	}
	return t.longs, nil
}

// Len returns the element count of a list, array, compound or string.
// Other kinds report 0.
func (t *Tag) Len() int {
	switch t.Kind() {
	case TagList:
		return len(t.list)
	case TagCompound:
		return len(t.comp.keys)
	case TagByteArray:
		return len(t.bytes)
	case TagIntArray:
		return len(t.ints)
	case TagLongArray:
		return len(t.longs)
	case TagString:
		return len(t.str)
	}
	return 0
}

// ElemKind returns the element type of a list: the kind of its first element,
// or TagEnd when the list is empty.
func (t *Tag) ElemKind() Kind {
	if t.Kind() != TagList || len(t.list) == 0 {
		return TagEnd
	}
	return t.list[0].Kind()
}

// setNumber stores an integer or float into t, keeping t's numeric kind when it
// already has one and promoting null to want.
func (t *Tag) setNumber(want Kind, i int64, f float64, isFloat bool) error {
	k := t.Kind()
	if k == TagNull {
		k = want
		t.kind = want
	}
	switch {
	case k.isInteger(), k == TagBool:
		if isFloat {
			i = int64(f)
		}
		t.num = narrow(k, i)
	case k.isFloat():
		if !isFloat {
			f = float64(i)
		}
		if k == TagFloat {
			f = float64(float32(f))
		}
		t.flt = f
	default:
		return t.mismatch(want.String())
	}
	return nil
}

func narrow(k Kind, v int64) int64 {
	switch k {
	case TagBool:
		if v != 0 {
			return 1
		}
		return 0
	case TagByte:
		return int64(int8(v))
	case TagShort:
		return int64(int16(v))
	case TagInt:
		return int64(int32(v))
	}
	return v
}

// SetInt8 stores v, promoting a null tag to Byte.
func (t *Tag) SetInt8(v int8) error { return t.setNumber(TagByte, int64(v), 0, false) }

// SetInt16 stores v, promoting a null tag to Short.
func (t *Tag) SetInt16(v int16) error { return t.setNumber(TagShort, int64(v), 0, false) }

// SetInt32 stores v, promoting a null tag to Int.
func (t *Tag) SetInt32(v int32) error { return t.setNumber(TagInt, int64(v), 0, false) }

// SetInt64 stores v, promoting a null tag to Long.
func (t *Tag) SetInt64(v int64) error { return t.setNumber(TagLong, v, 0, false) }

// SetFloat32 stores v, promoting a null tag to Float.
func (t *Tag) SetFloat32(v float32) error { return t.setNumber(TagFloat, 0, float64(v), true) }

// SetFloat64 stores v, promoting a null tag to Double.
func (t *Tag) SetFloat64(v float64) error { return t.setNumber(TagDouble, 0, v, true) }

// SetBool stores v, promoting a null tag to Bool.
func (t *Tag) SetBool(v bool) error {
	var i int64
	if v {
		i = 1
	}
	return t.setNumber(TagBool, i, 0, false)
}

// SetString stores v into a String or null tag.
func (t *Tag) SetString(v string) error {
	switch t.Kind() {
	case TagNull:
		*t = Tag{kind: TagString}
	case TagString:
	default:
		return t.mismatch("String")
	}
	t.str = v
	return nil
}

// SetInt8s stores v into a ByteArray or null tag. The tag takes ownership of v.
func (t *Tag) SetInt8s(v []int8) error {
	switch t.Kind() {
	case TagNull:
		*t = Tag{kind: TagByteArray}
	case TagByteArray:
	default:
		return t.mismatch("ByteArray")
	}
	t.bytes = v
	return nil
}

// SetInt32s stores v into an IntArray or null tag. The tag takes ownership of v.
func (t *Tag) SetInt32s(v []int32) error {
	switch t.Kind() {
	case TagNull:
		*t = Tag{kind: TagIntArray}
	case TagIntArray:
	default:
		return t.mismatch("IntArray")
	}
	t.ints = v
	return nil
}

// SetInt64s stores v into a LongArray or null tag. The tag takes ownership of v.
func (t *Tag) SetInt64s(v []int64) error {
	switch t.Kind() {
	case TagNull:
		*t = Tag{kind: TagLongArray}
	case TagLongArray:
	default:
		return t.mismatch("LongArray")
	}
	t.longs = v
	return nil
}

// At returns element i of a list without modifying it.
func (t *Tag) At(i int) (*Tag, error) {
	if t.Kind() != TagList {
		return nil, t.mismatch("List")
	}
	if i < 0 || i >= len(t.list) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(t.list))
	}
	return t.list[i], nil
}

// Get returns the child stored under key. ok is false when t is not a
// compound or key is absent.
func (t *Tag) Get(key string) (child *Tag, ok bool) {
	if t.Kind() != TagCompound {
		return nil, false
	}
	child, ok = t.comp.vals[key]
	return child, ok
}

// Index returns element i of a list. When i equals the current length a null
// element is appended and returned. A null t becomes an empty list first.
func (t *Tag) Index(i int) (*Tag, error) {
	switch t.Kind() {
	case TagNull:
		*t = Tag{kind: TagList}
	case TagList:
	default:
		return nil, t.mismatch("List")
	}
	switch {
	case i >= 0 && i < len(t.list):
		return t.list[i], nil
	case i == len(t.list):
		e := Null()
		t.list = append(t.list, e)
		return e, nil
	}
	return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(t.list))
}

// Key returns the child stored under key, inserting a null child when absent.
// A null t becomes an empty compound first.
func (t *Tag) Key(key string) (*Tag, error) {
	if err := t.asCompound(); err != nil {
		return nil, err
	}
	if v, ok := t.comp.vals[key]; ok {
		return v, nil
	}
	v := Null()
	t.comp.put(key, v)
	return v, nil
}

func (t *Tag) asCompound() error {
	switch t.Kind() {
	case TagNull:
		*t = Tag{kind: TagCompound, comp: newCompound()}
	case TagCompound:
	default:
		return t.mismatch("Compound")
	}
	return nil
}

// Put stores v under key, replacing any previous child.
func (t *Tag) Put(key string, v *Tag) error {
	if err := t.asCompound(); err != nil {
		return err
	}
	if v == nil {
		v = Null()
	}
	t.comp.put(key, v)
	return nil
}

// Delete removes key from a compound and reports whether it was present.
func (t *Tag) Delete(key string) bool {
	if t.Kind() != TagCompound {
		return false
	}
	return t.comp.remove(key)
}

// Keys returns compound keys in insertion order.
func (t *Tag) Keys() []string {
	if t.Kind() != TagCompound {
		return nil
	}
	return append([]string(nil), t.comp.keys...)
}

// Append adds v to the end of a list. A null t becomes a list first.
func (t *Tag) Append(v *Tag) error {
	switch t.Kind() {
	case TagNull:
		*t = Tag{kind: TagList}
	case TagList:
	default:
		return t.mismatch("List")
	}
	if v == nil {
		v = Null()
	}
	t.list = append(t.list, v)
	return nil
}

// Elems returns the list children. The slice is shared with t.
func (t *Tag) Elems() ([]*Tag, error) {
	if t.Kind() != TagList {
		return nil, t.mismatch("List")
	}
	return t.list, nil
}

// Path follows compound keys from t and returns the final child.
func (t *Tag) Path(keys ...string) (*Tag, bool) {
	cur := t
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// String renders t for debugging.
func (t *Tag) String() string {
	switch k := t.Kind(); k {
	case TagNull:
		return "null"
	case TagBool:
		return fmt.Sprintf("%t", t.num != 0)
	case TagByte:
		return fmt.Sprintf("%db", t.num)
	case TagShort:
		return fmt.Sprintf("%ds", t.num)
	case TagInt:
		return fmt.Sprintf("%d", t.num)
	case TagLong:
		return fmt.Sprintf("%dL", t.num)
	case TagFloat:
		return fmt.Sprintf("%gf", t.flt)
	case TagDouble:
		if t.flt == math.Trunc(t.flt) {
			return fmt.Sprintf("%.1fd", t.flt)
		}
		return fmt.Sprintf("%gd", t.flt)
	case TagString:
		return fmt.Sprintf("%q", t.str)
	case TagByteArray:
		return fmt.Sprintf("[B;%v]", t.bytes)
	case TagIntArray:
		return fmt.Sprintf("[I;%v]", t.ints)
	case TagLongArray:
		return fmt.Sprintf("[L;%d longs]", len(t.longs))
	case TagList:
		s := "["
		for i, e := range t.list {
			if i > 0 {
				s += ","
			}
			s += e.String()
		}
		return s + "]"
	case TagCompound:
		s := "{"
		for i, key := range t.comp.keys {
			if i > 0 {
				s += ","
			}
			s += key + ":" + t.comp.vals[key].String()
		}
		return s + "}"
	default:
		return k.String()
	}
}
