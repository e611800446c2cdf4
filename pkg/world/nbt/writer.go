package nbt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer writes NBT binary data to an io.Writer in big-endian format.
// All write methods accumulate errors internally; call Err() after writing
// to check for failures.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter creates a new NBT Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered during writing.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) write(data []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(data)
}

func (w *Writer) putByte(v byte) {
	w.write([]byte{v})
}

func (w *Writer) putUint16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.write(buf[:])
}

func (w *Writer) putInt32(v int32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	w.write(buf[:])
}

func (w *Writer) putInt64(v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	w.write(buf[:])
}

func (w *Writer) putString(s string) {
	if len(s) > math.MaxUint16 {
		w.fail(fmt.Errorf("nbt: string of %d bytes exceeds 65535", len(s)))
		return
	}
	w.putUint16(uint16(len(s)))
	if len(s) > 0 {
		w.write([]byte(s))
	}
}

func (w *Writer) putLength(n int) {
	if n > math.MaxInt32 {
		w.fail(fmt.Errorf("nbt: length %d exceeds int32", n))
		return
	}
	w.putInt32(int32(n))
}

func (w *Writer) writeTagHeader(tagType Kind, name string) {
	w.putByte(byte(tagType))
	w.putString(name)
}

// BeginCompound writes a compound tag header. Use name="" for list elements.
func (w *Writer) BeginCompound(name string) {
	w.writeTagHeader(TagCompound, name)
}

// EndCompound writes an End tag to close a compound.
func (w *Writer) EndCompound() {
	w.putByte(byte(TagEnd))
}

// WriteTagByte writes a named byte tag.
func (w *Writer) WriteTagByte(name string, v byte) {
	w.writeTagHeader(TagByte, name)
	w.putByte(v)
}

// WriteBool writes a named boolean tag.
func (w *Writer) WriteBool(name string, v bool) {
	w.writeTagHeader(TagBool, name)
	if v {
		w.putByte(1)
	} else {
		w.putByte(0)
	}
}

// WriteShort writes a named short tag.
func (w *Writer) WriteShort(name string, v int16) {
	w.writeTagHeader(TagShort, name)
	w.putUint16(uint16(v))
}

// WriteInt writes a named int tag.
func (w *Writer) WriteInt(name string, v int32) {
	w.writeTagHeader(TagInt, name)
	w.putInt32(v)
}

// WriteLong writes a named long tag.
func (w *Writer) WriteLong(name string, v int64) {
	w.writeTagHeader(TagLong, name)
	w.putInt64(v)
}

// WriteFloat writes a named float tag.
func (w *Writer) WriteFloat(name string, v float32) {
	w.writeTagHeader(TagFloat, name)
	w.putInt32(int32(math.Float32bits(v)))
}

// WriteDouble writes a named double tag.
func (w *Writer) WriteDouble(name string, v float64) {
	w.writeTagHeader(TagDouble, name)
	w.putInt64(int64(math.Float64bits(v)))
}

// WriteByteArray writes a named byte array tag.
func (w *Writer) WriteByteArray(name string, v []byte) {
	w.writeTagHeader(TagByteArray, name)
	w.putLength(len(v))
	w.write(v)
}

// WriteString writes a named string tag.
func (w *Writer) WriteString(name string, v string) {
	w.writeTagHeader(TagString, name)
	w.putString(v)
}

// WriteIntArray writes a named int array tag.
func (w *Writer) WriteIntArray(name string, v []int32) {
	w.writeTagHeader(TagIntArray, name)
	w.putLength(len(v))
	for _, val := range v {
		w.putInt32(val)
	}
}

// WriteLongArray writes a named long array tag.
func (w *Writer) WriteLongArray(name string, v []int64) {
	w.writeTagHeader(TagLongArray, name)
	w.putLength(len(v))
	for _, val := range v {
		w.putInt64(val)
	}
}

// BeginList writes a named list tag header.
func (w *Writer) BeginList(name string, elemType Kind, count int32) {
	w.writeTagHeader(TagList, name)
	w.putByte(byte(elemType))
	w.putInt32(count)
}

// WriteTag writes t as a named tag. Null tags are skipped.
func (w *Writer) WriteTag(name string, t *Tag) {
	if t.IsNull() {
		return
	}
	w.writeTagHeader(t.Kind(), name)
	w.writePayload(t)
}

func (w *Writer) writePayload(t *Tag) {
	if w.err != nil {
		return
	}
	switch t.Kind() {
	case TagByte, TagBool:
		w.putByte(byte(t.num))
	case TagShort:
		w.putUint16(uint16(t.num))
	case TagInt:
		w.putInt32(int32(t.num))
	case TagLong:
		w.putInt64(t.num)
	case TagFloat:
		w.putInt32(int32(math.Float32bits(float32(t.flt))))
	case TagDouble:
		w.putInt64(int64(math.Float64bits(t.flt)))
	case TagString:
		w.putString(t.str)
	case TagByteArray:
		w.putLength(len(t.bytes))
		raw := make([]byte, len(t.bytes))
		for i, v := range t.bytes {
			raw[i] = byte(v)
		}
		w.write(raw)
	case TagIntArray:
		w.putLength(len(t.ints))
		for _, v := range t.ints {
			w.putInt32(v)
		}
	case TagLongArray:
		w.putLength(len(t.longs))
		for _, v := range t.longs {
			w.putInt64(v)
		}
	case TagList:
		elem := t.ElemKind()
		for i, e := range t.list {
			if e.Kind() != elem || elem == TagNull {
				w.fail(fmt.Errorf("%w: list element %d is %s, list holds %s", ErrTypeMismatch, i, e.Kind(), elem))
				return
			}
		}
		w.putByte(byte(elem))
		w.putLength(len(t.list))
		for _, e := range t.list {
			w.writePayload(e)
		}
	case TagCompound:
		for _, key := range t.comp.keys {
			w.WriteTag(key, t.comp.vals[key])
		}
		w.EndCompound()
	default:
		w.fail(fmt.Errorf("%w: cannot write %s", ErrTypeMismatch, t.Kind()))
	}
}
