// Package bestream implements a bounds-checked big-endian cursor over a
// fixed-size byte buffer.
package bestream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a read or write would cross the end of the buffer.
var ErrOutOfRange = errors.New("bestream: out of range")

// Stream reads and writes big-endian values at a moving offset.
// The buffer never grows; every access is checked against its length.
type Stream struct {
	buf []byte
	off int
}

// New wraps buf. Reads start at offset 0.
func New(buf []byte) *Stream {
	return &Stream{buf: buf}
}

// Offset returns the current cursor position.
func (s *Stream) Offset() int { return s.off }

// Len returns the size of the underlying buffer.
func (s *Stream) Len() int { return len(s.buf) }

// Remaining returns the number of bytes between the cursor and the end.
func (s *Stream) Remaining() int { return len(s.buf) - s.off }

// Bytes returns the underlying buffer.
func (s *Stream) Bytes() []byte { return s.buf }

// Seek moves the cursor to an absolute offset.
func (s *Stream) Seek(off int) error {
	if off < 0 || off > len(s.buf) {
		return fmt.Errorf("%w: seek to %d of %d", ErrOutOfRange, off, len(s.buf))
	}
	s.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (s *Stream) Skip(n int) error {
	if err := s.need(n); err != nil {
		return err
	}
	s.off += n
	return nil
}

func (s *Stream) need(n int) error {
	if n < 0 || n > len(s.buf)-s.off {
		return fmt.Errorf("%w: need %d bytes at %d of %d", ErrOutOfRange, n, s.off, len(s.buf))
	}
	return nil
}

// ReadUint8 reads one byte.
func (s *Stream) ReadUint8() (uint8, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	v := s.buf[s.off]
	s.off++
	return v, nil
}

// ReadUint16 reads a big-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if err := s.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(s.buf[s.off:])
	s.off += 2
	return v, nil
}

// ReadUint24 reads a 3-byte big-endian unsigned integer.
func (s *Stream) ReadUint24() (uint32, error) {
	if err := s.need(3); err != nil {
		return 0, err
	}
	b := s.buf[s.off : s.off+3]
	s.off += 3
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadUint32 reads a big-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if err := s.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(s.buf[s.off:])
	s.off += 4
	return v, nil
}

// ReadUint64 reads a big-endian uint64.
func (s *Stream) ReadUint64() (uint64, error) {
	if err := s.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(s.buf[s.off:])
	s.off += 8
	return v, nil
}

// ReadFloat32 reads an IEEE-754 single.
func (s *Stream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE-754 double.
func (s *Stream) ReadFloat64() (float64, error) {
	v, err := s.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes returns the next n bytes. The slice aliases the buffer.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if err := s.need(n); err != nil {
		return nil, err
	}
	b := s.buf[s.off : s.off+n : s.off+n]
	s.off += n
	return b, nil
}

// ReadString reads a uint16 length followed by that many bytes.
func (s *Stream) ReadString() (string, error) {
	n, err := s.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteUint8 writes one byte.
func (s *Stream) WriteUint8(v uint8) error {
	if err := s.need(1); err != nil {
		return err
	}
	s.buf[s.off] = v
	s.off++
	return nil
}

// WriteUint16 writes a big-endian uint16.
func (s *Stream) WriteUint16(v uint16) error {
	if err := s.need(2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(s.buf[s.off:], v)
	s.off += 2
	return nil
}

// WriteUint24 writes the low 24 bits of v big-endian.
func (s *Stream) WriteUint24(v uint32) error {
	if v > 0xFFFFFF {
		return fmt.Errorf("%w: %d does not fit in 24 bits", ErrOutOfRange, v)
	}
	if err := s.need(3); err != nil {
		return err
	}
	s.buf[s.off] = byte(v >> 16)
	s.buf[s.off+1] = byte(v >> 8)
	s.buf[s.off+2] = byte(v)
	s.off += 3
	return nil
}

// WriteUint32 writes a big-endian uint32.
func (s *Stream) WriteUint32(v uint32) error {
	if err := s.need(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(s.buf[s.off:], v)
	s.off += 4
	return nil
}

// WriteUint64 writes a big-endian uint64.
func (s *Stream) WriteUint64(v uint64) error {
	if err := s.need(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(s.buf[s.off:], v)
	s.off += 8
	return nil
}

// WriteBytes copies b at the cursor.
func (s *Stream) WriteBytes(b []byte) error {
	if err := s.need(len(b)); err != nil {
		return err
	}
	s.off += copy(s.buf[s.off:], b)
	return nil
}

// Write implements io.Writer over the fixed buffer. A write that does not fit
// fails without copying anything.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.WriteBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
