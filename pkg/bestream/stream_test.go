package bestream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBigEndian(t *testing.T) {
	s := New([]byte{
		0x01,
		0x01, 0x02,
		0x01, 0x02, 0x03,
		0x01, 0x02, 0x03, 0x04,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	})

	u8, err := s.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), u8)

	u16, err := s.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), u16)

	u24, err := s.ReadUint24()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x010203), u24)

	u32, err := s.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), u32)

	u64, err := s.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	assert.Equal(t, 0, s.Remaining())
}

func TestReadPastEnd(t *testing.T) {
	s := New([]byte{0x00, 0x05, 'a', 'b'})

	_, err := s.ReadString()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	s = New([]byte{0x01})
	_, err = s.ReadUint32()
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, 0, s.Offset(), "failed read must not move the cursor")
}

func TestWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 2+3+8+2+5)
	w := New(buf)
	require.NoError(t, w.WriteUint16(0xBEEF))
	require.NoError(t, w.WriteUint24(0x0A0B0C))
	require.NoError(t, w.WriteUint64(0xFFFFFFFFFFFFFFFF))
	require.NoError(t, w.WriteUint16(5))
	require.NoError(t, w.WriteBytes([]byte("hello")))
	assert.ErrorIs(t, w.WriteUint8(1), ErrOutOfRange)

	r := New(buf)
	v16, _ := r.ReadUint16()
	v24, _ := r.ReadUint24()
	v64, _ := r.ReadUint64()
	str, err := r.ReadString()
	require.NoError(t, err)

	assert.Equal(t, uint16(0xBEEF), v16)
	assert.Equal(t, uint32(0x0A0B0C), v24)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), v64)
	assert.Equal(t, "hello", str)
}

func TestWriteUint24Overflow(t *testing.T) {
	s := New(make([]byte, 3))
	assert.ErrorIs(t, s.WriteUint24(1<<24), ErrOutOfRange)
}

func TestSeekAndSkip(t *testing.T) {
	s := New(make([]byte, 10))
	require.NoError(t, s.Seek(8))
	assert.Equal(t, 2, s.Remaining())
	assert.ErrorIs(t, s.Skip(3), ErrOutOfRange)
	require.NoError(t, s.Skip(2))
	assert.ErrorIs(t, s.Seek(11), ErrOutOfRange)
}
