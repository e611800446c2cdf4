// Package anvil reads and writes sectored region (.mca) files.
package anvil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OCharnyshevich/voxelmerge/pkg/bestream"
	"github.com/OCharnyshevich/voxelmerge/pkg/world/chunk"
)

const (
	sectorSize      = 4096
	headerSectors   = 2 // location table + timestamp table
	headerSize      = headerSectors * sectorSize
	compressionZlib = 2
	maxSectorCount  = 255
)

var (
	// ErrNotFound is returned by Load when the region file does not exist.
	// Callers treat the region as having no columns.
	ErrNotFound = errors.New("anvil: region file not found")

	// ErrCorruptColumn marks a directory entry or payload that cannot be read
	// or written.
	ErrCorruptColumn = errors.New("anvil: corrupt column")

	// ErrUnsupportedCompression marks a payload using a method other than zlib.
	ErrUnsupportedCompression = errors.New("anvil: unsupported compression")
)

// CorruptColumn records a column slot that was skipped.
type CorruptColumn struct {
	LocalX, LocalZ int
	Err            error
}

func (c CorruptColumn) Error() string {
	return fmt.Sprintf("column %d,%d: %v", c.LocalX, c.LocalZ, c.Err)
}

func (c CorruptColumn) Unwrap() error { return c.Err }

// Region is a 32x32 grid of columns sharing a region coordinate.
type Region struct {
	X, Z    int
	Columns [chunk.RegionColumns]*chunk.Column
	Corrupt []CorruptColumn
}

// NewRegion returns an empty region at (rx, rz).
func NewRegion(rx, rz int) *Region {
	return &Region{X: rx, Z: rz}
}

// Path returns the file name of region (rx, rz) inside dir.
func Path(dir string, rx, rz int) string {
	return filepath.Join(dir, fmt.Sprintf("r.%d.%d.mca", rx, rz))
}

// Origin returns the block origin of the column in slot (localX, localZ).
func (r *Region) Origin(localX, localZ int) (x, z int) {
	return (r.X*chunk.RegionWidth + localX) * chunk.Width, (r.Z*chunk.RegionWidth + localZ) * chunk.Width
}

// Put stores c in its slot. The column must belong to this region.
func (r *Region) Put(c *chunk.Column) error {
	rx, rz := c.RegionCoords()
	if rx != r.X || rz != r.Z {
		return fmt.Errorf("column (%d,%d) belongs to region (%d,%d), not (%d,%d)", c.X, c.Z, rx, rz, r.X, r.Z)
	}
	r.Columns[c.LocalIndex()] = c
	return nil
}

// Len returns the number of present columns.
func (r *Region) Len() int {
	n := 0
	for _, c := range r.Columns {
		if c != nil {
			n++
		}
	}
	return n
}

// ForEach calls fn for every slot, local x outer and local z inner. c is nil
// for absent columns.
func (r *Region) ForEach(fn func(localX, localZ int, c *chunk.Column) error) error {
	for lx := range chunk.RegionWidth {
		for lz := range chunk.RegionWidth {
			if err := fn(lx, lz, r.Columns[lx+lz*chunk.RegionWidth]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads the region file at path. Unreadable columns are recorded in
// Region.Corrupt and left absent.
func Load(path string, rx, rz int) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read region file: %w", err)
	}
	// The game leaves zero-byte region files behind; they hold nothing.
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNotFound, path)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("region file %s: header truncated at %d bytes", path, len(data))
	}

	r := NewRegion(rx, rz)
	s := bestream.New(data)
	for slot := range chunk.RegionColumns {
		lx, lz := slot%chunk.RegionWidth, slot/chunk.RegionWidth

		payload, err := readColumn(s, slot)
		if err != nil {
			r.Corrupt = append(r.Corrupt, CorruptColumn{LocalX: lx, LocalZ: lz, Err: err})
			continue
		}
		if payload == nil {
			continue
		}
		x, z := r.Origin(lx, lz)
		r.Columns[slot] = &chunk.Column{X: x, Z: z, Data: payload, Compressed: true}
	}
	return r, nil
}

// readColumn returns the compressed payload of slot, or nil when the slot is
// empty.
func readColumn(s *bestream.Stream, slot int) ([]byte, error) {
	if err := s.Seek(slot * 4); err != nil {
		return nil, err
	}
	offset, err := s.ReadUint24()
	if err != nil {
		return nil, err
	}
	count, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	if offset == 0 && count == 0 {
		return nil, nil
	}
	if offset < headerSectors || count == 0 {
		return nil, fmt.Errorf("%w: entry offset %d count %d", ErrCorruptColumn, offset, count)
	}

	start := int(offset) * sectorSize
	if err := s.Seek(start); err != nil {
		return nil, fmt.Errorf("%w: offset %d past end of file", ErrCorruptColumn, offset)
	}
	length, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptColumn, err)
	}
	if length == 0 || uint64(length)+4 > uint64(count)*sectorSize {
		return nil, fmt.Errorf("%w: length %d does not fit %d sectors", ErrCorruptColumn, length, count)
	}
	method, err := s.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptColumn, err)
	}
	if method != compressionZlib {
		return nil, fmt.Errorf("%w: %w: method %d", ErrCorruptColumn, ErrUnsupportedCompression, method)
	}
	payload, err := s.ReadBytes(int(length) - 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptColumn, err)
	}
	return bytes.Clone(payload), nil
}

// Save writes r to path. Raw columns are compressed first. Columns whose
// payload is empty are left absent, and columns that cannot be stored are
// returned as skipped. No file is written when nothing is persisted.
func Save(path string, r *Region) (skipped []CorruptColumn, err error) {
	header := bestream.New(make([]byte, headerSize))
	now := uint32(time.Now().Unix())

	// Each column's data: 4 bytes length + 1 byte compression type + compressed data,
	// padded to sector boundary.
	var dataBuf bytes.Buffer
	currentSector := uint32(headerSectors)

	for slot, c := range r.Columns {
		if c == nil {
			continue
		}
		lx, lz := slot%chunk.RegionWidth, slot/chunk.RegionWidth
		if err := c.Compress(); err != nil {
			skipped = append(skipped, CorruptColumn{LocalX: lx, LocalZ: lz, Err: fmt.Errorf("%w: %w", ErrCorruptColumn, err)})
			continue
		}
		if len(c.Data) == 0 {
			continue
		}

		payloadLen := uint32(len(c.Data)) + 1 // +1 for compression byte
		totalLen := 4 + payloadLen            // 4 for the length field itself
		sectorCount := (totalLen + sectorSize - 1) / sectorSize
		if sectorCount > maxSectorCount {
			skipped = append(skipped, CorruptColumn{LocalX: lx, LocalZ: lz,
				Err: fmt.Errorf("%w: %d bytes need %d sectors", ErrCorruptColumn, totalLen, sectorCount)})
			continue
		}

		// Location entry: 3-byte sector offset, 1-byte sector count.
		if err := header.Seek(slot * 4); err != nil {
			return skipped, err
		}
		if err := header.WriteUint24(currentSector); err != nil {
			return skipped, fmt.Errorf("region too large: %w", err)
		}
		if err := header.WriteUint8(uint8(sectorCount)); err != nil {
			return skipped, err
		}
		if err := header.Seek(sectorSize + slot*4); err != nil {
			return skipped, err
		}
		if err := header.WriteUint32(now); err != nil {
			return skipped, err
		}

		var prefix [5]byte
		p := bestream.New(prefix[:])
		_ = p.WriteUint32(payloadLen)
		_ = p.WriteUint8(compressionZlib)
		dataBuf.Write(prefix[:])
		dataBuf.Write(c.Data)

		// Pad to sector boundary.
		if pad := int(sectorCount)*sectorSize - int(totalLen); pad > 0 {
			dataBuf.Write(make([]byte, pad))
		}

		currentSector += sectorCount
	}

	if dataBuf.Len() == 0 {
		return skipped, nil
	}
	if err := writeAtomic(path, header.Bytes(), dataBuf.Bytes()); err != nil {
		return skipped, err
	}
	return skipped, nil
}

func writeAtomic(path string, header, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create region dir: %w", err)
	}
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp region file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmp)
	}()

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write column data: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close region file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename region file: %w", err)
	}

	return nil
}
