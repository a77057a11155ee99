package container

import (
	"encoding/binary"
	"fmt"
)

// OffsetTable is the 64,800-entry array mapping a cell index to the
// absolute file offset of that cell's compressed tile frame, or 0 if
// the cell is absent. It is read/written with encoding/binary rather
// than an unsafe []byte reinterpretation (see the design notes on why
// this implementation departs from the original's in-place cast).
type OffsetTable [CellCount]uint64

// DecodeOffsetTable parses a serialized offset table from buf, which
// must be exactly CellCount*8 bytes.
func DecodeOffsetTable(buf []byte) (*OffsetTable, error) {
	want := CellCount * offsetEntrySize
	if len(buf) != want {
		return nil, fmt.Errorf("%w: offset table is %d bytes, want %d", ErrInvalidFileSize, len(buf), want)
	}
	var t OffsetTable
	for i := 0; i < CellCount; i++ {
		t[i] = binary.LittleEndian.Uint64(buf[i*offsetEntrySize : (i+1)*offsetEntrySize])
	}
	return &t, nil
}

// Serialize writes the table back to its on-disk byte representation.
func (t *OffsetTable) Serialize() []byte {
	buf := make([]byte, CellCount*offsetEntrySize)
	for i, v := range t {
		binary.LittleEndian.PutUint64(buf[i*offsetEntrySize:(i+1)*offsetEntrySize], v)
	}
	return buf
}

// Count returns the number of non-zero (present) entries.
func (t *OffsetTable) Count() int {
	n := 0
	for _, v := range t {
		if v != 0 {
			n++
		}
	}
	return n
}
