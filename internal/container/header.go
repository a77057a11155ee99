package container

import (
	"encoding/binary"
	"fmt"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
)

// Terrain containers carry one magic sequence, hillshade containers
// another, so a reader can reject the wrong kind of file before it even
// looks at the version field.
var (
	terrainMagic   = [5]byte{115, 117, 115, 115, 121} // "sussy"
	hillshadeMagic = [5]byte{98, 117, 115, 115, 121}  // "bussy"
)

const (
	magicSize    = 5
	fixedHdrSize = magicSize + 2 + 2 + 2 + 1 // magic, version, R, H, flags

	flagHasDictionary = 1 << 0

	// CellCount is the number of fixed-size offset-table entries.
	CellCount       = 360 * 180
	offsetEntrySize = 8
)

// Header describes a container's fixed metadata. It is immutable once a
// file is created: a builder reentering an existing file must match it
// exactly (ErrMetadataMismatch otherwise).
type Header struct {
	Hillshade bool
	Version   codec.Format
	// Resolution is R, the side length in samples of each square tile.
	Resolution uint16
	// HeightResolution is H, the metre-per-quantum multiplier.
	HeightResolution uint16
	Dictionary       []byte
}

// HasDictionary reports whether the container carries a trained
// compression dictionary.
func (h *Header) HasDictionary() bool { return len(h.Dictionary) > 0 }

// Size returns the total byte length of the serialized header,
// including the dictionary blob if present, but excluding the offset
// table that immediately follows it.
func (h *Header) Size() int {
	size := fixedHdrSize
	if h.HasDictionary() {
		size += 8 + len(h.Dictionary)
	}
	return size
}

// OffsetTableOffset returns the fixed file offset at which the
// 64,800-entry offset table begins.
func (h *Header) OffsetTableOffset() int64 { return int64(h.Size()) }

// PayloadOffset returns the fixed file offset at which the payload
// region (concatenated compressed tile frames) begins.
func (h *Header) PayloadOffset() int64 {
	return h.OffsetTableOffset() + int64(CellCount*offsetEntrySize)
}

// Serialize writes the header's fixed fields plus, when present, the
// dictionary blob.
func (h *Header) Serialize() []byte {
	buf := make([]byte, h.Size())

	magic := terrainMagic
	if h.Hillshade {
		magic = hillshadeMagic
	}
	copy(buf[0:magicSize], magic[:])

	binary.LittleEndian.PutUint16(buf[5:7], uint16(h.Version))
	binary.LittleEndian.PutUint16(buf[7:9], h.Resolution)
	binary.LittleEndian.PutUint16(buf[9:11], h.HeightResolution)

	var flags byte
	if h.HasDictionary() {
		flags |= flagHasDictionary
	}
	buf[11] = flags

	if h.HasDictionary() {
		binary.LittleEndian.PutUint64(buf[12:20], uint64(len(h.Dictionary)))
		copy(buf[20:], h.Dictionary)
	}

	return buf
}

// DeserializeHeader parses a header from the start of a container file.
// buf must contain at least enough bytes to cover the fixed fields and,
// if the dictionary flag is set, the dictionary length prefix and blob.
func DeserializeHeader(buf []byte) (Header, error) {
	if len(buf) < fixedHdrSize {
		return Header{}, fmt.Errorf("%w: header needs at least %d bytes, have %d", ErrInvalidFileSize, fixedHdrSize, len(buf))
	}

	var h Header
	switch {
	case [5]byte(buf[0:5]) == terrainMagic:
		h.Hillshade = false
	case [5]byte(buf[0:5]) == hillshadeMagic:
		h.Hillshade = true
	default:
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidMagic, buf[0:5])
	}

	version := binary.LittleEndian.Uint16(buf[5:7])
	switch codec.Format(version) {
	case codec.FormatZstd, codec.FormatWebPLossless:
		h.Version = codec.Format(version)
	default:
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedFormatVersion, version)
	}

	h.Resolution = binary.LittleEndian.Uint16(buf[7:9])
	h.HeightResolution = binary.LittleEndian.Uint16(buf[9:11])
	flags := buf[11]

	if flags&flagHasDictionary != 0 {
		if len(buf) < fixedHdrSize+8 {
			return Header{}, fmt.Errorf("%w: truncated dictionary length", ErrInvalidFileSize)
		}
		dictLen := binary.LittleEndian.Uint64(buf[12:20])
		end := 20 + dictLen
		if end > uint64(len(buf)) {
			return Header{}, fmt.Errorf("%w: truncated dictionary blob", ErrInvalidFileSize)
		}
		h.Dictionary = append([]byte(nil), buf[20:end]...)
	}

	return h, nil
}

// Matches reports whether two headers describe reentry-compatible
// containers: same kind, version, R, H, and dictionary identity.
func (h *Header) Matches(other *Header) bool {
	if h.Hillshade != other.Hillshade || h.Version != other.Version {
		return false
	}
	if h.Resolution != other.Resolution || h.HeightResolution != other.HeightResolution {
		return false
	}
	if len(h.Dictionary) != len(other.Dictionary) {
		return false
	}
	for i := range h.Dictionary {
		if h.Dictionary[i] != other.Dictionary[i] {
			return false
		}
	}
	return true
}
