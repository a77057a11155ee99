package container

import (
	"fmt"
	"os"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
	"github.com/synaptic-terrain/terrainengine/internal/coord"
)

// Reader is a read-only, memory-mapped view of a terrain or hillshade
// container. Opening one maps the payload region once; tile lookups
// afterward are pointer arithmetic against the offset table, not
// syscalls.
type Reader struct {
	path   string
	file   *os.File
	header Header
	offs   *OffsetTable

	mapped     []byte // full mmap region, from file offset 0
	data       []byte // mapped payload region, starting at header.PayloadOffset()
	dataOffset int64  // absolute file offset data[0] corresponds to
}

// Open maps path read-only and parses its header and offset table.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()

	// Header length isn't known until we've peeked the fixed prefix, so
	// read just that prefix first, then the dictionary length when the
	// flag says one follows, and only then the full header.
	peekLen := fixedHdrSize
	if size < int64(peekLen) {
		f.Close()
		return nil, fmt.Errorf("%w: file is only %d bytes", ErrInvalidFileSize, size)
	}
	peek := make([]byte, peekLen)
	if _, err := f.ReadAt(peek, 0); err != nil {
		f.Close()
		return nil, err
	}

	flags := peek[11]
	fullHdrLen := int64(fixedHdrSize)
	if flags&flagHasDictionary != 0 {
		if size < fullHdrLen+8 {
			f.Close()
			return nil, fmt.Errorf("%w: truncated dictionary length", ErrInvalidFileSize)
		}
		lenBuf := make([]byte, 8)
		if _, err := f.ReadAt(lenBuf, fullHdrLen); err != nil {
			f.Close()
			return nil, err
		}
		dictLen := int64(lenBuf[0]) | int64(lenBuf[1])<<8 | int64(lenBuf[2])<<16 | int64(lenBuf[3])<<24 |
			int64(lenBuf[4])<<32 | int64(lenBuf[5])<<40 | int64(lenBuf[6])<<48 | int64(lenBuf[7])<<56
		fullHdrLen += 8 + dictLen
	}

	hdrBuf := make([]byte, fullHdrLen)
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		f.Close()
		return nil, err
	}
	header, err := DeserializeHeader(hdrBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	offTableOffset := header.OffsetTableOffset()
	offTableEnd := header.PayloadOffset()
	if size < offTableEnd {
		f.Close()
		return nil, fmt.Errorf("%w: file truncated before offset table ends", ErrInvalidFileSize)
	}
	offBuf := make([]byte, CellCount*offsetEntrySize)
	if _, err := f.ReadAt(offBuf, offTableOffset); err != nil {
		f.Close()
		return nil, err
	}
	offs, err := DecodeOffsetTable(offBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	var mapped, payload []byte
	if size > offTableEnd {
		mapped, err = mmapFile(f.Fd(), int(size))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("container: mmap failed: %w", err)
		}
		payload = mapped[offTableEnd:]
	}

	return &Reader{
		path:       path,
		file:       f,
		header:     header,
		offs:       offs,
		mapped:     mapped,
		data:       payload,
		dataOffset: offTableEnd,
	}, nil
}

// Close unmaps the payload region and closes the underlying file.
func (r *Reader) Close() error {
	var err error
	if r.mapped != nil {
		err = munmapFile(r.mapped)
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Header returns the container's metadata.
func (r *Reader) Header() Header { return r.header }

// Path returns the path the container was opened from.
func (r *Reader) Path() string { return r.path }

// TileCount returns the number of present tiles.
func (r *Reader) TileCount() int { return r.offs.Count() }

// TileExists reports whether a tile is present for the given cell.
func (r *Reader) TileExists(lat, lon int) (bool, error) {
	idx, err := coord.CellIndex(lat, lon)
	if err != nil {
		return false, err
	}
	return r.offs[idx] != 0, nil
}

// rawTileBytes returns the compressed frame bytes for a cell, without
// decoding them. Returns ok=false if the cell is absent.
func (r *Reader) rawTileBytes(idx int) (frame []byte, ok bool, err error) {
	absOffset := r.offs[idx]
	if absOffset == 0 {
		return nil, false, nil
	}
	rel := int64(absOffset) - r.dataOffset
	if rel < 0 || rel >= int64(len(r.data)) {
		return nil, false, fmt.Errorf("%w: offset table entry %d out of bounds", ErrCorruptFraming, absOffset)
	}
	if r.header.Version == codec.FormatWebPLossless {
		// Legacy tiles are RIFF files: "RIFF", a little-endian chunk
		// size, then that many bytes.
		d := r.data[rel:]
		if len(d) < 8 || string(d[:4]) != "RIFF" {
			return nil, false, fmt.Errorf("%w: legacy WebP tile at %d has no RIFF header", ErrCorruptFraming, absOffset)
		}
		if n := 8 + (int64(d[4]) | int64(d[5])<<8 | int64(d[6])<<16 | int64(d[7])<<24); n <= int64(len(d)) {
			return d[:n], true, nil
		}
		return nil, false, fmt.Errorf("%w: legacy WebP tile at %d is truncated", ErrCorruptFraming, absOffset)
	}
	n, err := zstdFrameLength(r.data[rel:])
	if err != nil {
		return nil, false, err
	}
	return r.data[rel : rel+int64(n)], true, nil
}

// GetRawTileBytes returns the compressed frame bytes for a cell without
// decoding, for dictionary training or byte-identical copy into another
// container. ok is false if the cell is absent.
func (r *Reader) GetRawTileBytes(lat, lon int) (frame []byte, ok bool, err error) {
	idx, err := coord.CellIndex(lat, lon)
	if err != nil {
		return nil, false, err
	}
	return r.rawTileBytes(idx)
}

// GetTile decodes and returns the R*R height grid for a cell. ok is
// false if the cell is absent.
func (r *Reader) GetTile(lat, lon int) (heights []float32, ok bool, err error) {
	idx, err := coord.CellIndex(lat, lon)
	if err != nil {
		return nil, false, err
	}
	frame, ok, err := r.rawTileBytes(idx)
	if err != nil || !ok {
		return nil, ok, err
	}
	heights, err = codec.DecodeTile(frame, int(r.header.Resolution), float64(r.header.HeightResolution), r.header.Version, r.header.Dictionary)
	if err != nil {
		return nil, true, err
	}
	return heights, true, nil
}

// Orphan describes a payload byte range that the offset table does not
// point to: bytes present in the file but unreachable from any cell,
// left behind by a writer that appended a replacement tile without
// reclaiming the old one's space.
type Orphan struct {
	Offset int64
	Length int64
}

// EnumerateOrphans walks the payload region frame by frame using
// zstd's self-describing frame/block headers (no tile decoding
// required) and reports every byte range not referenced by the offset
// table. It is a diagnostic: a writer that adds each cell once leaves
// no orphans, but writing a cell that already holds a tile (AddTile or
// AddTileFromDataset over an existing cell, or manual repair of the
// offset table) leaves the old frame's bytes stranded.
func (r *Reader) EnumerateOrphans() ([]Orphan, error) {
	if r.header.Version != codec.FormatZstd {
		return nil, fmt.Errorf("container: orphan enumeration requires zstd-framed tiles")
	}

	referenced := make(map[int64]bool, r.offs.Count())
	for _, off := range r.offs {
		if off != 0 {
			referenced[int64(off)-r.dataOffset] = true
		}
	}

	var orphans []Orphan
	pos := int64(0)
	for pos < int64(len(r.data)) {
		n, err := zstdFrameLength(r.data[pos:])
		if err != nil {
			return orphans, fmt.Errorf("container: frame walk stopped at payload offset %d: %w", pos, err)
		}
		if !referenced[pos] {
			orphans = append(orphans, Orphan{Offset: r.dataOffset + pos, Length: int64(n)})
		}
		pos += int64(n)
	}
	return orphans, nil
}
