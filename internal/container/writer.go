package container

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
	"github.com/synaptic-terrain/terrainengine/internal/coord"
)

// Writer is a builder for a terrain or hillshade container. It appends
// new tile frames at EOF and never rewrites or reclaims existing
// payload bytes, so a reader can keep mapping the file while a writer
// grows it. A single mutex guards the offset table and the file's
// write position together, since the two must move in lockstep: a tile
// is visible to readers the instant its offset-table entry is
// non-zero, so the entry must not be published until its bytes have
// been durably appended.
type Writer struct {
	mu     sync.RWMutex
	file   *os.File
	header Header
	offs   OffsetTable
	end    int64 // next append position, absolute file offset
}

// Create opens a new container file for writing, serializing header
// and a zeroed offset table immediately.
func Create(path string, header Header) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	hdrBuf := header.Serialize()
	if _, err := f.WriteAt(hdrBuf, 0); err != nil {
		f.Close()
		return nil, err
	}

	var offs OffsetTable
	if _, err := f.WriteAt(offs.Serialize(), header.OffsetTableOffset()); err != nil {
		f.Close()
		return nil, err
	}

	return &Writer{
		file:   f,
		header: header,
		offs:   offs,
		end:    header.PayloadOffset(),
	}, nil
}

// OpenForAppend reopens an existing container for incremental writes.
// The new header must match the file's existing header exactly
// (ErrMetadataMismatch otherwise): a container's R, H, format, and
// dictionary are fixed for its lifetime.
func OpenForAppend(path string, header Header) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	hdrBuf := make([]byte, header.Size())
	if _, err := f.ReadAt(hdrBuf, 0); err != nil {
		f.Close()
		return nil, err
	}
	existing, err := DeserializeHeader(hdrBuf)
	if err != nil {
		f.Close()
		return nil, err
	}
	if !existing.Matches(&header) {
		f.Close()
		return nil, ErrMetadataMismatch
	}

	offBuf := make([]byte, CellCount*offsetEntrySize)
	if _, err := f.ReadAt(offBuf, existing.OffsetTableOffset()); err != nil {
		f.Close()
		return nil, err
	}
	offs, err := DecodeOffsetTable(offBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	end := existing.PayloadOffset()
	if info.Size() > end {
		end = info.Size()
	}

	return &Writer{
		file:   f,
		header: existing,
		offs:   *offs,
		end:    end,
	}, nil
}

// TileExists reports whether a cell already has a tile, under the read
// lock so it can run concurrently with other readers of the table.
func (w *Writer) TileExists(lat, lon int) (bool, error) {
	idx, err := coord.CellIndex(lat, lon)
	if err != nil {
		return false, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.offs[idx] != 0, nil
}

// TileCount returns the number of present tiles.
func (w *Writer) TileCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.offs.Count()
}

// AddTile encodes heights and appends the resulting frame, publishing
// its offset-table entry only after the bytes are durably written. If
// the cell already held a tile, the old frame's bytes are left in place
// but orphaned: the offset table now points at the new frame, and the
// old bytes are only reachable via EnumerateOrphans. The container is
// append-only in the sense that it never rewrites or reclaims payload
// bytes in place, not in the sense that a cell can only be written once.
func (w *Writer) AddTile(lat, lon int, heights []float32) error {
	idx, err := coord.CellIndex(lat, lon)
	if err != nil {
		return err
	}

	frame, err := codec.EncodeTile(heights, int(w.header.Resolution), float64(w.header.HeightResolution), w.header.Dictionary)
	if err != nil {
		return err
	}

	return w.addFrame(idx, frame)
}

// AddTileFromDataset copies a tile's already-encoded frame verbatim
// from src, the fast path for reconciling one container's tiles into
// another (or rebuilding a container under a new dictionary) without a
// decode/re-encode round trip. src's header must match this writer's
// own exactly (version, R, H, dictionary identity) or the copy is
// refused with ErrDictionaryMismatch: a byte-identical frame copy is
// only valid between containers whose entropy stage was configured
// identically. Returns ok=false if src has no tile for this cell.
func (w *Writer) AddTileFromDataset(lat, lon int, src *Reader) (ok bool, err error) {
	if !w.header.Matches(&src.header) {
		return false, ErrDictionaryMismatch
	}

	idx, err := coord.CellIndex(lat, lon)
	if err != nil {
		return false, err
	}

	frame, ok, err := src.rawTileBytes(idx)
	if err != nil || !ok {
		return ok, err
	}
	return true, w.addFrame(idx, frame)
}

func (w *Writer) addFrame(idx int, frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	offset := w.end
	if _, err := w.file.WriteAt(frame, offset); err != nil {
		return err
	}
	w.end += int64(len(frame))
	if err := w.file.Sync(); err != nil {
		return err
	}

	w.offs[idx] = uint64(offset)
	entry := make([]byte, offsetEntrySize)
	binary.LittleEndian.PutUint64(entry, uint64(offset))
	entryOffset := w.header.OffsetTableOffset() + int64(idx)*offsetEntrySize
	if _, err := w.file.WriteAt(entry, entryOffset); err != nil {
		// The frame bytes are already durable but orphaned (no table
		// entry points to them); EnumerateOrphans will surface them.
		return err
	}

	return nil
}

// Flush forces any OS-buffered writes to stable storage.
func (w *Writer) Flush() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.file.Sync()
}

// Finish flushes and closes the writer. The file remains a valid,
// readable container.
func (w *Writer) Finish() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
