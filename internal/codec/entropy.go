package codec

import (
	"bytes"
	"fmt"
	"image"

	"github.com/gen2brain/webp"
	"github.com/klauspost/compress/zstd"
)

// Format identifies which entropy stage produced a frame. It is stored
// as the container's per-dataset format version byte, not per tile, so
// every tile in one dataset shares a single entropy scheme.
type Format uint8

const (
	// FormatZstd is the current entropy stage: single-frame zstd with
	// the frame header's magic bytes trimmed before storage.
	FormatZstd Format = 0
	// FormatWebPLossless is an earlier version's entropy stage, kept for
	// reading datasets built before the zstd stage existed. Nothing in
	// this engine writes it; gen2brain/webp only exposes decoding.
	FormatWebPLossless Format = 1
)

// entropyWindowLog matches the reference loader's window_log_max(24):
// a 16 MiB window, comfortably larger than any single tile's residual
// buffer, so every match within a frame is in range (the long-range
// matching the spec calls for falls out of this for free at tile size).
const entropyWindowLog = 24

var zstdMagic = [4]byte{0x28, 0xb5, 0x2f, 0xfd}

// EntropyEncode compresses a residual/palette byte string with zstd,
// single-frame, checksum disabled, and the 4-byte frame magic trimmed
// (the container's own magic plays that role, so storing zstd's is
// redundant). dict is the dataset's trained dictionary, or nil for a
// dictionary-free dataset; when present it is handed to the encoder via
// zstd.WithEncoderDict so short tile residuals share the dictionary's
// statistics instead of paying the cold-start cost of a fresh table per
// tile.
func EntropyEncode(data []byte, dict []byte) ([]byte, error) {
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithWindowSize(1<<entropyWindowLog),
		zstd.WithEncoderCRC(false),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	}
	if len(dict) > 0 {
		opts = append(opts, zstd.WithEncoderDict(dict))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("codec: creating zstd encoder: %w", err)
	}
	defer enc.Close()

	frame := enc.EncodeAll(data, nil)
	if len(frame) < 4 || frame[0] != zstdMagic[0] || frame[1] != zstdMagic[1] || frame[2] != zstdMagic[2] || frame[3] != zstdMagic[3] {
		return nil, fmt.Errorf("codec: unexpected zstd frame header")
	}
	return frame[4:], nil
}

// EntropyDecode reverses EntropyEncode, re-synthesizing the trimmed
// magic bytes before handing the frame to the zstd decoder. dict must
// match whatever EntropyEncode was called with for this frame, or
// decoding fails.
func EntropyDecode(frame []byte, dict []byte) ([]byte, error) {
	opts := []zstd.DOption{zstd.WithDecoderMaxWindow(1 << entropyWindowLog)}
	if len(dict) > 0 {
		opts = append(opts, zstd.WithDecoderDicts(dict))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("codec: creating zstd decoder: %w", err)
	}
	defer dec.Close()

	full := make([]byte, 0, len(frame)+4)
	full = append(full, zstdMagic[:]...)
	full = append(full, frame...)

	out, err := dec.DecodeAll(full, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	return out, nil
}

// DecodeLegacyWebPResiduals reverses the earlier WebP-lossless entropy
// stage: the residual grid was packed two samples per RGBA pixel (R,G =
// low/high byte of the first sample, B,A = low/high byte of the second),
// at half the grid's width and the grid's full height. Only decoding is
// supported since gen2brain/webp is a decode-only pure-Go binding.
func DecodeLegacyWebPResiduals(data []byte, r int) ([]uint16, error) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}

	wantWidth := r / 2
	bounds := img.Bounds()
	if bounds.Dx() != wantWidth || bounds.Dy() != r {
		return nil, fmt.Errorf("%w: legacy webp frame is %dx%d, want %dx%d", ErrCorruptFrame, bounds.Dx(), bounds.Dy(), wantWidth, r)
	}

	nrgba := toNRGBA(img)
	out := make([]uint16, 0, r*r)
	for y := 0; y < r; y++ {
		for x := 0; x < wantWidth; x++ {
			i := nrgba.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)
			px := nrgba.Pix[i : i+4]
			out = append(out, uint16(px[0])|uint16(px[1])<<8)
			out = append(out, uint16(px[2])|uint16(px[3])<<8)
		}
	}
	return out, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	bounds := img.Bounds()
	n := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			n.Set(x, y, img.At(x, y))
		}
	}
	return n
}
