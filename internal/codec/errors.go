package codec

import "errors"

// Sentinel errors surfaced by tile decoding. Each is non-recoverable for
// the tile that produced it: callers treat the tile as unreadable rather
// than attempting partial recovery.
var (
	// ErrCorruptFrame means the entropy-coded frame failed to decompress
	// (malformed zstd/WebP stream, truncated input, bad frame header).
	ErrCorruptFrame = errors.New("codec: corrupt entropy frame")

	// ErrCorruptPalette means a palette index referenced an entry beyond
	// the stored palette length.
	ErrCorruptPalette = errors.New("codec: corrupt palette index")

	// ErrCorruptResidual means a one- or two-byte raw residual payload
	// has the wrong length for the tile size. Residuals that decode to
	// an out-of-range value are clamped by the predictor, not reported.
	ErrCorruptResidual = errors.New("codec: corrupt residual value")
)
