package codec

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Palette/raw encoding of the residual grid produced by PredictEncode.
//
// Three wire shapes exist, distinguished by the decoder purely from the
// byte length of the payload (byte-for-byte grounded on the reference
// loader's unpalette routine):
//
//   - two-byte raw:  len == r*r*2 + 2   — 2-byte min, then r*r 2-byte deltas
//   - one-byte raw:  len == r*r + 3     — 2-byte min, 2-byte first sample,
//     then r*r-1 bytes (0 passes through as water, else byte+min-1)
//   - palette:       any other length   — sorted distinct-value table
//     followed by one byte per pixel indexing it
//
// The one-byte raw form's min is computed over non-water values only (0
// is reserved exclusively for the water sentinel in that form); the
// two-byte raw form's min is the global minimum including water, since
// its per-pixel delta formula has no separate water branch and must
// stay non-negative for every pixel.

// EncodePalette picks one of the three shapes by fixed precedence and
// serializes the residual grid in it: the palette form when it can hold
// the grid's distinct values, else the one-byte raw form when the
// non-water range fits a byte, else the two-byte raw form. The chosen
// shape is not necessarily the smallest.
func EncodePalette(residuals []uint16, r int) ([]byte, error) {
	if len(residuals) != r*r {
		return nil, fmt.Errorf("palette: residual grid has %d samples, want %d for R=%d", len(residuals), r*r, r)
	}

	distinct := make(map[uint16]bool)
	nonWaterDistinct := 0
	var nonWaterMin, nonWaterMax uint16
	haveNonWater := false
	globalMin, globalMax := residuals[0], residuals[0]

	for _, v := range residuals {
		if !distinct[v] {
			distinct[v] = true
			if v != WaterResidual {
				nonWaterDistinct++
			}
		}
		if v < globalMin {
			globalMin = v
		}
		if v > globalMax {
			globalMax = v
		}
		if v != WaterResidual {
			if !haveNonWater || v < nonWaterMin {
				nonWaterMin = v
			}
			if !haveNonWater || v > nonWaterMax {
				nonWaterMax = v
			}
			haveNonWater = true
		}
	}

	// Threshold counts distinct non-water values only, matching the
	// one-byte-raw form's own water handling: a tile can carry up to
	// 256 distinct land heights and still prefer the palette form over
	// the raw forms. When water is also present and the combined table
	// would exceed 256 entries (one byte per pixel index), the grid
	// falls through to the raw forms instead.
	if nonWaterDistinct < 257 && len(distinct) <= 256 {
		return encodePaletteForm(residuals, distinct)
	}

	if haveNonWater && nonWaterMax-nonWaterMin < 255 {
		return encodeOneByteForm(residuals, nonWaterMin), nil
	}

	return encodeTwoByteForm(residuals, globalMin), nil
}

// DecodePalette inverts EncodePalette, branching on payload length
// exactly as the reference loader does.
func DecodePalette(data []byte, r int) ([]uint16, error) {
	n := r * r
	switch {
	case len(data) == n*2+2:
		return decodeTwoByteForm(data, n)
	case len(data) == n+3:
		return decodeOneByteForm(data, n)
	default:
		return decodePaletteForm(data, n)
	}
}

func encodeTwoByteForm(residuals []uint16, min uint16) []byte {
	out := make([]byte, 2+len(residuals)*2)
	binary.LittleEndian.PutUint16(out[0:2], min)
	for i, v := range residuals {
		binary.LittleEndian.PutUint16(out[2+i*2:4+i*2], v-min)
	}
	return out
}

func decodeTwoByteForm(data []byte, n int) ([]uint16, error) {
	if len(data) != n*2+2 {
		return nil, fmt.Errorf("%w: two-byte form has %d bytes, want %d", ErrCorruptResidual, len(data), n*2+2)
	}
	min := binary.LittleEndian.Uint16(data[0:2])
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		delta := binary.LittleEndian.Uint16(data[2+i*2 : 4+i*2])
		out[i] = delta + min
	}
	return out, nil
}

func encodeOneByteForm(residuals []uint16, min uint16) []byte {
	out := make([]byte, 4+len(residuals)-1)
	binary.LittleEndian.PutUint16(out[0:2], min)
	binary.LittleEndian.PutUint16(out[2:4], residuals[0])
	for i, v := range residuals[1:] {
		if v == WaterResidual {
			out[4+i] = 0
		} else {
			out[4+i] = byte(v - min + 1)
		}
	}
	return out
}

func decodeOneByteForm(data []byte, n int) ([]uint16, error) {
	if len(data) != n+3 {
		return nil, fmt.Errorf("%w: one-byte form has %d bytes, want %d", ErrCorruptResidual, len(data), n+3)
	}
	min := binary.LittleEndian.Uint16(data[0:2])
	first := binary.LittleEndian.Uint16(data[2:4])

	out := make([]uint16, n)
	out[0] = first
	for i, b := range data[4:] {
		if b == 0 {
			out[i+1] = WaterResidual
		} else {
			out[i+1] = uint16(b) + min - 1
		}
	}
	return out, nil
}

func encodePaletteForm(residuals []uint16, distinct map[uint16]bool) ([]byte, error) {
	palette := make([]uint16, 0, len(distinct))
	for v := range distinct {
		palette = append(palette, v)
	}
	sort.Slice(palette, func(i, j int) bool { return palette[i] < palette[j] })

	wide := false
	for i := 1; i < len(palette); i++ {
		if palette[i]-palette[i-1] > 255 {
			wide = true
			break
		}
	}

	index := make(map[uint16]byte, len(palette))
	for i, v := range palette {
		if i > 255 {
			return nil, fmt.Errorf("palette: %d distinct values exceeds the 256-entry limit", len(palette))
		}
		index[v] = byte(i)
	}

	out := make([]byte, 0, 2+1+2+len(palette)*2+len(residuals))
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(palette)))
	out = append(out, lenBuf[:]...)

	if wide {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}

	var firstBuf [2]byte
	binary.LittleEndian.PutUint16(firstBuf[:], palette[0])
	out = append(out, firstBuf[:]...)

	for i := 1; i < len(palette); i++ {
		delta := palette[i] - palette[i-1]
		if wide {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], delta)
			out = append(out, b[:]...)
		} else {
			out = append(out, byte(delta))
		}
	}

	for _, v := range residuals {
		out = append(out, index[v])
	}

	return out, nil
}

func decodePaletteForm(data []byte, n int) ([]uint16, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("%w: palette header truncated", ErrCorruptPalette)
	}
	paletteLen := int(binary.LittleEndian.Uint16(data[0:2]))
	wide := data[2] != 0

	offset := 3
	deltaWidth := 1
	if wide {
		deltaWidth = 2
	}
	if paletteLen == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrCorruptPalette)
	}
	headerEnd := offset + 2 + (paletteLen-1)*deltaWidth
	if headerEnd > len(data) {
		return nil, fmt.Errorf("%w: palette table truncated", ErrCorruptPalette)
	}

	palette := make([]uint16, paletteLen)
	palette[0] = binary.LittleEndian.Uint16(data[offset : offset+2])
	pos := offset + 2
	for i := 1; i < paletteLen; i++ {
		var delta uint16
		if wide {
			delta = binary.LittleEndian.Uint16(data[pos : pos+2])
		} else {
			delta = uint16(data[pos])
		}
		palette[i] = palette[i-1] + delta
		pos += deltaWidth
	}

	indices := data[headerEnd:]
	if len(indices) != n {
		return nil, fmt.Errorf("%w: expected %d pixel indices, got %d", ErrCorruptPalette, n, len(indices))
	}

	out := make([]uint16, n)
	for i, idx := range indices {
		if int(idx) >= len(palette) {
			return nil, fmt.Errorf("%w: index %d exceeds palette length %d", ErrCorruptPalette, idx, len(palette))
		}
		out[i] = palette[idx]
	}
	return out, nil
}
