package codec

import "fmt"

// EncodeTile runs the full pipeline (quantise -> predict -> palette ->
// entropy code) over an R*R grid of signed-metre heights, producing the
// bytes stored for one cell. Always writes FormatZstd; legacy datasets
// are read-only (see DecodeTile). dict is the dataset's trained
// dictionary (nil if the dataset carries none) and is passed straight
// through to EntropyEncode.
func EncodeTile(heights []float32, r int, quantumMeters float64, dict []byte) ([]byte, error) {
	if len(heights) != r*r {
		return nil, fmt.Errorf("codec: tile has %d samples, want %d for R=%d", len(heights), r*r, r)
	}

	quanta := Quantise(heights, quantumMeters)

	residuals, err := PredictEncode(quanta, r)
	if err != nil {
		return nil, err
	}

	paletted, err := EncodePalette(residuals, r)
	if err != nil {
		return nil, err
	}

	frame, err := EntropyEncode(paletted, dict)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// DecodeTile reverses EncodeTile. format selects the entropy stage the
// dataset was built with; everything downstream of entropy decoding is
// shared regardless of format. dict must match the dictionary (if any)
// the dataset's tiles were encoded with; legacy WebP-lossless frames
// never carried a dictionary, so dict is ignored for that format.
func DecodeTile(data []byte, r int, quantumMeters float64, format Format, dict []byte) ([]float32, error) {
	var residuals []uint16
	var err error

	switch format {
	case FormatZstd:
		var paletted []byte
		paletted, err = EntropyDecode(data, dict)
		if err != nil {
			return nil, err
		}
		residuals, err = DecodePalette(paletted, r)
		if err != nil {
			return nil, err
		}
	case FormatWebPLossless:
		residuals, err = DecodeLegacyWebPResiduals(data, r)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("codec: unknown entropy format %d", format)
	}

	quanta, err := PredictDecode(residuals, r)
	if err != nil {
		return nil, err
	}

	return Unquantise(quanta, quantumMeters), nil
}
