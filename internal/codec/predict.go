package codec

import "fmt"

// ResidualBias shifts every non-water residual into the non-negative
// range a 16-bit word can hold. It is a fixed wire-format constant, not
// a tuning knob: changing it would break every frame already written
// with the old value.
const ResidualBias = 7000

// WaterResidual is the reserved residual value meaning "this pixel is
// water", propagated untouched through prediction exactly like quantum 0
// propagates untouched through quantisation.
const WaterResidual = 0

// PredictEncode applies 2-D spatial prediction to an R*R grid of
// quantised heights (row-major, row 0 first) and returns the residual
// grid. Water pixels (quantum 0) remain 0 in the residual domain; every
// other pixel's residual is biased by ResidualBias so it stays
// non-negative.
func PredictEncode(quanta []uint16, r int) ([]uint16, error) {
	if len(quanta) != r*r {
		return nil, fmt.Errorf("predict: grid has %d samples, want %d for R=%d", len(quanta), r*r, r)
	}
	residuals := make([]uint16, r*r)

	// The actual quantised values are all known up front, so the
	// direction of this scan does not affect the result: each predictor
	// reads only from the already-fully-known quantised grid, never from
	// residuals computed earlier in the loop. The reverse order here
	// (bottom-right to top-left) mirrors the layout the decoder walks
	// forward over.
	for y := r - 1; y >= 0; y-- {
		for x := r - 1; x >= 0; x-- {
			idx := y*r + x
			actual := quanta[idx]

			if actual == 0 {
				residuals[idx] = WaterResidual
				continue
			}

			switch {
			case x == 0 && y == 0:
				residuals[idx] = actual // stored raw
			case (x == 1 && y == 0) || (x == 0 && y == 1):
				residuals[idx] = biasedResidual(actual, quanta[0])
			case y == 0: // first row, x >= 2: linear along the row
				pred := linear(quanta[idx-1], quanta[idx-2])
				residuals[idx] = biasedResidual(actual, pred)
			case x == 0: // first column, y >= 2: linear along the column
				pred := linear(quanta[idx-r], quanta[idx-2*r])
				residuals[idx] = biasedResidual(actual, pred)
			default: // interior: plane predictor
				above := quanta[idx-r]
				left := quanta[idx-1]
				topLeft := quanta[idx-r-1]
				pred := plane(above, left, topLeft)
				residuals[idx] = biasedResidual(actual, pred)
			}
		}
	}
	return residuals, nil
}

// PredictDecode reverses PredictEncode, reconstructing the quantised
// grid in forward raster order since each pixel's predictor depends on
// already-reconstructed neighbours.
func PredictDecode(residuals []uint16, r int) ([]uint16, error) {
	if len(residuals) != r*r {
		return nil, fmt.Errorf("predict: residual grid has %d samples, want %d for R=%d", len(residuals), r*r, r)
	}
	quanta := make([]uint16, r*r)

	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			idx := y*r + x
			res := residuals[idx]

			if res == WaterResidual {
				quanta[idx] = 0
				continue
			}

			switch {
			case x == 0 && y == 0:
				quanta[idx] = res
			case (x == 1 && y == 0) || (x == 0 && y == 1):
				quanta[idx] = unbiasResidual(res, quanta[0])
			case y == 0:
				pred := linear(quanta[idx-1], quanta[idx-2])
				quanta[idx] = unbiasResidual(res, pred)
			case x == 0:
				pred := linear(quanta[idx-r], quanta[idx-2*r])
				quanta[idx] = unbiasResidual(res, pred)
			default:
				above := quanta[idx-r]
				left := quanta[idx-1]
				topLeft := quanta[idx-r-1]
				pred := plane(above, left, topLeft)
				quanta[idx] = unbiasResidual(res, pred)
			}
		}
	}
	return quanta, nil
}

// plane is the interior predictor: above + (left - top_left).
func plane(above, left, topLeft uint16) int32 {
	return int32(above) + (int32(left) - int32(topLeft))
}

// linear extrapolates from two already-known samples along a row or column.
func linear(prev, prevPrev uint16) int32 {
	return 2*int32(prev) - int32(prevPrev)
}

// biasedResidual computes actual - predictor + ResidualBias, reserving
// 0 exclusively for the water sentinel: a result at or below 0 is
// clamped to 1 and a result above 65535 is clamped to 65535.
func biasedResidual(actual uint16, predictor int32) uint16 {
	r := int32(actual) - predictor + ResidualBias
	if r <= 0 {
		r = 1 // never collide with the water sentinel
	}
	if r > 65535 {
		r = 65535
	}
	return uint16(r)
}

func unbiasResidual(residual uint16, predictor int32) uint16 {
	v := int32(residual) - ResidualBias + predictor
	if v < 0 {
		v = 0
	}
	if v > 65535 {
		v = 65535
	}
	return uint16(v)
}
