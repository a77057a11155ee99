package codec

import "math"

// WaterSentinelHeight is the signed-metre height used to mark water
// pixels. It sits below any plausible terrain elevation so it survives
// every codec stage as a distinguished value rather than being mistaken
// for real relief.
const WaterSentinelHeight = -500.0

// Quantise converts an R*R grid of signed-metre heights into unsigned
// quanta of size quantumMeters. Heights are biased by +500 before
// dividing so the quantised domain is non-negative; water height maps
// naturally to quantum 0 under this bias, which is what the predictor
// and palette stages treat as the water sentinel.
func Quantise(heights []float32, quantumMeters float64) []uint16 {
	out := make([]uint16, len(heights))
	for i, h := range heights {
		q := math.Round((float64(h) + 500.0) / quantumMeters)
		if q < 0 {
			q = 0
		}
		if q > 65535 {
			q = 65535
		}
		out[i] = uint16(q)
	}
	return out
}

// Unquantise is the inverse of Quantise.
func Unquantise(quanta []uint16, quantumMeters float64) []float32 {
	out := make([]float32, len(quanta))
	for i, q := range quanta {
		out[i] = float32(float64(q)*quantumMeters - 500.0)
	}
	return out
}
