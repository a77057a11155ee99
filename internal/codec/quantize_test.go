package codec

import "testing"

func TestQuantise_WaterMapsToZero(t *testing.T) {
	quanta := Quantise([]float32{WaterSentinelHeight}, 5.0)
	if quanta[0] != 0 {
		t.Errorf("water quantised to %d, want 0", quanta[0])
	}
}

func TestQuantise_Unquantise_RoundTrip(t *testing.T) {
	heights := []float32{-500, -100, 0, 500, 1200, 8848}
	for _, h := range quantumsToTest {
		quanta := Quantise(heights, h)
		back := Unquantise(quanta, h)
		for i, orig := range heights {
			diff := float64(back[i]) - float64(orig)
			if diff < 0 {
				diff = -diff
			}
			if diff > h {
				t.Errorf("H=%v: height %v quantised/unquantised to %v (diff %v > H)", h, orig, back[i], diff)
			}
		}
	}
}

var quantumsToTest = []float64{1, 5, 50}
