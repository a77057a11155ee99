package codec

import "testing"

func syntheticHeights(r int, waterFrac int) []float32 {
	out := make([]float32, r*r)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			idx := y*r + x
			if waterFrac > 0 && (x*y+x+y)%waterFrac == 0 {
				out[idx] = WaterSentinelHeight
				continue
			}
			// A gently varying synthetic terrain with enough local
			// structure to exercise all four predictor regions, kept
			// well clear of WaterSentinelHeight so non-water pixels
			// never round-trip into the water quantum.
			out[idx] = float32(200 + 20*((x%37)-18) + 10*((y%23)-11))
		}
	}
	return out
}

func TestEncodeDecodeTile_RoundTrip(t *testing.T) {
	resolutions := []int{16, 64, 256}
	quantums := []float64{1, 5, 50}

	for _, r := range resolutions {
		for _, h := range quantums {
			heights := syntheticHeights(r, 7)
			encoded, err := EncodeTile(heights, r, h, nil)
			if err != nil {
				t.Fatalf("R=%d H=%v: EncodeTile: %v", r, h, err)
			}

			decoded, err := DecodeTile(encoded, r, h, FormatZstd, nil)
			if err != nil {
				t.Fatalf("R=%d H=%v: DecodeTile: %v", r, h, err)
			}

			for i, orig := range heights {
				if orig == WaterSentinelHeight {
					if decoded[i] != WaterSentinelHeight {
						t.Fatalf("R=%d H=%v: pixel %d water not preserved: got %v", r, h, i, decoded[i])
					}
					continue
				}
				diff := float64(decoded[i]) - float64(orig)
				if diff < 0 {
					diff = -diff
				}
				if diff > h {
					t.Fatalf("R=%d H=%v: pixel %d height %v decoded to %v (diff %v > H)", r, h, i, orig, decoded[i], diff)
				}
			}
		}
	}
}

func TestEncodeDecodeTile_AllLand(t *testing.T) {
	r := 32
	heights := syntheticHeights(r, 0)
	encoded, err := EncodeTile(heights, r, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeTile(encoded, r, 5, FormatZstd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(heights) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(heights))
	}
}

func TestEncodeDecodeTile_AllWater(t *testing.T) {
	r := 16
	heights := make([]float32, r*r)
	for i := range heights {
		heights[i] = WaterSentinelHeight
	}
	encoded, err := EncodeTile(heights, r, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeTile(encoded, r, 5, FormatZstd, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range decoded {
		if v != WaterSentinelHeight {
			t.Fatalf("pixel %d = %v, want water sentinel", i, v)
		}
	}
}

func TestEncodeTile_WrongSize(t *testing.T) {
	if _, err := EncodeTile(make([]float32, 10), 4, 5, nil); err == nil {
		t.Error("expected error for mismatched tile size")
	}
}
