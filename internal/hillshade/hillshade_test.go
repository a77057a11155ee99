package hillshade

import "testing"

func TestCompute_FlatTerrainIsUniformlyLit(t *testing.T) {
	r := 8
	heights := make([]float32, r*r)
	for i := range heights {
		heights[i] = 100
	}
	shade := Compute(heights, r, DefaultParams)
	if len(shade) != r*r {
		t.Fatalf("len(shade) = %d, want %d", len(shade), r*r)
	}
	want := shade[0]
	for i, v := range shade {
		if v != want {
			t.Fatalf("shade[%d] = %d, want uniform %d for flat terrain", i, v, want)
		}
	}
}

func TestCompute_SlopeFacingLightIsBrighterThanFacingAway(t *testing.T) {
	r := 8
	heights := make([]float32, r*r)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			// A north-south ridge at x = r/2: the west flank faces
			// west, the east flank faces east.
			d := x - r/2
			if d < 0 {
				d = -d
			}
			heights[y*r+x] = float32((r/2 - d) * 20)
		}
	}
	p := Params{AzimuthDeg: 90, AltitudeDeg: 45, CellSizeMeters: 10} // light from the east
	shade := Compute(heights, r, p)

	westSlope := shade[r/2*r+1]
	eastSlope := shade[r/2*r+r-2]
	if eastSlope <= westSlope {
		t.Fatalf("slope facing the light (%d) should be brighter than slope facing away (%d)", eastSlope, westSlope)
	}
}

func TestEncodeDecodeShadeTile_RoundTrip(t *testing.T) {
	r := 16
	heights := make([]float32, r*r)
	for i := range heights {
		heights[i] = float32(i % 50)
	}
	shade := Compute(heights, r, DefaultParams)

	frame, err := EncodeShadeTile(shade)
	if err != nil {
		t.Fatalf("EncodeShadeTile: %v", err)
	}
	got, err := DecodeShadeTile(frame)
	if err != nil {
		t.Fatalf("DecodeShadeTile: %v", err)
	}
	if len(got) != len(shade) {
		t.Fatalf("decoded %d bytes, want %d", len(got), len(shade))
	}
	for i := range shade {
		if got[i] != shade[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], shade[i])
		}
	}
}
