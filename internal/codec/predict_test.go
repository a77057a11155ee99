package codec

import "testing"

func syntheticQuanta(r int, waterAt func(x, y int) bool) []uint16 {
	out := make([]uint16, r*r)
	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			idx := y*r + x
			if waterAt(x, y) {
				out[idx] = 0
				continue
			}
			out[idx] = uint16(100 + (x*7+y*13)%900)
		}
	}
	return out
}

func TestPredict_RoundTrip_NoWater(t *testing.T) {
	for _, r := range []int{2, 4, 16, 64} {
		quanta := syntheticQuanta(r, func(x, y int) bool { return false })
		residuals, err := PredictEncode(quanta, r)
		if err != nil {
			t.Fatalf("R=%d: PredictEncode: %v", r, err)
		}
		back, err := PredictDecode(residuals, r)
		if err != nil {
			t.Fatalf("R=%d: PredictDecode: %v", r, err)
		}
		for i := range quanta {
			if back[i] != quanta[i] {
				t.Fatalf("R=%d: pixel %d round trip %d -> %d -> %d", r, i, quanta[i], residuals[i], back[i])
			}
		}
	}
}

func TestPredict_RoundTrip_WithWater(t *testing.T) {
	r := 32
	quanta := syntheticQuanta(r, func(x, y int) bool { return (x+y)%5 == 0 })
	residuals, err := PredictEncode(quanta, r)
	if err != nil {
		t.Fatal(err)
	}
	back, err := PredictDecode(residuals, r)
	if err != nil {
		t.Fatal(err)
	}
	for i := range quanta {
		if back[i] != quanta[i] {
			t.Fatalf("pixel %d round trip %d -> %d -> %d", i, quanta[i], residuals[i], back[i])
		}
	}
}

func TestPredict_WaterResidualIsReserved(t *testing.T) {
	r := 8
	quanta := syntheticQuanta(r, func(x, y int) bool { return x == 3 && y == 3 })
	residuals, err := PredictEncode(quanta, r)
	if err != nil {
		t.Fatal(err)
	}
	waterIdx := 3*r + 3
	if residuals[waterIdx] != WaterResidual {
		t.Errorf("water pixel residual = %d, want %d", residuals[waterIdx], WaterResidual)
	}
	for i, v := range residuals {
		if i == waterIdx {
			continue
		}
		if v == WaterResidual {
			t.Errorf("non-water pixel %d collided with the water residual sentinel", i)
		}
	}
}

func TestPredict_AllWater(t *testing.T) {
	r := 4
	quanta := syntheticQuanta(r, func(x, y int) bool { return true })
	residuals, err := PredictEncode(quanta, r)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range residuals {
		if v != WaterResidual {
			t.Errorf("all-water tile produced non-water residual %d", v)
		}
	}
	back, err := PredictDecode(residuals, r)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range back {
		if v != 0 {
			t.Errorf("all-water tile decoded to non-zero quantum %d", v)
		}
	}
}

func TestPredict_WrongSize(t *testing.T) {
	if _, err := PredictEncode(make([]uint16, 10), 4); err == nil {
		t.Error("expected error for mismatched grid size")
	}
	if _, err := PredictDecode(make([]uint16, 10), 4); err == nil {
		t.Error("expected error for mismatched grid size")
	}
}
