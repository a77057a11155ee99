package coord

import (
	"math"
	"testing"
)

func TestWebMercatorProj_RoundTrip(t *testing.T) {
	wm := &WebMercatorProj{}

	points := []struct{ lon, lat float64 }{
		{0, 0},
		{8.5417, 47.3769},
		{-74.0060, 40.7128},
		{139.6917, 35.6895},
		{-179.9, -70},
	}

	for _, p := range points {
		x, y := wm.FromWGS84(p.lon, p.lat)
		lon, lat := wm.ToWGS84(x, y)
		if math.Abs(lon-p.lon) > 1e-6 || math.Abs(lat-p.lat) > 1e-6 {
			t.Errorf("round trip (%v, %v) -> (%v, %v) -> (%v, %v)", p.lon, p.lat, x, y, lon, lat)
		}
	}
}

func TestWebMercatorProj_Origin(t *testing.T) {
	wm := &WebMercatorProj{}
	lon, lat := wm.ToWGS84(0, 0)
	if math.Abs(lon) > 1e-9 || math.Abs(lat) > 1e-9 {
		t.Errorf("ToWGS84(0,0) = (%v, %v), want (0,0)", lon, lat)
	}

	x, y := wm.FromWGS84(0, 0)
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("FromWGS84(0,0) = (%v, %v), want (0,0)", x, y)
	}
}

func TestWebMercatorProj_EPSG(t *testing.T) {
	wm := &WebMercatorProj{}
	if wm.EPSG() != 3857 {
		t.Errorf("EPSG() = %d, want 3857", wm.EPSG())
	}
}
