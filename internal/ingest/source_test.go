package ingest

import (
	"math"
	"testing"

	"github.com/synaptic-terrain/terrainengine/internal/coord"
)

func flatSource(t *testing.T, minLon, minLat, maxLon, maxLat float64, width, height int, value float32) *Source {
	t.Helper()
	data := make([]float32, width*height)
	for i := range data {
		data[i] = value
	}
	return &Source{
		proj:   coord.ForEPSG(4326),
		data:   data,
		width:  width,
		height: height,
		minX:   minLon,
		minY:   minLat,
		maxX:   maxLon,
		maxY:   maxLat,
	}
}

func TestSource_SampleGridFlatRasterIsUniform(t *testing.T) {
	s := flatSource(t, 10, 45, 12, 47, 64, 64, 777)
	heights, inBounds := s.SampleGrid(45, 10, 8)
	for i, v := range heights {
		if !inBounds[i] {
			t.Fatalf("pixel %d unexpectedly out of bounds", i)
		}
		if v != 777 {
			t.Fatalf("pixel %d = %v, want 777", i, v)
		}
	}
}

func TestSource_SampleGridOutsideExtentIsMarkedOutOfBounds(t *testing.T) {
	s := flatSource(t, 10, 45, 11, 46, 16, 16, 100)
	heights, inBounds := s.SampleGrid(60, 60, 4) // far from the source's 10-11E/45-46N extent
	for i := range heights {
		if inBounds[i] {
			t.Fatalf("pixel %d unexpectedly reported in-bounds", i)
		}
	}
}

func TestSource_CoversWGS84(t *testing.T) {
	s := flatSource(t, 10, 45, 12, 47, 8, 8, 0)
	if !s.CoversWGS84(45, 10, 46, 11) {
		t.Fatalf("expected overlap to be detected")
	}
	if s.CoversWGS84(0, 0, 1, 1) {
		t.Fatalf("expected no overlap for a disjoint cell")
	}
}

func TestSource_SampleCRSInterpolatesBetweenAdjacentPixels(t *testing.T) {
	// A 2x2 raster with a sharp west-to-east ramp: bilinear sampling at
	// the midpoint between the two western and two eastern pixels should
	// land between their values, not equal either one.
	s := &Source{
		proj:   coord.ForEPSG(4326),
		data:   []float32{0, 100, 0, 100},
		width:  2,
		height: 2,
		minX:   0,
		minY:   0,
		maxX:   2,
		maxY:   2,
	}
	v, ok := s.sampleCRS(1.0, 1.0)
	if !ok {
		t.Fatalf("expected in-bounds sample")
	}
	if v <= 0 || v >= 100 {
		t.Fatalf("sampleCRS(1,1) = %v, want strictly between 0 and 100", v)
	}
}

func TestLerp32(t *testing.T) {
	if got := lerp32(0, 10, 0.5); math.Abs(float64(got-5)) > 1e-6 {
		t.Fatalf("lerp32(0,10,0.5) = %v, want 5", got)
	}
	if got := lerp32(5, 5, 0.3); got != 5 {
		t.Fatalf("lerp32(5,5,0.3) = %v, want 5", got)
	}
}
