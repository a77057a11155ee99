// Package hillshade computes per-tile shaded-relief byte grids from
// height data and (de)serializes them through the same entropy coder
// the elevation codec uses. The original engine computes this on the
// GPU as part of the atlas upload pass (a per-slot render pass, see
// original_source/render/src/tile_cache.rs's "Hillshade pass"); this
// package is the CPU-side equivalent for a cache driver with no real
// render backend wired in (see internal/gpu's design notes), and the
// shading algorithm itself (Horn's method) is standard GIS practice
// with no teacher/pack implementation to ground against directly.
package hillshade

import (
	"math"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
)

// Params supplies the light source and grid spacing used to compute
// slope and aspect from a height grid.
type Params struct {
	AzimuthDeg   float64 // compass direction the light comes from
	AltitudeDeg  float64 // light's angle above the horizon
	CellSizeMeters float64 // ground distance between adjacent samples
}

// DefaultParams matches a commonly used overhead-sun convention: light
// from the northwest, 45 degrees above the horizon.
var DefaultParams = Params{AzimuthDeg: 315, AltitudeDeg: 45, CellSizeMeters: 30}

// Compute derives an r*r grid of 8-bit shade values (0 = fully
// shadowed, 255 = fully lit) from an r*r height grid using Horn's
// method for slope and aspect. Edge cells fall back to a one-sided
// difference since they have no neighbour on one side.
func Compute(heights []float32, r int, p Params) []byte {
	out := make([]byte, r*r)

	zenithRad := (90.0 - p.AltitudeDeg) * math.Pi / 180.0
	azimuthRad := p.AzimuthDeg * math.Pi / 180.0
	// Convert compass azimuth (clockwise from north) to the
	// mathematical convention Horn's formula expects.
	lightAz := math.Pi*2.5 - azimuthRad
	if lightAz >= 2*math.Pi {
		lightAz -= 2 * math.Pi
	}

	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= r {
			x = r - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= r {
			y = r - 1
		}
		h := heights[y*r+x]
		if h == codec.WaterSentinelHeight {
			return 0
		}
		return float64(h)
	}

	cell := p.CellSizeMeters
	if cell == 0 {
		cell = DefaultParams.CellSizeMeters
	}

	for y := 0; y < r; y++ {
		for x := 0; x < r; x++ {
			// Horn's method 3x3 kernel.
			a := at(x-1, y-1)
			b := at(x, y-1)
			c := at(x+1, y-1)
			d := at(x-1, y)
			f := at(x+1, y)
			g := at(x-1, y+1)
			h := at(x, y+1)
			i := at(x+1, y+1)

			dzdx := ((c + 2*f + i) - (a + 2*d + g)) / (8 * cell)
			dzdy := ((g + 2*h + i) - (a + 2*b + c)) / (8 * cell)

			slope := math.Atan(math.Sqrt(dzdx*dzdx + dzdy*dzdy))
			aspect := math.Atan2(dzdy, -dzdx)
			if aspect < 0 {
				aspect += 2 * math.Pi
			}

			shade := math.Cos(zenithRad)*math.Cos(slope) +
				math.Sin(zenithRad)*math.Sin(slope)*math.Cos(lightAz-aspect)
			if shade < 0 {
				shade = 0
			}
			out[y*r+x] = byte(math.Round(shade * 255))
		}
	}

	return out
}

// EncodeShadeTile compresses a precomputed r*r byte grid. Unlike
// elevation tiles, shade values need no quantisation or spatial
// prediction: they are already a dense byte grid, so only the entropy
// stage applies.
func EncodeShadeTile(shade []byte) ([]byte, error) {
	return codec.EntropyEncode(shade, nil)
}

// DecodeShadeTile decompresses a shade tile frame back to its r*r byte
// grid.
func DecodeShadeTile(data []byte) ([]byte, error) {
	return codec.EntropyDecode(data, nil)
}
