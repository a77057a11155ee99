// Package ingest adapts a COG/GeoTIFF elevation raster into the dense,
// bilinearly-sampleable form the builder needs to fill a single 1°×1°
// cell at an arbitrary output resolution. Grounded on
// original_source/geoc/src/tiff.rs's GeoTiff.sample (whole-raster load,
// bilinear lookup by normalized UV) generalized from a hardcoded 512x512
// downsample to an arbitrary target resolution and from implicit
// WGS84-only coordinates to internal/coord's projection registry.
package ingest

import (
	"fmt"
	"math"

	"github.com/synaptic-terrain/terrainengine/internal/cog"
	"github.com/synaptic-terrain/terrainengine/internal/coord"
)

// Source wraps a single COG file's base-resolution raster as a dense
// float32 grid in its native CRS, with WGS84 lat/lon sampling via the
// projection registered for the file's EPSG code.
type Source struct {
	proj   coord.Projection
	data   []float32
	width  int
	height int

	minX, minY, maxX, maxY float64 // bounds in CRS units
}

// NewSource loads r's full base-resolution raster into memory. Elevation
// DEM tiles are small enough (typically well under a gigabyte at 1
// arc-second resolution) that a whole-raster load, rather than windowed
// GDAL-style reads, is the simplest faithful port of the original's
// sampling approach.
func NewSource(r *cog.Reader) (*Source, error) {
	proj := coord.ForEPSG(r.EPSG())
	if proj == nil {
		return nil, fmt.Errorf("ingest: unsupported EPSG:%d for %s", r.EPSG(), r.Path())
	}

	width := r.IFDWidth(0)
	height := r.IFDHeight(0)
	tile := r.IFDTileSize(0)
	tileW, tileH := tile[0], tile[1]
	if tileW == 0 || tileH == 0 {
		return nil, fmt.Errorf("ingest: %s has no tile layout", r.Path())
	}

	data := make([]float32, width*height)
	tilesAcross := (width + tileW - 1) / tileW
	tilesDown := (height + tileH - 1) / tileH

	for row := 0; row < tilesDown; row++ {
		for col := 0; col < tilesAcross; col++ {
			pix, w, h, err := r.ReadFloatTile(0, col, row)
			if err != nil {
				return nil, fmt.Errorf("ingest: reading tile (%d,%d) of %s: %w", col, row, r.Path(), err)
			}
			if pix == nil {
				continue // sparse/empty tile: leave zeros in place
			}
			originX := col * tileW
			originY := row * tileH
			for ty := 0; ty < h; ty++ {
				y := originY + ty
				if y >= height {
					break
				}
				srcRow := pix[ty*w : ty*w+w]
				dstRow := data[y*width+originX:]
				n := w
				if originX+n > width {
					n = width - originX
				}
				copy(dstRow[:n], srcRow[:n])
			}
		}
	}

	minX, minY, maxX, maxY := r.BoundsInCRS()

	return &Source{
		proj:   proj,
		data:   data,
		width:  width,
		height: height,
		minX:   minX,
		minY:   minY,
		maxX:   maxX,
		maxY:   maxY,
	}, nil
}

// CoversWGS84 reports whether the given lat/lon bounding box intersects
// this source's extent at all, letting the builder skip sources that
// cannot contribute to a cell.
func (s *Source) CoversWGS84(minLat, minLon, maxLat, maxLon float64) bool {
	x0, y0 := s.proj.FromWGS84(minLon, minLat)
	x1, y1 := s.proj.FromWGS84(maxLon, maxLat)
	lo, hi := x0, x1
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi < s.minX || lo > s.maxX {
		return false
	}
	lo, hi = y0, y1
	if lo > hi {
		lo, hi = hi, lo
	}
	return hi >= s.minY && lo <= s.maxY
}

// SampleGrid fills an r×r grid covering the 1°×1° cell [lat, lat+1) ×
// [lon, lon+1) by bilinear interpolation of the underlying raster.
// Points outside the raster's own extent are reported via the returned
// mask so the caller can decide how to fill holes (e.g. water or
// nodata), matching generate.rs's separate water-mask pass rather than
// inventing an in-band sentinel here.
func (s *Source) SampleGrid(lat, lon, r int) (heights []float32, inBounds []bool) {
	heights = make([]float32, r*r)
	inBounds = make([]bool, r*r)

	for row := 0; row < r; row++ {
		v := (float64(row) + 0.5) / float64(r)
		pointLat := float64(lat) + v
		for col := 0; col < r; col++ {
			u := (float64(col) + 0.5) / float64(r)
			pointLon := float64(lon) + u

			x, y := s.proj.FromWGS84(pointLon, pointLat)
			h, ok := s.sampleCRS(x, y)
			idx := row*r + col
			heights[idx] = h
			inBounds[idx] = ok
		}
	}
	return heights, inBounds
}

// sampleCRS bilinearly samples the raster at CRS coordinates (x, y).
func (s *Source) sampleCRS(x, y float64) (float32, bool) {
	if x < s.minX || x > s.maxX || y < s.minY || y > s.maxY {
		return 0, false
	}

	pixelSizeX := (s.maxX - s.minX) / float64(s.width)
	pixelSizeY := (s.maxY - s.minY) / float64(s.height)

	fx := (x - s.minX) / pixelSizeX
	fy := (s.maxY - y) / pixelSizeY // row 0 is the northern edge

	x0 := int(math.Floor(fx - 0.5))
	y0 := int(math.Floor(fy - 0.5))
	dx := fx - 0.5 - float64(x0)
	dy := fy - 0.5 - float64(y0)

	at := func(px, py int) float32 {
		if px < 0 {
			px = 0
		}
		if px >= s.width {
			px = s.width - 1
		}
		if py < 0 {
			py = 0
		}
		if py >= s.height {
			py = s.height - 1
		}
		return s.data[py*s.width+px]
	}

	top := lerp32(at(x0, y0), at(x0+1, y0), dx)
	bottom := lerp32(at(x0, y0+1), at(x0+1, y0+1), dx)
	return lerp32(top, bottom, dy), true
}

func lerp32(a, b float32, t float64) float32 {
	return a + float32(t)*(b-a)
}
