package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
	"github.com/synaptic-terrain/terrainengine/internal/container"
	"github.com/synaptic-terrain/terrainengine/internal/coord"
)

// Progress reports ingestion progress to the caller after every cell,
// whether it was written, skipped (already present), or had no covering
// source.
type Progress struct {
	Done, Total, Written, Skipped, Empty int
}

// BuildOptions configures a bulk ingestion run.
type BuildOptions struct {
	Resolution int
	Workers    int
	OnProgress func(Progress)
}

// Build walks every one of the 64,800 1°×1° cells in parallel, samples
// any source (and, if present, water mask) that covers the cell, and
// writes the resulting tile to w. It is the Go counterpart of
// original_source/geoc/src/common.rs's for_tile_in_output: cells the
// writer already has are skipped so the CLI can resume an interrupted
// run, a shared atomic flag lets in-flight workers finish their current
// cell but stops issuing new ones once either ctx is cancelled or a
// worker reports an error, and the first per-cell error aborts the
// whole run rather than being folded into a per-tile diagnostic (unlike
// the container's own per-tile codec error handling, a failed bulk
// ingestion has produced no usable output yet).
func Build(ctx context.Context, w *container.Writer, sources, water []*Source, opts BuildOptions) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	r := opts.Resolution

	var (
		next      int64
		stopped   int32
		firstErr  error
		errOnce   sync.Once
		doneCount int64
	)

	report := func(written, skipped, empty bool) {
		d := atomic.AddInt64(&doneCount, 1)
		if opts.OnProgress != nil {
			p := Progress{Done: int(d), Total: container.CellCount}
			if written {
				p.Written = 1
			}
			if skipped {
				p.Skipped = 1
			}
			if empty {
				p.Empty = 1
			}
			opts.OnProgress(p)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if atomic.LoadInt32(&stopped) != 0 {
					return
				}
				select {
				case <-ctx.Done():
					atomic.StoreInt32(&stopped, 1)
					errOnce.Do(func() { firstErr = ctx.Err() })
					return
				default:
				}

				idx := atomic.AddInt64(&next, 1) - 1
				if idx >= container.CellCount {
					return
				}

				lat, lon, err := coord.IndexToCell(int(idx))
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					atomic.StoreInt32(&stopped, 1)
					return
				}

				exists, err := w.TileExists(lat, lon)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					atomic.StoreInt32(&stopped, 1)
					return
				}
				if exists {
					report(false, true, false)
					continue
				}

				heights, ok := buildCell(lat, lon, r, sources, water)
				if !ok {
					report(false, false, true)
					continue
				}

				if err := w.AddTile(lat, lon, heights); err != nil {
					errOnce.Do(func() { firstErr = fmt.Errorf("cell (%d,%d): %w", lat, lon, err) })
					atomic.StoreInt32(&stopped, 1)
					return
				}
				report(true, false, false)
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return nil
}

// buildCell samples every source covering (lat, lon) into a single
// r×r grid, preferring the first source (in input order) that actually
// covers each pixel, and applies the water mask as the codec's water
// sentinel. Reports ok=false when no source covers the cell at all, so
// the caller leaves it absent rather than writing an all-nodata tile.
func buildCell(lat, lon, r int, sources, water []*Source) (heights []float32, ok bool) {
	heights = make([]float32, r*r)
	covered := make([]bool, r*r)

	for _, src := range sources {
		if !src.CoversWGS84(float64(lat), float64(lon), float64(lat+1), float64(lon+1)) {
			continue
		}
		grid, inBounds := src.SampleGrid(lat, lon, r)
		any := false
		for i, v := range inBounds {
			if v && !covered[i] {
				heights[i] = grid[i]
				covered[i] = true
				any = true
			}
		}
		if any {
			ok = true
		}
	}
	if !ok {
		return nil, false
	}

	for _, src := range water {
		if !src.CoversWGS84(float64(lat), float64(lon), float64(lat+1), float64(lon+1)) {
			continue
		}
		grid, inBounds := src.SampleGrid(lat, lon, r)
		for i, v := range inBounds {
			if v && grid[i] > 0.5 {
				heights[i] = codec.WaterSentinelHeight
			}
		}
	}

	return heights, true
}
