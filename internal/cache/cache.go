// Package cache implements the per-frame tile cache driver: it
// reconciles the GPU-written used-set against the atlas's current
// residency, admitting newly-visible cells and evicting cells that
// fell out of view. Grounded on
// original_source/render/src/tile_cache.rs's TileCache/populate_tiles,
// generalized from its wgpu-specific texture/buffer handling to the
// internal/gpu interfaces, with a decoded-tile LRU in front of the
// codec grounded on other_examples/manifests/twpayne-go-elevation's
// cached-elevation-tile pattern (the closest domain match in the pack
// for "cache decoded elevation tiles by cell key").
package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/synaptic-terrain/terrainengine/internal/atlas"
	"github.com/synaptic-terrain/terrainengine/internal/container"
	"github.com/synaptic-terrain/terrainengine/internal/coord"
	"github.com/synaptic-terrain/terrainengine/internal/gpu"
	"github.com/synaptic-terrain/terrainengine/internal/hillshade"
)

// Status reports the outcome of a single PopulateTiles call.
type Status int

const (
	// StatusOK means every cell marked used this frame either holds a
	// real slot or was reported not-found for the current dataset.
	StatusOK Status = iota
	// StatusResized means the atlas grew mid-frame; every residency
	// entry was invalidated and admissions resume next frame.
	StatusResized
	// StatusAtlasFull means the atlas could not admit a tile even after
	// garbage collection and growth was refused (already at the
	// device's texture-size limit).
	StatusAtlasFull
)

type tileKey struct {
	dataset int
	cell    int
}

// Driver reconciles GPU residency against the atlas once per frame.
// It is single-threaded w.r.t. a given atlas, matching the original's
// suspension model: the used-buffer readback blocks until all prior
// GPU work against the atlas has completed.
type Driver struct {
	atlas    *atlas.Atlas
	datasets []*container.Reader // ascending resolution, one per LOD tier
	lods     map[coord.Range]int // Range -> index into datasets

	residency [container.CellCount]atlas.Slot
	usedSet   gpu.Buffer
	tileMap   gpu.Texture

	decoded *lru.Cache[tileKey, []float32]
	shade   *lru.Cache[tileKey, []byte]

	shadeParams hillshade.Params
}

// New builds a cache driver over datasets (ordered by ascending tile
// resolution, coarsest first) and an atlas sized for aspectRatio.
// decodedCacheSize bounds how many decoded height/shade tile pairs are
// kept warm across admission/eviction churn.
func New(device gpu.Device, datasets []*container.Reader, aspectRatio float64, decodedCacheSize int, shadeParams hillshade.Params) (*Driver, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("cache: at least one dataset is required")
	}

	resolutions := make([]int, len(datasets))
	for i, d := range datasets {
		resolutions[i] = int(d.Header().Resolution)
	}

	lods := make(map[coord.Range]int, len(coord.AllRanges()))
	maxResolutionTiles := 0
	for _, r := range coord.AllRanges() {
		lodIdx := coord.SelectLOD(resolutions, r.VerticalRadians(), coord.PixelDensityThreshold)
		lods[r] = lodIdx
		tiles := r.VerticalTilesLoaded() * resolutions[lodIdx]
		if tiles > maxResolutionTiles {
			maxResolutionTiles = tiles
		}
	}

	height := uint32(maxResolutionTiles)
	width := uint32(float64(maxResolutionTiles) * aspectRatio)
	a := atlas.New(device, width, height, 0)

	decoded, err := lru.New[tileKey, []float32](decodedCacheSize)
	if err != nil {
		return nil, err
	}
	shade, err := lru.New[tileKey, []byte](decodedCacheSize)
	if err != nil {
		return nil, err
	}

	usedSet := gpu.NewFakeBuffer(container.CellCount * 4)
	tileMap := device.CreateTexture(360, 180, gpu.FormatRG32Uint)

	return &Driver{
		atlas:       a,
		datasets:    datasets,
		lods:        lods,
		usedSet:     usedSet,
		tileMap:     tileMap,
		decoded:     decoded,
		shade:       shade,
		shadeParams: shadeParams,
	}, nil
}

// UsedSet exposes the buffer the rasteriser writes its per-frame
// visibility signal into before calling PopulateTiles.
func (d *Driver) UsedSet() gpu.Buffer { return d.usedSet }

// TileMap exposes the residency texture the fragment shader samples to
// map (lat, lon) to an atlas UV.
func (d *Driver) TileMap() gpu.Texture { return d.tileMap }

func (d *Driver) clearResidency() {
	unloaded := d.atlas.Unloaded()
	for i := range d.residency {
		d.residency[i] = unloaded
	}
}

// PopulateTiles reconciles the atlas against the used-set for the
// currently selected LOD range, admitting and evicting tiles as
// needed.
func (d *Driver) PopulateTiles(selected coord.Range) (Status, error) {
	datasetIdx, ok := d.lods[selected]
	if !ok {
		return StatusOK, fmt.Errorf("cache: no LOD mapping for range %v", selected)
	}
	dataset := d.datasets[datasetIdx]
	tileRes := uint32(dataset.Header().Resolution)

	if d.atlas.NeedsClear(tileRes) {
		d.atlas.Clear(tileRes)
		d.clearResidency()
	}

	used := d.usedSet.Read()
	if len(used) != container.CellCount*4 {
		return StatusOK, fmt.Errorf("cache: used-set is %d bytes, want %d", len(used), container.CellCount*4)
	}

	unloaded := d.atlas.Unloaded()
	notFound := d.atlas.NotFound()

	for idx := 0; idx < container.CellCount; idx++ {
		flag := binary.LittleEndian.Uint32(used[idx*4 : idx*4+4])
		cur := d.residency[idx]

		if flag == 0 {
			if cur != unloaded && cur != notFound {
				d.atlas.ReturnTile(cur)
				d.residency[idx] = unloaded
			}
			continue
		}
		if cur != unloaded {
			continue
		}

		lat, lon, err := coord.IndexToCell(idx)
		if err != nil {
			return StatusOK, err
		}

		heights, shadeBytes, ok, err := d.decodeTile(datasetIdx, dataset, idx, lat, lon, int(tileRes))
		if err != nil {
			return StatusOK, err
		}
		if !ok {
			d.residency[idx] = notFound
			continue
		}

		slot, admitted := d.atlas.UploadTile(heightsToBytes(heights), shadeBytes)
		if !admitted {
			d.garbageCollect(used)
			slot, admitted = d.atlas.UploadTile(heightsToBytes(heights), shadeBytes)
		}
		if !admitted {
			if err := d.atlas.Grow(); err != nil {
				return StatusAtlasFull, nil
			}
			d.clearResidency()
			return StatusResized, nil
		}

		d.residency[idx] = slot
	}

	d.writeTileMap()
	return StatusOK, nil
}

func (d *Driver) decodeTile(datasetIdx int, dataset *container.Reader, cell int, lat, lon, tileRes int) (heights []float32, shade []byte, ok bool, err error) {
	key := tileKey{dataset: datasetIdx, cell: cell}

	if h, found := d.decoded.Get(key); found {
		heights = h
	} else {
		h, exists, derr := dataset.GetTile(lat, lon)
		if derr != nil {
			return nil, nil, false, derr
		}
		if !exists {
			return nil, nil, false, nil
		}
		heights = h
		d.decoded.Add(key, heights)
	}

	if s, found := d.shade.Get(key); found {
		shade = s
	} else {
		shade = hillshade.Compute(heights, tileRes, d.shadeParams)
		d.shade.Add(key, shade)
	}

	return heights, shade, true, nil
}

// garbageCollect frees any slot whose cell reads as not-visible this
// frame but is still marked resident, giving the pending admission a
// second chance before the driver resorts to growing the atlas.
func (d *Driver) garbageCollect(used []byte) {
	unloaded := d.atlas.Unloaded()
	notFound := d.atlas.NotFound()
	for idx := 0; idx < container.CellCount; idx++ {
		flag := binary.LittleEndian.Uint32(used[idx*4 : idx*4+4])
		if flag != 0 {
			continue
		}
		cur := d.residency[idx]
		if cur != unloaded && cur != notFound {
			d.atlas.ReturnTile(cur)
			d.residency[idx] = unloaded
		}
	}
}

func (d *Driver) writeTileMap() {
	buf := make([]byte, container.CellCount*8)
	for idx, slot := range d.residency {
		binary.LittleEndian.PutUint32(buf[idx*8:idx*8+4], slot.X)
		binary.LittleEndian.PutUint32(buf[idx*8+4:idx*8+8], slot.Y)
	}
	d.tileMap.WriteRegion(0, 0, 360, 180, buf)
}

func heightsToBytes(heights []float32) []byte {
	// The atlas stores signed 16-bit texels; heights arrive as
	// reconstructed float32 metres and are rounded back to the nearest
	// integer metre for upload. Sub-metre precision lost here is a
	// rendering-only concern: the container's own stored precision is
	// governed by the codec's quantum, not this cast.
	out := make([]byte, len(heights)*2)
	for i, h := range heights {
		v := int16(math.Round(float64(h)))
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}
	return out
}
