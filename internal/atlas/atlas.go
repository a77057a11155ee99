// Package atlas implements the GPU-resident tile atlas: a 2-D texture
// that tiles of a single resolution are packed into by bump allocation,
// with evicted slots recycled through a free list before the bump
// pointer advances further. Grounded on
// original_source/render/src/tile_cache.rs's Atlas struct, generalized
// from a wgpu-specific implementation to the internal/gpu interfaces.
package atlas

import (
	"errors"

	"github.com/synaptic-terrain/terrainengine/internal/gpu"
)

// ErrAlreadyMaximum is returned by Grow when both atlas dimensions are
// already clamped to the device's texture-size limit.
var ErrAlreadyMaximum = errors.New("atlas: already at maximum texture size")

// Slot identifies an R x R region of the atlas by its top-left texel.
type Slot struct {
	X, Y uint32
}

// Atlas packs same-resolution tiles into a heightmap texture and a
// parallel hillshade texture of identical dimensions.
type Atlas struct {
	device    gpu.Device
	height    gpu.Texture
	hillshade gpu.Texture

	width, height_ uint32
	tileRes        uint32

	currOffset Slot
	freeList   []Slot
}

// New creates an atlas of the given initial dimensions for tiles of
// side length tileRes.
func New(device gpu.Device, width, height, tileRes uint32) *Atlas {
	a := &Atlas{
		device:  device,
		width:   width,
		height_: height,
		tileRes: tileRes,
	}
	a.height = device.CreateTexture(width, height, gpu.FormatR16Sint)
	a.hillshade = device.CreateTexture(width, height, gpu.FormatR8Unorm)
	return a
}

// Width and Height report the atlas's current texture dimensions.
func (a *Atlas) Width() uint32  { return a.width }
func (a *Atlas) Height() uint32 { return a.height_ }

// TileResolution reports the side length of tiles currently packed.
func (a *Atlas) TileResolution() uint32 { return a.tileRes }

// Unloaded is the sentinel slot meaning "no tile resident here". It is
// chosen outside the valid slot range (y == height) so it can never
// collide with a real bump-allocated offset.
func (a *Atlas) Unloaded() Slot { return Slot{X: 0, Y: a.height_} }

// NotFound is the sentinel slot meaning "looked up, dataset has no
// tile for this cell". Chosen outside the valid range on the x axis.
func (a *Atlas) NotFound() Slot { return Slot{X: a.width, Y: 0} }

// NeedsClear reports whether the atlas is currently packing a
// different tile resolution than tileRes, meaning a LOD switch
// occurred and all residency must be invalidated before reuse.
func (a *Atlas) NeedsClear(tileRes uint32) bool { return tileRes != a.tileRes }

// Clear resets the bump allocator and free list for a new tile
// resolution. Callers must also reset their own residency table to
// Unloaded for every cell; the atlas has no visibility into residency.
func (a *Atlas) Clear(tileRes uint32) {
	a.tileRes = tileRes
	a.currOffset = Slot{}
	a.freeList = a.freeList[:0]
}

// ReturnTile releases a previously admitted slot back to the free
// list, to be handed out again before the bump pointer advances.
func (a *Atlas) ReturnTile(slot Slot) {
	a.freeList = append(a.freeList, slot)
}

// UploadTile writes heightData (tileRes*tileRes, 2 bytes per texel,
// row-major) and hillshadeData (tileRes*tileRes, 1 byte per texel) into
// a slot and returns it. ok is false if no slot is available — from the
// free list or by bump allocation — signalling the caller to garbage
// collect or grow the atlas before retrying.
func (a *Atlas) UploadTile(heightData, hillshadeData []byte) (slot Slot, ok bool) {
	if n := len(a.freeList); n > 0 {
		slot = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
	} else {
		slot = a.currOffset
		if slot.Y+a.tileRes > a.height_ {
			return Slot{}, false
		}
	}

	a.height.WriteRegion(slot.X, slot.Y, a.tileRes, a.tileRes, heightData)
	a.hillshade.WriteRegion(slot.X, slot.Y, a.tileRes, a.tileRes, hillshadeData)

	if slot == a.currOffset {
		a.currOffset.X += a.tileRes
		if a.currOffset.X+a.tileRes > a.width {
			a.currOffset.X = 0
			a.currOffset.Y += a.tileRes
		}
	}

	return slot, true
}

// Grow doubles the atlas's width and height, clamped to the device's
// maximum texture dimension, and reallocates both textures. It returns
// ErrAlreadyMaximum if both axes are already at that limit. Callers
// must treat growth as invalidating every existing residency entry:
// the old textures are discarded, so nothing previously uploaded
// survives.
func (a *Atlas) Grow() error {
	limit := a.device.MaxTextureDimension2D()
	if a.width == limit && a.height_ == limit {
		return ErrAlreadyMaximum
	}

	width := a.width * 2
	if width > limit {
		width = limit
	}
	height := a.height_ * 2
	if height > limit {
		height = limit
	}

	a.height = a.device.CreateTexture(width, height, gpu.FormatR16Sint)
	a.hillshade = a.device.CreateTexture(width, height, gpu.FormatR8Unorm)
	a.width = width
	a.height_ = height
	a.currOffset = Slot{}
	a.freeList = a.freeList[:0]

	return nil
}
