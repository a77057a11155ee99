// Package gpu declares the minimal device surface the atlas and tile
// cache driver need from a GPU backend. No real backend is wired here:
// the rasteriser and its device are an external collaborator, out of
// scope for this engine (see the design notes for why no published
// WebGPU binding was adopted). Production use supplies a Device built
// on whatever graphics API the host process already uses; tests use
// the in-memory fake in this package.
package gpu

// TextureFormat names the pixel layout of a Texture. Only the formats
// the atlas and cache actually use are listed.
type TextureFormat int

const (
	// FormatR16Sint holds signed 16-bit height texels.
	FormatR16Sint TextureFormat = iota
	// FormatR8Unorm holds single-channel 8-bit hillshade texels.
	FormatR8Unorm
	// FormatRG32Uint holds the 360x180 residency map, two uint32 per
	// texel (slot x, slot y).
	FormatRG32Uint
)

// Device creates textures and reports backend limits.
type Device interface {
	// CreateTexture allocates a 2-D texture of the given dimensions and
	// format, bound for both sampling and copy-destination use.
	CreateTexture(width, height uint32, format TextureFormat) Texture

	// MaxTextureDimension2D is the largest width or height the backend
	// supports for a single 2-D texture.
	MaxTextureDimension2D() uint32
}

// Texture is a 2-D GPU texture that can be partially overwritten.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() TextureFormat

	// WriteRegion uploads data into the rectangle
	// (originX, originY, width, height). data is tightly packed,
	// row-major, in the texture's native texel size.
	WriteRegion(originX, originY, width, height uint32, data []byte)
}

// Buffer is a host-visible storage buffer, used for the GPU-written
// used-set the cache driver reads back once per frame.
type Buffer interface {
	Size() int

	// Read blocks until the buffer's current contents are host-visible
	// and returns a copy of them. Real backends map the buffer and wait
	// for the device to go idle; the fake returns immediately.
	Read() []byte

	// Write overwrites the buffer's contents, for tests that need to
	// simulate the rasteriser's used-set writes.
	Write(data []byte)
}
