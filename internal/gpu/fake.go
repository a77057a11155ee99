package gpu

import "fmt"

// FakeDevice is an in-memory Device for tests, with no real rendering
// backend behind it.
type FakeDevice struct {
	// MaxDimension caps texture growth the same way a real backend's
	// device limits would. Defaults to 8192 if zero.
	MaxDimension uint32
}

func (d *FakeDevice) MaxTextureDimension2D() uint32 {
	if d.MaxDimension == 0 {
		return 8192
	}
	return d.MaxDimension
}

func (d *FakeDevice) CreateTexture(width, height uint32, format TextureFormat) Texture {
	return &FakeTexture{
		width:  width,
		height: height,
		format: format,
		data:   make([]byte, int(width)*int(height)*texelSize(format)),
	}
}

func texelSize(format TextureFormat) int {
	switch format {
	case FormatR16Sint:
		return 2
	case FormatR8Unorm:
		return 1
	case FormatRG32Uint:
		return 8
	default:
		panic(fmt.Sprintf("gpu: unknown texture format %d", format))
	}
}

// FakeTexture backs a Texture with a plain byte slice, row-major.
type FakeTexture struct {
	width, height uint32
	format        TextureFormat
	data          []byte
}

func (t *FakeTexture) Width() uint32        { return t.width }
func (t *FakeTexture) Height() uint32       { return t.height }
func (t *FakeTexture) Format() TextureFormat { return t.format }

func (t *FakeTexture) WriteRegion(originX, originY, width, height uint32, data []byte) {
	ts := texelSize(t.format)
	rowBytes := int(width) * ts
	if len(data) < rowBytes*int(height) {
		panic("gpu: WriteRegion data shorter than region")
	}
	stride := int(t.width) * ts
	for row := uint32(0); row < height; row++ {
		dstOff := (int(originY+row)*stride) + int(originX)*ts
		srcOff := int(row) * rowBytes
		copy(t.data[dstOff:dstOff+rowBytes], data[srcOff:srcOff+rowBytes])
	}
}

// ReadAll returns the texture's full backing bytes, for test assertions.
func (t *FakeTexture) ReadAll() []byte { return t.data }

// FakeBuffer backs a Buffer with a plain byte slice.
type FakeBuffer struct {
	data []byte
}

// NewFakeBuffer allocates a zeroed buffer of the given size.
func NewFakeBuffer(size int) *FakeBuffer {
	return &FakeBuffer{data: make([]byte, size)}
}

func (b *FakeBuffer) Size() int { return len(b.data) }

func (b *FakeBuffer) Read() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *FakeBuffer) Write(data []byte) {
	if len(data) != len(b.data) {
		panic("gpu: FakeBuffer.Write size mismatch")
	}
	copy(b.data, data)
}
