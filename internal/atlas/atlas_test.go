package atlas

import (
	"testing"

	"github.com/synaptic-terrain/terrainengine/internal/gpu"
)

func TestAtlas_BumpAllocatesThenReturnsToFreeList(t *testing.T) {
	device := &gpu.FakeDevice{MaxDimension: 4096}
	a := New(device, 64, 64, 16)

	heights := make([]byte, 16*16*2)
	shades := make([]byte, 16*16)

	first, ok := a.UploadTile(heights, shades)
	if !ok {
		t.Fatalf("expected first slot to be available")
	}
	if first != (Slot{X: 0, Y: 0}) {
		t.Fatalf("first slot = %+v, want (0,0)", first)
	}

	second, ok := a.UploadTile(heights, shades)
	if !ok {
		t.Fatalf("expected second slot to be available")
	}
	if second != (Slot{X: 16, Y: 0}) {
		t.Fatalf("second slot = %+v, want (16,0)", second)
	}

	a.ReturnTile(first)
	third, ok := a.UploadTile(heights, shades)
	if !ok {
		t.Fatalf("expected free-list slot to be reused")
	}
	if third != first {
		t.Fatalf("third slot = %+v, want reused free-list slot %+v", third, first)
	}
}

func TestAtlas_RowWrapsOnExhaustion(t *testing.T) {
	device := &gpu.FakeDevice{MaxDimension: 4096}
	a := New(device, 32, 32, 16) // exactly 2 slots per row

	heights := make([]byte, 16*16*2)
	shades := make([]byte, 16*16)

	a.UploadTile(heights, shades) // (0,0)
	a.UploadTile(heights, shades) // (16,0)
	third, ok := a.UploadTile(heights, shades)
	if !ok {
		t.Fatalf("expected third slot after row wrap")
	}
	if third != (Slot{X: 0, Y: 16}) {
		t.Fatalf("third slot = %+v, want (0,16) after wrap", third)
	}
}

func TestAtlas_ExhaustionSignalsFailure(t *testing.T) {
	device := &gpu.FakeDevice{MaxDimension: 4096}
	a := New(device, 16, 16, 16) // exactly one slot total

	heights := make([]byte, 16*16*2)
	shades := make([]byte, 16*16)

	if _, ok := a.UploadTile(heights, shades); !ok {
		t.Fatalf("expected the only slot to be available")
	}
	if _, ok := a.UploadTile(heights, shades); ok {
		t.Fatalf("expected atlas to report exhaustion")
	}
}

func TestAtlas_GrowDoublesDimensionsAndClampsToDeviceLimit(t *testing.T) {
	device := &gpu.FakeDevice{MaxDimension: 48}
	a := New(device, 32, 32, 16)

	if err := a.Grow(); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if a.Width() != 48 || a.Height() != 48 {
		t.Fatalf("after grow: %dx%d, want clamped to 48x48", a.Width(), a.Height())
	}

	if err := a.Grow(); err == nil {
		t.Fatalf("expected ErrAlreadyMaximum once both axes are clamped")
	} else if err != ErrAlreadyMaximum {
		t.Fatalf("Grow error = %v, want ErrAlreadyMaximum", err)
	}
}

func TestAtlas_ClearResetsBumpAllocatorAndFreeList(t *testing.T) {
	device := &gpu.FakeDevice{MaxDimension: 4096}
	a := New(device, 64, 64, 16)

	heights := make([]byte, 16*16*2)
	shades := make([]byte, 16*16)
	slot, _ := a.UploadTile(heights, shades)
	a.ReturnTile(slot)

	if !a.NeedsClear(32) {
		t.Fatalf("NeedsClear should report true for a different tile resolution")
	}
	a.Clear(32)
	if a.NeedsClear(32) {
		t.Fatalf("NeedsClear should report false immediately after Clear")
	}

	newHeights := make([]byte, 32*32*2)
	newShades := make([]byte, 32*32)
	first, ok := a.UploadTile(newHeights, newShades)
	if !ok || first != (Slot{X: 0, Y: 0}) {
		t.Fatalf("first slot after clear = %+v, ok=%v, want (0,0), true", first, ok)
	}
}

func TestAtlas_Sentinels(t *testing.T) {
	device := &gpu.FakeDevice{MaxDimension: 4096}
	a := New(device, 64, 32, 16)

	if a.Unloaded() != (Slot{X: 0, Y: 32}) {
		t.Fatalf("Unloaded = %+v, want (0,32)", a.Unloaded())
	}
	if a.NotFound() != (Slot{X: 64, Y: 0}) {
		t.Fatalf("NotFound = %+v, want (64,0)", a.NotFound())
	}
}
