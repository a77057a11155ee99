package cache

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/synaptic-terrain/terrainengine/internal/codec"
	"github.com/synaptic-terrain/terrainengine/internal/container"
	"github.com/synaptic-terrain/terrainengine/internal/coord"
	"github.com/synaptic-terrain/terrainengine/internal/gpu"
	"github.com/synaptic-terrain/terrainengine/internal/hillshade"
)

func buildTestDataset(t *testing.T, r, h uint16, cells [][2]int) *container.Reader {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "terrain.bin")

	w, err := container.Create(path, container.Header{Version: codec.FormatZstd, Resolution: r, HeightResolution: h})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, cell := range cells {
		heights := make([]float32, int(r)*int(r))
		for i := range heights {
			heights[i] = float32(50 + i%20)
		}
		if err := w.AddTile(cell[0], cell[1], heights); err != nil {
			t.Fatalf("AddTile: %v", err)
		}
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	reader, err := container.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return reader
}

func setUsed(buf gpu.Buffer, cells []int) {
	data := make([]byte, container.CellCount*4)
	for _, idx := range cells {
		binary.LittleEndian.PutUint32(data[idx*4:idx*4+4], 1)
	}
	buf.Write(data)
}

func TestDriver_AdmitsVisibleTiles(t *testing.T) {
	dataset := buildTestDataset(t, 16, 5, [][2]int{{10, 20}, {11, 20}})
	device := &gpu.FakeDevice{MaxDimension: 4096}

	d, err := New(device, []*container.Reader{dataset}, 1.0, 16, hillshade.DefaultParams)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	idx1, _ := coord.CellIndex(10, 20)
	idx2, _ := coord.CellIndex(11, 20)
	setUsed(d.UsedSet(), []int{idx1, idx2})

	status, err := d.PopulateTiles(coord.Range2nm)
	if err != nil {
		t.Fatalf("PopulateTiles: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}

	unloaded := d.atlas.Unloaded()
	if d.residency[idx1] == unloaded || d.residency[idx2] == unloaded {
		t.Fatalf("expected both visible cells to have a real slot")
	}
	if d.residency[idx1] == d.residency[idx2] {
		t.Fatalf("two resident tiles should not share a slot")
	}
}

func TestDriver_MarksAbsentCellsNotFound(t *testing.T) {
	dataset := buildTestDataset(t, 16, 5, nil)
	device := &gpu.FakeDevice{MaxDimension: 4096}

	d, err := New(device, []*container.Reader{dataset}, 1.0, 16, hillshade.DefaultParams)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	idx, _ := coord.CellIndex(3, 3)
	setUsed(d.UsedSet(), []int{idx})

	if _, err := d.PopulateTiles(coord.Range2nm); err != nil {
		t.Fatalf("PopulateTiles: %v", err)
	}

	if d.residency[idx] != d.atlas.NotFound() {
		t.Fatalf("expected absent cell to be marked NotFound")
	}
}

func TestDriver_EvictsTilesNoLongerUsed(t *testing.T) {
	dataset := buildTestDataset(t, 16, 5, [][2]int{{0, 0}})
	device := &gpu.FakeDevice{MaxDimension: 4096}

	d, err := New(device, []*container.Reader{dataset}, 1.0, 16, hillshade.DefaultParams)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	idx, _ := coord.CellIndex(0, 0)
	setUsed(d.UsedSet(), []int{idx})
	if _, err := d.PopulateTiles(coord.Range2nm); err != nil {
		t.Fatalf("PopulateTiles: %v", err)
	}
	if d.residency[idx] == d.atlas.Unloaded() {
		t.Fatalf("expected cell to be admitted first")
	}

	setUsed(d.UsedSet(), nil) // nothing used this frame
	if _, err := d.PopulateTiles(coord.Range2nm); err != nil {
		t.Fatalf("PopulateTiles: %v", err)
	}
	if d.residency[idx] != d.atlas.Unloaded() {
		t.Fatalf("expected evicted cell to return to Unloaded")
	}
}

func TestDriver_LODSwitchInvalidatesResidency(t *testing.T) {
	coarse := buildTestDataset(t, 16, 5, [][2]int{{0, 0}})
	fine := buildTestDataset(t, 32, 1, [][2]int{{0, 0}})
	device := &gpu.FakeDevice{MaxDimension: 4096}

	d, err := New(device, []*container.Reader{coarse, fine}, 1.0, 16, hillshade.DefaultParams)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Force the two ranges onto different datasets directly: the real
	// pixel-density threshold needs far larger resolutions than a fast
	// unit test wants to encode/decode to actually diverge, and this
	// test's purpose is the residency-invalidation mechanism, not the
	// threshold arithmetic (covered by internal/coord's own tests).
	d.lods[coord.Range2nm] = 0
	d.lods[coord.Range640nm] = 1

	idx, _ := coord.CellIndex(0, 0)
	setUsed(d.UsedSet(), []int{idx})

	if _, err := d.PopulateTiles(coord.Range2nm); err != nil {
		t.Fatalf("PopulateTiles at close range: %v", err)
	}
	if d.residency[idx] == d.atlas.Unloaded() {
		t.Fatalf("expected cell to be admitted at close range")
	}

	if _, err := d.PopulateTiles(coord.Range640nm); err != nil {
		t.Fatalf("PopulateTiles at far range: %v", err)
	}
	// A LOD switch clears and re-admits; the cell should still resolve
	// (possibly to a different slot) rather than staying stuck.
	if d.residency[idx] == d.atlas.Unloaded() {
		t.Fatalf("expected cell to be re-admitted after LOD switch")
	}
}
