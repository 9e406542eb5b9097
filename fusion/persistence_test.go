package fusion

import (
	"os"
	"testing"

	"github.com/aarnaud1/SimpleFusion/mat"
)

func TestDumpPreloadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	const voxelRes = 0.01
	vol := NewVolume(voxelRes, true)
	vol.AddBlock(BlockId{2, -1, 3})
	block := vol.GetBlock(BlockId{2, -1, 3})
	block.RawTsdf()[off(VoxelId{5, 6, 7})] = 0.0042
	block.RawWeight()[off(VoxelId{5, 6, 7})] = 3.5
	block.RawGradient()[off(VoxelId{5, 6, 7})] = mat.Vec3{0.1, -0.2, 0.3}
	block.RawColour()[off(VoxelId{5, 6, 7})] = mat.Vec3{0.9, 0.5, 0.1}

	if err := DumpAll(vol, dir); err != nil {
		t.Fatalf("DumpAll: %v", err)
	}
	if _, err := os.Stat(dir + "/2_-1_3.gz"); err != nil {
		t.Fatalf("expected dump file 2_-1_3.gz: %v", err)
	}

	restored := NewVolume(voxelRes, true)
	if err := Preload(restored, dir); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if !restored.Find(BlockId{2, -1, 3}) {
		t.Fatal("expected the restored volume to contain the dumped block")
	}
	rblock := restored.GetBlock(BlockId{2, -1, 3})
	voxelId := VoxelId{5, 6, 7}
	if got := rblock.TsdfAt(voxelId); got != 0.0042 {
		t.Errorf("tsdf = %v, want 0.0042", got)
	}
	if got := rblock.WeightAt(voxelId); got != 3.5 {
		t.Errorf("weight = %v, want 3.5", got)
	}
	if got := rblock.GradientAt(voxelId); got != (mat.Vec3{0.1, -0.2, 0.3}) {
		t.Errorf("gradient = %v, want (0.1,-0.2,0.3)", got)
	}
	if got := rblock.ColourAt(voxelId); got != (mat.Vec3{0.9, 0.5, 0.1}) {
		t.Errorf("colour = %v, want (0.9,0.5,0.1)", got)
	}
}

func TestPreloadIgnoresUnknownExtensions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/notes.txt", []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	vol := NewVolume(0.01, false)
	if err := Preload(vol, dir); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if vol.NumBlocks() != 0 {
		t.Errorf("expected zero blocks after preloading a directory with no .gz files, got %d", vol.NumBlocks())
	}
}
