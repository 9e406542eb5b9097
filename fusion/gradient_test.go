package fusion

import (
	"testing"

	"github.com/aarnaud1/SimpleFusion/mat"
)

func TestGradientZeroWithoutNeighbours(t *testing.T) {
	vol := NewVolume(0.01, false)
	vol.AddBlock(BlockId{0, 0, 0})
	UpdateAllGradients(vol)

	block := vol.GetBlock(BlockId{0, 0, 0})
	g := block.GradientAt(VoxelId{8, 8, 8})
	if g != (mat.Vec3{}) {
		t.Errorf("gradient of an all-Invalid block should be zero, got %v", g)
	}
}

func TestGradientCentralDifferenceWithinBlock(t *testing.T) {
	const voxelRes = 0.01
	vol := NewVolume(voxelRes, false)
	vol.AddBlock(BlockId{0, 0, 0})
	block := vol.GetBlock(BlockId{0, 0, 0})

	// Linear ramp along X, tsdf in world units: tsdf(x) = x*voxelRes. The
	// central difference spans 2 voxels but is divided by voxelRes alone
	// (not 2*voxelRes), so a unit world-space slope reads as gradient 2.
	raw := block.RawTsdf()
	for x := int32(0); x < BlockSize; x++ {
		for y := int32(0); y < BlockSize; y++ {
			for z := int32(0); z < BlockSize; z++ {
				raw[off(VoxelId{x, y, z})] = float32(x) * voxelRes
			}
		}
	}

	UpdateAllGradients(vol)
	g := block.GradientAt(VoxelId{8, 8, 8})
	want := mat.Vec3{2, 0, 0}
	const eps = 1e-4
	if absf(g[0]-want[0]) > eps || absf(g[1]-want[1]) > eps || absf(g[2]-want[2]) > eps {
		t.Errorf("gradient = %v, want %v", g, want)
	}
}

func TestGradientBorrowsAcrossBlockBoundary(t *testing.T) {
	const voxelRes = 0.01
	vol := NewVolume(voxelRes, false)
	vol.AddBlock(BlockId{0, 0, 0})
	vol.AddBlock(BlockId{1, 0, 0})

	a := vol.GetBlock(BlockId{0, 0, 0})
	b := vol.GetBlock(BlockId{1, 0, 0})
	rawA := a.RawTsdf()
	rawB := b.RawTsdf()
	for y := int32(0); y < BlockSize; y++ {
		for z := int32(0); z < BlockSize; z++ {
			rawA[off(VoxelId{BlockSize - 1, y, z})] = 0
			rawB[off(VoxelId{0, y, z})] = 2
		}
	}

	UpdateAllGradients(vol)
	g := a.GradientAt(VoxelId{BlockSize - 1, 8, 8})
	// tsdf(+1) borrows block b's voxel 0 (value 2); tsdf(-1) is still
	// Invalid within block a and reads as 0.
	invh := float32(1 / voxelRes)
	wantGx := 2 * invh
	if absf(g[0]-wantGx) > 1e-3 {
		t.Errorf("gx across boundary = %v, want %v", g[0], wantGx)
	}
}
