package fusion

import (
	"testing"

	"github.com/aarnaud1/SimpleFusion/mat"
)

func TestIntegrateCameraRaySinglePoint(t *testing.T) {
	const voxelRes, tau = 0.01, 0.025
	vol := NewVolume(voxelRes, true)

	pc := &PointCloud{Points: []Point{{Position: mat.Vec3{0, 0, 1.0}, Colour: mat.Vec3{1, 0, 0}}}}
	IntegrateCameraRay(vol, pc, mat.Vec3{0, 0, 0}, voxelRes, tau)

	blockId := BlockOf(mat.Vec3{0, 0, 1.0}, voxelRes)
	voxelId := VoxelOf(mat.Vec3{0, 0, 1.0}, voxelRes)
	block := vol.GetBlock(blockId)
	if block == nil {
		t.Fatal("expected the surface block to be allocated")
	}
	if w := block.WeightAt(voxelId); w <= 0 {
		t.Errorf("expected positive weight at the surface voxel, got %v", w)
	}
	if tsdf := block.TsdfAt(voxelId); absf(tsdf) >= 0.5*voxelRes {
		t.Errorf("|tsdf| = %v, want < %v", absf(tsdf), 0.5*voxelRes)
	}
}

func TestIntegrateCameraRayEmptyCloud(t *testing.T) {
	vol := NewVolume(0.01, true)
	IntegrateCameraRay(vol, &PointCloud{}, mat.Vec3{}, 0.01, 0.025)
	if vol.NumBlocks() != 0 {
		t.Errorf("expected zero blocks for an empty point cloud, got %d", vol.NumBlocks())
	}
}

func TestIntegrateSurfaceNormalSkipsZeroNormal(t *testing.T) {
	vol := NewVolume(0.01, true)
	opc := &OrderedPointCloud{
		Width: 1, Height: 1,
		Points: []OrderedPoint{{Position: mat.Vec3{0, 0, 1}, Normal: mat.Vec3{}, Valid: true}},
	}
	IntegrateSurfaceNormal(vol, opc, 0.01, 0.025)
	if vol.NumBlocks() != 0 {
		t.Errorf("expected zero blocks when the only point has a zero normal, got %d", vol.NumBlocks())
	}
}

func TestIntegratorWeightEqualsSumOfSampleWeights(t *testing.T) {
	const voxelRes, tau = 0.01, 0.025
	vol := NewVolume(voxelRes, true)

	// Integrating the same point twice from the same camera centre adds the
	// same sample weights again, so weight accumulates additively and
	// doubles (invariant 3).
	pc := &PointCloud{Points: []Point{
		{Position: mat.Vec3{0, 0, 1.0}, Colour: mat.Vec3{1, 0, 0}},
	}}
	IntegrateCameraRay(vol, pc, mat.Vec3{0, 0, 0}, voxelRes, tau)
	blockId := BlockOf(mat.Vec3{0, 0, 1.0}, voxelRes)
	voxelId := VoxelOf(mat.Vec3{0, 0, 1.0}, voxelRes)
	w1 := vol.GetBlock(blockId).WeightAt(voxelId)

	IntegrateCameraRay(vol, pc, mat.Vec3{0, 0, 0}, voxelRes, tau)
	w2 := vol.GetBlock(blockId).WeightAt(voxelId)

	if w1 <= 0 || absf(w2-2*w1) > 1e-5*w1 {
		t.Errorf("weight after a second identical integration = %v, want the sum of both passes' sample weights %v", w2, 2*w1)
	}
}
