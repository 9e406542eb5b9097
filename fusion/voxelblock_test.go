package fusion

import (
	"math"
	"testing"

	"github.com/aarnaud1/SimpleFusion/mat"
)

func TestNewVoxelBlockInitialState(t *testing.T) {
	b := NewVoxelBlock(0.01, true)
	id := VoxelId{1, 2, 3}
	if b.TsdfAt(id) != Invalid {
		t.Errorf("expected Invalid tsdf, got %v", b.TsdfAt(id))
	}
	if b.WeightAt(id) != 0 {
		t.Errorf("expected zero weight, got %v", b.WeightAt(id))
	}
	if b.ColourAt(id) != (mat.Vec3{}) {
		t.Errorf("expected zero colour, got %v", b.ColourAt(id))
	}
}

func TestVoxelBlockClearResetsToConstructionState(t *testing.T) {
	b := NewVoxelBlock(0.01, true)
	id := VoxelId{0, 0, 0}
	b.Lock()
	b.integrate(id, 0.01, 1, mat.Vec3{0.5, 0.5, 0.5})
	b.Unlock()
	if b.WeightAt(id) == 0 {
		t.Fatal("sanity: integrate should have set a nonzero weight")
	}
	b.Clear()
	if b.TsdfAt(id) != Invalid || b.WeightAt(id) != 0 {
		t.Errorf("Clear did not reset voxel %v", id)
	}
}

func TestIntegrateWeightedMean(t *testing.T) {
	b := NewVoxelBlock(0.01, true)
	id := VoxelId{4, 4, 4}

	b.Lock()
	b.integrate(id, 0.01, 2.0, mat.Vec3{1, 0, 0})
	b.integrate(id, -0.01, 1.0, mat.Vec3{0, 1, 0})
	b.Unlock()

	wantWeight := float32(3.0)
	if math.Abs(float64(b.WeightAt(id)-wantWeight)) > 1e-6 {
		t.Errorf("weight = %v, want %v", b.WeightAt(id), wantWeight)
	}
	wantTsdf := float32((2.0*0.01 + 1.0*-0.01) / 3.0)
	if math.Abs(float64(b.TsdfAt(id)-wantTsdf)) > 1e-6 {
		t.Errorf("tsdf = %v, want %v", b.TsdfAt(id), wantTsdf)
	}
	// tsdf must be a convex combination of the two samples.
	if b.TsdfAt(id) < -0.01 || b.TsdfAt(id) > 0.01 {
		t.Errorf("tsdf %v not a convex combination of [-0.01, 0.01]", b.TsdfAt(id))
	}
}

func TestVoxelBlockWithoutColourSkipsColourArray(t *testing.T) {
	b := NewVoxelBlock(0.01, false)
	if b.UseColour() {
		t.Fatal("expected UseColour() == false")
	}
	id := VoxelId{0, 0, 0}
	b.Lock()
	b.integrate(id, 0, 1, mat.Vec3{1, 1, 1})
	b.Unlock()
	if b.ColourAt(id) != (mat.Vec3{}) {
		t.Errorf("colour-disabled block should not update colour, got %v", b.ColourAt(id))
	}
}
