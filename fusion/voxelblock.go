package fusion

import (
	"math"
	"sync"

	"github.com/aarnaud1/SimpleFusion/mat"
)

// Invalid marks a voxel that has never received an integration sample
// (spec §3).
var Invalid = float32(math.Inf(1))

// VoxelBlock owns the four parallel BlockVolume-length arrays for one
// block: tsdf, weight, colour and gradient. The four arrays move together
// and are dropped together; callers enforce per-block exclusivity (spec
// §4.2) via mu.
type VoxelBlock struct {
	mu sync.Mutex

	voxelRes  float32
	useColour bool

	tsdf     [BlockVolume]float32
	weight   [BlockVolume]float32
	colour   [BlockVolume]mat.Vec3
	gradient [BlockVolume]mat.Vec3
}

// NewVoxelBlock allocates a block at the construction-time resolution,
// initialising tsdf to Invalid and weight/colour/gradient to zero.
func NewVoxelBlock(voxelRes float32, useColour bool) *VoxelBlock {
	b := &VoxelBlock{voxelRes: voxelRes, useColour: useColour}
	for i := range b.tsdf {
		b.tsdf[i] = Invalid
	}
	return b
}

func (b *VoxelBlock) UseColour() bool { return b.useColour }

func (b *VoxelBlock) TsdfAt(id VoxelId) float32     { return b.tsdf[off(id)] }
func (b *VoxelBlock) WeightAt(id VoxelId) float32   { return b.weight[off(id)] }
func (b *VoxelBlock) ColourAt(id VoxelId) mat.Vec3  { return b.colour[off(id)] }
func (b *VoxelBlock) GradientAt(id VoxelId) mat.Vec3 { return b.gradient[off(id)] }

// RawTsdf/RawWeight/RawColour/RawGradient give bulk access for the
// integrator, gradient pass and mesh extractor; callers must hold Lock
// while mutating.
func (b *VoxelBlock) RawTsdf() *[BlockVolume]float32      { return &b.tsdf }
func (b *VoxelBlock) RawWeight() *[BlockVolume]float32    { return &b.weight }
func (b *VoxelBlock) RawColour() *[BlockVolume]mat.Vec3   { return &b.colour }
func (b *VoxelBlock) RawGradient() *[BlockVolume]mat.Vec3 { return &b.gradient }

func (b *VoxelBlock) SetGradientAt(id VoxelId, g mat.Vec3) { b.gradient[off(id)] = g }

// Lock/Unlock serialise per-voxel read-modify-write against the integrator
// (spec §4.5/§9, option (b): per-block locking over the accepted race).
func (b *VoxelBlock) Lock()   { b.mu.Lock() }
func (b *VoxelBlock) Unlock() { b.mu.Unlock() }

// Clear resets the block to its just-constructed state.
func (b *VoxelBlock) Clear() {
	for i := range b.tsdf {
		b.tsdf[i] = Invalid
		b.weight[i] = 0
		b.gradient[i] = mat.Vec3{}
		if b.useColour {
			b.colour[i] = mat.Vec3{}
		}
	}
}

// integrate performs the running-weighted-average update for one sample at
// voxel id (spec §4.5, step 6). Caller must hold Lock.
func (b *VoxelBlock) integrate(id VoxelId, t, wNew float32, colourIn mat.Vec3) {
	i := off(id)
	wOld := b.weight[i]
	wSum := wOld + wNew
	if b.tsdf[i] == Invalid {
		b.tsdf[i] = t
	} else {
		b.tsdf[i] = (wOld*b.tsdf[i] + wNew*t) / wSum
	}
	if b.useColour {
		b.colour[i] = b.colour[i].Mul(wOld).Add(colourIn.Mul(wNew)).Mul(1 / wSum)
	}
	b.weight[i] = wSum
}
