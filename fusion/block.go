package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// BlockSize is B: the cubic side length of a voxel block, in voxels.
const BlockSize = 16

// blockShift satisfies 1<<blockShift == BlockSize; indices are shifted
// rather than divided wherever the original used it, per BlockUtils.hpp.
const blockShift = 4

// BlockVolume is B^3, the number of voxels in one block.
const BlockVolume = BlockSize * BlockSize * BlockSize

const (
	hashP1 = 73856093
	hashP2 = 19349663
	hashP3 = 83492791
)

// Index3 is a signed 3-D integer index, shared representation for both
// block ids and local voxel ids (spec §3).
type Index3 struct {
	X, Y, Z int32
}

func NewIndex3(x, y, z int32) Index3 { return Index3{x, y, z} }

func (a Index3) Add(b Index3) Index3 { return Index3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Index3) Sub(b Index3) Index3 { return Index3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

func (a Index3) Mul(k int32) Index3 { return Index3{a.X * k, a.Y * k, a.Z * k} }

// Less gives the lexicographic order used for deterministic iteration and
// as a total order over block ids (spec §3).
func (a Index3) Less(b Index3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// BlockId indexes a cubic chunk of BlockSize^3 voxels. Defined (not
// aliased) from Index3 so the block-id and voxel-id spaces cannot be
// silently mixed: passing a VoxelId where a BlockId is expected is a
// compile error, and crossing between them requires an explicit
// Index3(...) conversion.
type BlockId Index3

// VoxelId indexes a single voxel inside a block; each coordinate is in
// [0, BlockSize).
type VoxelId Index3

// Hash implements spec §3's hash: h = x*P1 XOR y*P2 XOR P3*z.
func (a Index3) Hash() uint64 {
	return uint64(a.X)*hashP1 ^ uint64(a.Y)*hashP2 ^ uint64(a.Z)*hashP3
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func euclidMod(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func floorDivF(v, s float32) int32 {
	return int32(floorf(v / s))
}

// BlockOf returns the id of the block containing world point p, at voxel
// resolution voxelRes (spec §4.1).
func BlockOf(p mat.Vec3, voxelRes float32) BlockId {
	return BlockId{
		floorDivF(p[0], voxelRes) >> blockShift,
		floorDivF(p[1], voxelRes) >> blockShift,
		floorDivF(p[2], voxelRes) >> blockShift,
	}
}

// VoxelOf returns the local voxel id of world point p within its block, at
// voxel resolution voxelRes (spec §4.1); always in [0, BlockSize)^3.
func VoxelOf(p mat.Vec3, voxelRes float32) VoxelId {
	return VoxelId{
		euclidMod(floorDivF(p[0], voxelRes), BlockSize),
		euclidMod(floorDivF(p[1], voxelRes), BlockSize),
		euclidMod(floorDivF(p[2], voxelRes), BlockSize),
	}
}

// AbsoluteVoxel returns the voxel id in the global (unblocked) voxel grid:
// B*blockId + voxelId.
func AbsoluteVoxel(blockId BlockId, voxelId VoxelId) Index3 {
	return Index3(blockId).Mul(BlockSize).Add(Index3(voxelId))
}

// VoxelCentre returns the world-space origin of the voxel cell identified
// by an absolute (unblocked) voxel index: s * absVoxel.
func VoxelCentre(absVoxel Index3, voxelRes float32) mat.Vec3 {
	return mat.Vec3{
		float32(absVoxel.X) * voxelRes,
		float32(absVoxel.Y) * voxelRes,
		float32(absVoxel.Z) * voxelRes,
	}
}

// off linearises a voxel id inside a block: off = i + B*j + B^2*k.
func off(id VoxelId) int {
	return int(id.X) + BlockSize*int(id.Y) + BlockSize*BlockSize*int(id.Z)
}
