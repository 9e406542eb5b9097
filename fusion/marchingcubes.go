package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// isoValue is the level set extracted by the mesh extractor; the TSDF
// zero crossing (spec §4.7).
const isoValue float32 = 0

// mcEpsilon is the degenerate-interpolation threshold (spec §4.7).
const mcEpsilon float32 = 1e-5

// maxTrianglesPerBlock is the triangle budget enforced per block (spec
// §4.7: "≤ 2*B^3").
const maxTrianglesPerBlock = 2 * BlockVolume

// mcCorner is one cube corner's sampled field values, resolved through
// whichever block actually owns it (spec §4.6's padded-neighbour pattern,
// reused here for mesh extraction across block boundaries).
type mcCorner struct {
	valid    bool
	tsdf     float32
	pos      mat.Vec3
	colour   mat.Vec3
	gradient mat.Vec3
}

// sampleCorner resolves local (possibly out-of-range on the +X/+Y/+Z
// faces) into the owning block and fetches its field values. A missing
// owning block, or a never-integrated (Invalid) voxel, both read as
// invalid — disqualifying any cube that touches them (spec §4.7: "any
// corner with tsdf == INVALID disqualifies the cube").
func sampleCorner(vol *Volume, blockId BlockId, local Index3, voxelRes float32) mcCorner {
	nbBlock, nbVoxel := blockId, local
	if nbVoxel.X >= BlockSize {
		nbBlock.X++
		nbVoxel.X -= BlockSize
	}
	if nbVoxel.Y >= BlockSize {
		nbBlock.Y++
		nbVoxel.Y -= BlockSize
	}
	if nbVoxel.Z >= BlockSize {
		nbBlock.Z++
		nbVoxel.Z -= BlockSize
	}

	block := vol.GetBlock(nbBlock)
	if block == nil {
		return mcCorner{}
	}
	voxelId := VoxelId(nbVoxel)
	t := block.TsdfAt(voxelId)
	if t == Invalid {
		return mcCorner{}
	}
	absVoxel := AbsoluteVoxel(nbBlock, voxelId)
	return mcCorner{
		valid:    true,
		tsdf:     t,
		pos:      VoxelCentre(absVoxel, voxelRes),
		colour:   block.ColourAt(voxelId),
		gradient: block.GradientAt(voxelId),
	}
}

// interpMu returns the edge interpolation parameter for tsdf values ta, tb
// straddling isoValue, clamping the three degenerate cases to a corner
// value (spec §4.7).
func interpMu(ta, tb float32) float32 {
	if absf(isoValue-ta) < mcEpsilon {
		return 0
	}
	if absf(isoValue-tb) < mcEpsilon {
		return 1
	}
	if absf(ta-tb) < mcEpsilon {
		return 0.5
	}
	return (isoValue - ta) / (tb - ta)
}

func lerpVec3(a, b mat.Vec3, mu float32) mat.Vec3 {
	return a.Add(b.Sub(a).Mul(mu))
}

// processCube evaluates the single Marching Cubes cube whose minimum
// corner is at origin (in blockId's local voxel coordinates, possibly
// extending one voxel past BlockSize on any axis) and appends any emitted
// triangles to m. It returns a CapacityError if the block's triangle
// budget is exceeded (spec §4.7, §7).
func processCube(vol *Volume, blockId BlockId, origin Index3, voxelRes float32, m *Mesh) error {
	var corners [8]mcCorner
	for c := 0; c < 8; c++ {
		corners[c] = sampleCorner(vol, blockId, origin.Add(mcCornerOffset[c]), voxelRes)
		if !corners[c].valid {
			// Degenerate cube: at least one corner was never integrated.
			// Locally recovered by emitting nothing (spec §7, GeometryError).
			return nil
		}
	}

	cubeIndex := 0
	for c := 0; c < 8; c++ {
		if corners[c].tsdf < isoValue {
			cubeIndex |= 1 << c
		}
	}

	edges := mcEdgeTable[cubeIndex]
	if edges == 0 {
		return nil
	}

	var vertPos, vertColour, vertGrad [12]mat.Vec3
	for e := 0; e < 12; e++ {
		if edges&(1<<uint(e)) == 0 {
			continue
		}
		a, b := mcEdgeCorners[e][0], mcEdgeCorners[e][1]
		ca, cb := corners[a], corners[b]
		mu := interpMu(ca.tsdf, cb.tsdf)
		vertPos[e] = lerpVec3(ca.pos, cb.pos, mu)
		vertColour[e] = lerpVec3(ca.colour, cb.colour, mu)
		vertGrad[e] = lerpVec3(ca.gradient, cb.gradient, mu)
	}

	tri := mcTriTable[cubeIndex]
	for i := 0; i < len(tri) && tri[i] != -1; i += 3 {
		if m.NumTriangles() >= maxTrianglesPerBlock {
			return NewCapacityError("block triangles", maxTrianglesPerBlock, m.NumTriangles()+1)
		}
		for k := 0; k < 3; k++ {
			e := tri[i+k]
			n := vertGrad[e]
			norm := n.Norm()
			normal := mat.Vec3{}
			if norm > 0 {
				normal = n.Mul(1 / norm)
			}
			m.addVertex(vertPos[e], vertColour[e], normal)
		}
	}
	return nil
}

// extractBlockMesh runs the inner pass plus the seven boundary passes
// (three faces, three edges, one corner) for
// blockId, in the order spec §4.7 names them, gating each boundary pass on
// the presence of every neighbour block it reaches into.
func extractBlockMesh(vol *Volume, blockId BlockId, voxelRes float32) (*Mesh, error) {
	const last = BlockSize - 1
	m := &Mesh{}

	present := func(offset Index3) bool { return vol.GetBlock(BlockId(Index3(blockId).Add(offset))) != nil }

	// 1. Inner: cubes fully inside the block.
	for k := int32(0); k < last; k++ {
		for j := int32(0); j < last; j++ {
			for i := int32(0); i < last; i++ {
				if err := processCube(vol, blockId, Index3{i, j, k}, voxelRes, m); err != nil {
					return nil, err
				}
			}
		}
	}

	// 2-4. +X, +Y, +Z faces.
	if present(Index3{1, 0, 0}) {
		for k := int32(0); k < last; k++ {
			for j := int32(0); j < last; j++ {
				if err := processCube(vol, blockId, Index3{last, j, k}, voxelRes, m); err != nil {
					return nil, err
				}
			}
		}
	}
	if present(Index3{0, 1, 0}) {
		for k := int32(0); k < last; k++ {
			for i := int32(0); i < last; i++ {
				if err := processCube(vol, blockId, Index3{i, last, k}, voxelRes, m); err != nil {
					return nil, err
				}
			}
		}
	}
	if present(Index3{0, 0, 1}) {
		for j := int32(0); j < last; j++ {
			for i := int32(0); i < last; i++ {
				if err := processCube(vol, blockId, Index3{i, j, last}, voxelRes, m); err != nil {
					return nil, err
				}
			}
		}
	}

	// 5. +XY edge: strip along Z.
	if present(Index3{1, 0, 0}) && present(Index3{0, 1, 0}) && present(Index3{1, 1, 0}) {
		for k := int32(0); k < last; k++ {
			if err := processCube(vol, blockId, Index3{last, last, k}, voxelRes, m); err != nil {
				return nil, err
			}
		}
	}
	// +XZ edge: strip along Y.
	if present(Index3{1, 0, 0}) && present(Index3{0, 0, 1}) && present(Index3{1, 0, 1}) {
		for j := int32(0); j < last; j++ {
			if err := processCube(vol, blockId, Index3{last, j, last}, voxelRes, m); err != nil {
				return nil, err
			}
		}
	}
	// +YZ edge: strip along X.
	if present(Index3{0, 1, 0}) && present(Index3{0, 0, 1}) && present(Index3{0, 1, 1}) {
		for i := int32(0); i < last; i++ {
			if err := processCube(vol, blockId, Index3{i, last, last}, voxelRes, m); err != nil {
				return nil, err
			}
		}
	}

	// 6. +XYZ corner: the single cube whose 8 corners live in 8 blocks.
	if present(Index3{1, 0, 0}) && present(Index3{0, 1, 0}) && present(Index3{0, 0, 1}) &&
		present(Index3{1, 1, 0}) && present(Index3{1, 0, 1}) && present(Index3{0, 1, 1}) &&
		present(Index3{1, 1, 1}) {
		if err := processCube(vol, blockId, Index3{last, last, last}, voxelRes, m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ExtractMesh recomputes the mesh cache for exactly the blocks named by
// ids, in parallel, replacing each block's cache atomically (spec §4.7).
func ExtractMesh(vol *Volume, ids []BlockId) error {
	errs := make([]error, len(ids))
	parallelFor(len(ids), func(i int) {
		blockId := ids[i]
		if vol.GetBlock(blockId) == nil {
			return
		}
		m, err := extractBlockMesh(vol, blockId, vol.VoxelRes())
		if err != nil {
			errs[i] = err
			return
		}
		vol.setMesh(blockId, m)
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// RecomputeAllMeshes rebuilds the mesh cache for every block in vol, used
// by Engine.Shutdown before export (spec §4.9).
func RecomputeAllMeshes(vol *Volume) error {
	return ExtractMesh(vol, vol.AllIds())
}
