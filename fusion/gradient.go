package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// tsdfSample reads the tsdf value at voxelId within blockId, transparently
// borrowing from the neighbouring block when voxelId falls outside
// [0, BlockSize) on any axis (spec §4.6's "padded neighbour-block
// borrowing"). A missing neighbour block, or a voxel that has never been
// integrated (Invalid), both read as 0 — the gradient pass never
// propagates Invalid or +Inf into a finite-difference term (spec §9
// decision).
func tsdfSample(vol *Volume, blockId BlockId, voxelId VoxelId) float32 {
	nbBlock, nbVoxel := blockId, voxelId

	switch {
	case voxelId.X < 0:
		nbBlock.X--
		nbVoxel.X += BlockSize
	case voxelId.X >= BlockSize:
		nbBlock.X++
		nbVoxel.X -= BlockSize
	}
	switch {
	case voxelId.Y < 0:
		nbBlock.Y--
		nbVoxel.Y += BlockSize
	case voxelId.Y >= BlockSize:
		nbBlock.Y++
		nbVoxel.Y -= BlockSize
	}
	switch {
	case voxelId.Z < 0:
		nbBlock.Z--
		nbVoxel.Z += BlockSize
	case voxelId.Z >= BlockSize:
		nbBlock.Z++
		nbVoxel.Z -= BlockSize
	}

	block := vol.GetBlock(nbBlock)
	if block == nil {
		return 0
	}
	t := block.TsdfAt(nbVoxel)
	if t == Invalid {
		return 0
	}
	return t
}

// gradientAt computes the central-difference gradient of the tsdf field at
// voxelId within blockId (spec §4.6): one finite difference per axis,
// divided by voxelRes (original_source's Fusion::UpdateGradient:
// Vec3f(dx,dy,dz) / voxelRes_).
func gradientAt(vol *Volume, blockId BlockId, voxelId VoxelId, voxelRes float32) mat.Vec3 {
	invh := 1 / voxelRes
	shift := func(d Index3) VoxelId { return VoxelId(Index3(voxelId).Add(d)) }
	gx := tsdfSample(vol, blockId, shift(Index3{1, 0, 0})) - tsdfSample(vol, blockId, shift(Index3{-1, 0, 0}))
	gy := tsdfSample(vol, blockId, shift(Index3{0, 1, 0})) - tsdfSample(vol, blockId, shift(Index3{0, -1, 0}))
	gz := tsdfSample(vol, blockId, shift(Index3{0, 0, 1})) - tsdfSample(vol, blockId, shift(Index3{0, 0, -1}))
	return mat.Vec3{gx * invh, gy * invh, gz * invh}
}

// UpdateGradient recomputes the cached gradient field for exactly the
// blocks named by ids, in parallel (spec §4.6). Ids absent from vol are
// skipped.
func UpdateGradient(vol *Volume, ids []BlockId) {
	parallelFor(len(ids), func(i int) {
		blockId := ids[i]
		block := vol.GetBlock(blockId)
		if block == nil {
			return
		}

		voxelRes := vol.VoxelRes()
		var g [BlockVolume]mat.Vec3
		for z := int32(0); z < BlockSize; z++ {
			for y := int32(0); y < BlockSize; y++ {
				for x := int32(0); x < BlockSize; x++ {
					voxelId := VoxelId{x, y, z}
					g[off(voxelId)] = gradientAt(vol, blockId, voxelId, voxelRes)
				}
			}
		}

		block.Lock()
		*block.RawGradient() = g
		block.Unlock()
	})
}

// UpdateAllGradients recomputes the gradient field for every block
// currently in vol, used by Engine.Shutdown before mesh extraction (spec
// §4.6, §4.9).
func UpdateAllGradients(vol *Volume) {
	UpdateGradient(vol, vol.AllIds())
}
