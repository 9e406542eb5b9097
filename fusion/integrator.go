package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// sample is one ray to march during integration: a surface point p and
// the unit direction u along which the truncation band is sampled (spec
// §4.5). Both integrator variants reduce to this shared representation.
type sample struct {
	p      mat.Vec3
	u      mat.Vec3
	colour mat.Vec3
}

// IntegrateCameraRay folds an unordered point cloud into vol using the
// camera-ray variant: u = (p-c)/|p-c| per point (spec §4.5). Returns the
// set of blocks the integration touched.
func IntegrateCameraRay(vol *Volume, pc *PointCloud, cameraCentre mat.Vec3, voxelRes, tau float32) []BlockId {
	return integrateCameraRayTouched(vol, pc, cameraCentre, voxelRes, tau)
}

func integrateCameraRayTouched(vol *Volume, pc *PointCloud, cameraCentre mat.Vec3, voxelRes, tau float32) []BlockId {
	samples := make([]sample, 0, len(pc.Points))
	for _, pt := range pc.Points {
		d := pt.Position.Sub(cameraCentre)
		n := d.Norm()
		if n == 0 {
			continue
		}
		samples = append(samples, sample{p: pt.Position, u: d.Mul(1 / n), colour: pt.Colour})
	}
	return integrate(vol, samples, voxelRes, tau)
}

// IntegrateSurfaceNormal folds an ordered point cloud into vol using the
// surface-normal variant: u = n per point, skipping points with zero or
// infinite normals (spec §4.5). Returns the set of blocks the integration
// touched.
func IntegrateSurfaceNormal(vol *Volume, opc *OrderedPointCloud, voxelRes, tau float32) []BlockId {
	return integrateSurfaceNormalTouched(vol, opc, voxelRes, tau)
}

func integrateSurfaceNormalTouched(vol *Volume, opc *OrderedPointCloud, voxelRes, tau float32) []BlockId {
	samples := make([]sample, 0, len(opc.Points))
	for _, pt := range opc.Points {
		if !pt.Valid {
			continue
		}
		n := pt.Normal
		norm := n.Norm()
		if norm == 0 || isInfOrNaN(norm) {
			continue
		}
		samples = append(samples, sample{p: pt.Position, u: n, colour: pt.Colour})
	}
	return integrate(vol, samples, voxelRes, tau)
}

// integrate runs the allocation pass then the integration pass shared by
// both variants (spec §4.5).
func integrate(vol *Volume, samples []sample, voxelRes, tau float32) []BlockId {
	if len(samples) == 0 {
		return nil
	}

	segments := make([][2]BlockId, len(samples))
	for i, s := range samples {
		a := s.p.Sub(s.u.Mul(tau))
		b := s.p.Add(s.u.Mul(tau))
		segments[i] = [2]BlockId{BlockOf(a, voxelRes), BlockOf(b, voxelRes)}
	}
	touched := RaycastAllocator(segments)
	vol.AddBlocks(touched)

	const (
		stepFactor = 0.5
	)
	step := stepFactor * voxelRes
	sigma := tau
	scale := float32(1) / (2 * sigma * sigma)
	normConst := float32(1) / (sigma * sqrtf(2*pi32))

	parallelFor(len(samples), func(i int) {
		s := samples[i]
		for dist := tau; dist >= -tau; dist -= step {
			pos := s.p.Sub(s.u.Mul(dist))
			blockId := BlockOf(pos, voxelRes)
			voxelId := VoxelOf(pos, voxelRes)

			block := vol.GetBlock(blockId)
			if block == nil {
				continue
			}

			absVoxel := AbsoluteVoxel(blockId, voxelId)
			vc := VoxelCentre(absVoxel, voxelRes)
			t := signf(s.u.Dot(s.p.Sub(vc))) * vc.Sub(s.p).Norm()

			wNew := normConst * expf(-t*t*scale)

			block.Lock()
			block.integrate(voxelId, t, wNew, s.colour)
			block.Unlock()
		}
	})

	return touched
}

const pi32 = 3.14159265358979323846
