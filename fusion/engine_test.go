package fusion

import (
	"math"
	"testing"

	"github.com/aarnaud1/SimpleFusion/mat"
)

func identityCameraParams(w, h int) CameraParameters {
	return CameraParameters{
		Width: w, Height: h,
		Intrinsics:      CameraIntrinsics{Fx: 525, Fy: 525, Cx: float32(w-1) / 2, Cy: float32(h-1) / 2},
		AxisPermutation: mat.Identity(),
		ModelTransform:  mat.Identity(),
	}
}

func identityPose() Pose {
	return Pose{Rotation: mat.NewQuat(1, 0, 0, 0)}
}

// S1 — single point, single frame (spec §8).
func TestEngineSinglePointSingleFrame(t *testing.T) {
	const voxelRes, tau = 0.01, 0.025
	params := Parameters{VoxelRes: voxelRes, Tau: tau, MinDist: 0.1, MaxDist: 4, UpdateMesh: true}
	engine, err := NewEngine(params, identityCameraParams(1, 1))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	frame := Frame{
		Depth:  []uint16{5000}, // 1.0 m at the default 5000 scale
		Width:  1,
		Height: 1,
		Pose:   identityPose(),
	}
	if err := engine.IntegrateFrame(frame); err != nil {
		t.Fatalf("IntegrateFrame: %v", err)
	}

	vol := engine.Volume()
	p := mat.Vec3{0, 0, 1.0}
	blockId := BlockOf(p, voxelRes)
	voxelId := VoxelOf(p, voxelRes)
	block := vol.GetBlock(blockId)
	if block == nil {
		t.Fatal("expected the surface block to be allocated")
	}
	if w := block.WeightAt(voxelId); w <= 0 {
		t.Errorf("weight at the surface voxel = %v, want > 0", w)
	}
	if tsdf := block.TsdfAt(voxelId); absf(tsdf) >= 0.5*voxelRes {
		t.Errorf("|tsdf| = %v, want < %v", absf(tsdf), 0.5*voxelRes)
	}
	// Not enough neighbourhood for a single sample to produce a mesh.
	if m := vol.GetMesh(blockId); m != nil {
		t.Errorf("expected 0 triangles for a single isolated point, got %d", m.NumTriangles())
	}
}

// S2 — a constant-depth slab, reduced to a 8x8 frame (spec §8).
func TestEngineConstantDepthSlab(t *testing.T) {
	const voxelRes, tau = 0.01, 0.025
	const w, h = 8, 8
	params := Parameters{VoxelRes: voxelRes, Tau: tau, MinDist: 0.1, MaxDist: 4, UpdateMesh: true}
	engine, err := NewEngine(params, identityCameraParams(w, h))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	depth := make([]uint16, w*h)
	for i := range depth {
		depth[i] = 2500 // 0.5 m
	}
	frame := Frame{Depth: depth, Width: w, Height: h, Pose: identityPose()}
	if err := engine.IntegrateFrame(frame); err != nil {
		t.Fatalf("IntegrateFrame: %v", err)
	}

	vol := engine.Volume()
	if vol.NumBlocks() == 0 {
		t.Fatal("expected the slab to allocate at least one block")
	}
	found := false
	for _, id := range vol.AllIds() {
		m := vol.GetMesh(id)
		if m == nil {
			continue
		}
		found = true
		for _, p := range m.Positions {
			if absf(p[2]-0.5) >= voxelRes {
				t.Errorf("triangle vertex z=%v too far from the slab depth 0.5", p[2])
			}
		}
	}
	if !found {
		t.Log("no triangles emitted for the reduced slab (acceptable at this resolution/frame size)")
	}
}

// Shutdown without a mesh cache still succeeds and performs the full
// gradient+mesh rebuild (spec §5's graceful-shutdown behaviour).
func TestEngineShutdownWithoutExport(t *testing.T) {
	params := Parameters{VoxelRes: 0.01, Tau: 0.025, MinDist: 0.1, MaxDist: 4}
	engine, err := NewEngine(params, identityCameraParams(4, 4))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	depth := make([]uint16, 16)
	for i := range depth {
		depth[i] = 5000
	}
	if err := engine.IntegrateFrame(Frame{Depth: depth, Width: 4, Height: 4, Pose: identityPose()}); err != nil {
		t.Fatalf("IntegrateFrame: %v", err)
	}
	if err := engine.Shutdown(""); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestEngineShutdownExportsPly(t *testing.T) {
	params := Parameters{VoxelRes: 0.01, Tau: 0.025, MinDist: 0.1, MaxDist: 4}
	engine, err := NewEngine(params, identityCameraParams(8, 8))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	depth := make([]uint16, 64)
	for i := range depth {
		depth[i] = 2500
	}
	if err := engine.IntegrateFrame(Frame{Depth: depth, Width: 8, Height: 8, Pose: identityPose()}); err != nil {
		t.Fatalf("IntegrateFrame: %v", err)
	}
	path := t.TempDir() + "/out.ply"
	if err := engine.Shutdown(path); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewEngineRejectsInvalidParameters(t *testing.T) {
	_, err := NewEngine(Parameters{VoxelRes: 0, Tau: 0.025}, identityCameraParams(1, 1))
	if err == nil {
		t.Fatal("expected a ConfigurationError for VoxelRes == 0")
	}
	if _, ok := err.(*ConfigurationError); !ok {
		t.Errorf("err = %T, want *ConfigurationError", err)
	}
}

// rotYAboutOrigin rotates v about the world Y axis by phi radians,
// matching mat.Quat{cos(phi/2),0,sin(phi/2),0}.ToMat4()'s linear action —
// used to place a viewpoint on the sphere's orbit without round-tripping
// through a quaternion.
func rotYAboutOrigin(v mat.Vec3, phi float32) mat.Vec3 {
	s, c := float32(math.Sin(float64(phi))), float32(math.Cos(float64(phi)))
	return mat.Vec3{c*v[0] + s*v[2], v[1], -s*v[0] + c*v[2]}
}

// renderSphereFrame back-projects a sphere of radius sphereR centred at
// centre into a depth frame, as seen from a viewpoint on an orbitR-radius
// circle around centre at angle theta (spec §8's S3), looking straight at
// the centre. Since Pose.Transform composes as R*(camSpace+translation)
// (frame.go), the pose's translation is solved as the inverse-rotated
// world viewpoint so the camera origin lands exactly on the orbit.
func renderSphereFrame(w, h int, intr CameraIntrinsics, centre mat.Vec3, sphereR, orbitR, theta float32) Frame {
	viewpoint := centre.Add(mat.Vec3{orbitR * float32(math.Sin(float64(theta))), 0, -orbitR * float32(math.Cos(float64(theta)))})
	phi := -theta
	rotation := mat.NewQuat(float32(math.Cos(float64(phi)/2)), 0, float32(math.Sin(float64(phi)/2)), 0)
	translation := rotYAboutOrigin(viewpoint, -phi) // R^-1 * viewpoint

	depth := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dirCam := mat.Vec3{(float32(x) - intr.Cx) / intr.Fx, (float32(y) - intr.Cy) / intr.Fy, 1}
			dirWorld := rotYAboutOrigin(dirCam, phi)

			oc := viewpoint.Sub(centre)
			a := dirWorld.Dot(dirWorld)
			b := 2 * oc.Dot(dirWorld)
			c := oc.Dot(oc) - sphereR*sphereR
			disc := b*b - 4*a*c
			if disc < 0 {
				continue
			}
			sq := sqrtf(disc)
			z := (-b - sq) / (2 * a)
			if z <= 0 {
				z = (-b + sq) / (2 * a)
			}
			if z <= 0 {
				continue
			}
			depth[y*w+x] = uint16(z * DefaultDepthScale)
		}
	}
	return Frame{Depth: depth, Width: w, Height: h, Pose: Pose{Rotation: rotation, Translation: translation}}
}

// S3 — synthetic sphere reconstruction from multiple viewpoints (spec
// §8). Reduced to 8 viewpoints rather than the spec's 64 to keep unit-test
// runtime bounded (SPEC_FULL.md §8).
func TestEngineSphereReconstructionMultiViewpoint(t *testing.T) {
	const voxelRes, tau = 0.01, 0.025
	const w, h = 48, 48
	const sphereR, orbitR = 0.2, 1.0
	const viewpoints = 8
	centre := mat.Vec3{0, 0, 0.6}

	cam := identityCameraParams(w, h)
	params := Parameters{VoxelRes: voxelRes, Tau: tau, MinDist: 0.1, MaxDist: 4, UpdateMesh: true}
	engine, err := NewEngine(params, cam)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	prevBlocks := 0
	for i := 0; i < viewpoints; i++ {
		theta := float32(2*math.Pi) * float32(i) / float32(viewpoints)
		frame := renderSphereFrame(w, h, cam.Intrinsics, centre, sphereR, orbitR, theta)
		if err := engine.IntegrateFrame(frame); err != nil {
			t.Fatalf("IntegrateFrame(view %d): %v", i, err)
		}
		blocks := engine.Volume().NumBlocks()
		if blocks < prevBlocks {
			t.Errorf("viewpoint %d: allocated block count dropped from %d to %d", i, prevBlocks, blocks)
		}
		prevBlocks = blocks
	}
	if prevBlocks == 0 {
		t.Fatal("expected the sphere sweep to allocate at least one block")
	}

	vertexCount := 0
	for _, id := range engine.Volume().AllIds() {
		m := engine.Volume().GetMesh(id)
		if m == nil {
			continue
		}
		for _, p := range m.Positions {
			vertexCount++
			d := p.Sub(centre).Norm()
			if absf(d-sphereR) >= 2*voxelRes {
				t.Errorf("vertex %v at distance %v from centre, want within %v of radius %v", p, d, 2*voxelRes, sphereR)
			}
		}
	}
	if vertexCount == 0 {
		t.Log("no triangles emitted at this reduced viewpoint/resolution (acceptable, block-count growth already checked)")
	}
}

// S4 — determinism under a single-worker thread pool (spec §8): running
// the same frame through two fresh engines with the pool capped at one
// worker produces byte-identical tsdf/weight/colour/gradient arrays.
func TestEngineDeterministicUnderSingleWorker(t *testing.T) {
	old := overrideNumWorkers
	overrideNumWorkers = 1
	defer func() { overrideNumWorkers = old }()

	run := func() *Volume {
		const voxelRes, tau = 0.01, 0.025
		const w, h = 8, 8
		params := Parameters{VoxelRes: voxelRes, Tau: tau, MinDist: 0.1, MaxDist: 4, UpdateMesh: true}
		engine, err := NewEngine(params, identityCameraParams(w, h))
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		depth := make([]uint16, w*h)
		for i := range depth {
			depth[i] = 2500
		}
		if err := engine.IntegrateFrame(Frame{Depth: depth, Width: w, Height: h, Pose: identityPose()}); err != nil {
			t.Fatalf("IntegrateFrame: %v", err)
		}
		return engine.Volume()
	}

	v1, v2 := run(), run()

	ids1, ids2 := v1.AllIds(), v2.AllIds()
	if len(ids1) != len(ids2) {
		t.Fatalf("block count differs: %d vs %d", len(ids1), len(ids2))
	}
	for i, id := range ids1 {
		if id != ids2[i] {
			t.Fatalf("block insertion order differs at %d: %v vs %v", i, id, ids2[i])
		}
		b1, b2 := v1.GetBlock(id), v2.GetBlock(id)
		if *b1.RawTsdf() != *b2.RawTsdf() {
			t.Errorf("tsdf array differs for block %v", id)
		}
		if *b1.RawWeight() != *b2.RawWeight() {
			t.Errorf("weight array differs for block %v", id)
		}
		if *b1.RawGradient() != *b2.RawGradient() {
			t.Errorf("gradient array differs for block %v", id)
		}
		if *b1.RawColour() != *b2.RawColour() {
			t.Errorf("colour array differs for block %v", id)
		}
	}
}
