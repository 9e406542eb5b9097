package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// Engine owns one Volume and drives the fixed per-frame pipeline named in
// spec §2: allocate → integrate → gradient → (optional) mesh. It replaces
// the source's global instance_/dataMutex_ with a plain constructed value
// (spec §9) — callers own its lifetime and must not share it across
// goroutines without external synchronisation beyond what Volume itself
// provides.
type Engine struct {
	params    Parameters
	camParams CameraParameters
	volume    *Volume
}

// NewEngine validates params and constructs an Engine with an empty
// Volume at params.VoxelRes. The volume always tracks colour; frames
// without a colour channel contribute the greyscale filler.
func NewEngine(params Parameters, camParams CameraParameters) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		params:    params,
		camParams: camParams,
		volume:    NewVolume(params.VoxelRes, true),
	}, nil
}

// Volume exposes the engine's underlying volume, e.g. for persistence.
func (e *Engine) Volume() *Volume { return e.volume }

// IntegrateFrame runs one frame through the fixed pipeline order (spec
// §2, §5): extract points, allocate+integrate via the variant selected by
// UseOPC, refresh gradients on the touched blocks, and — if UpdateMesh is
// set — refresh their mesh cache too.
func (e *Engine) IntegrateFrame(frame Frame) error {
	var touched []BlockId

	if e.params.UseOPC {
		opc := ExtractOrderedPoints(&frame, e.camParams.Intrinsics, e.camParams, e.params.MinDist, e.params.MaxDist, e.params.VoxelRes)
		touched = integrateSurfaceNormalTouched(e.volume, opc, e.params.VoxelRes, e.params.Tau)
	} else {
		pc := ExtractPoints(&frame, e.camParams.Intrinsics, e.camParams, e.params.MinDist, e.params.MaxDist)
		cameraCentre := cameraTransform(frame.Pose, e.camParams).TransformAffine(mat.Vec3{})
		touched = integrateCameraRayTouched(e.volume, pc, cameraCentre, e.params.VoxelRes, e.params.Tau)
	}

	UpdateGradient(e.volume, touched)

	if e.params.UpdateMesh {
		return ExtractMesh(e.volume, touched)
	}
	return nil
}

// Shutdown flushes the final state: every gradient and mesh is rebuilt
// from scratch, then (unless exportPath is empty) the result is written
// as a PLY (spec §5: "a graceful shutdown... runs updateAllGradients and
// recomputeAllMeshes and, if requested, export").
func (e *Engine) Shutdown(exportPath string) error {
	UpdateAllGradients(e.volume)
	if err := RecomputeAllMeshes(e.volume); err != nil {
		return err
	}
	if exportPath == "" {
		return nil
	}
	return e.volume.ExportPly(exportPath)
}
