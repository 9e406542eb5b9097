package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// Parameters are the process-wide, immutable-after-construction fusion
// settings (spec §3).
type Parameters struct {
	// VoxelRes is the metres-per-voxel resolution (typical 0.01).
	VoxelRes float32
	// Tau is the truncation distance in metres, also the integration
	// Gaussian's standard deviation (typical 0.025).
	Tau float32
	// MaxFrameWidth/MaxFrameHeight bound scratch allocation for incoming
	// depth maps.
	MaxFrameWidth  int
	MaxFrameHeight int

	// MinDist/MaxDist bound accepted depth samples, in metres.
	MinDist, MaxDist float32
	// UpdateMesh recomputes the touched blocks' mesh cache every frame,
	// rather than only on Shutdown.
	UpdateMesh bool
	// UseOPC selects the surface-normal integrator variant (ordered point
	// cloud) over the default camera-ray variant.
	UseOPC bool
}

// Validate returns a *ConfigurationError if any parameter is out of range.
func (p Parameters) Validate() error {
	if p.VoxelRes <= 0 {
		return NewConfigurationError("VoxelRes", p.VoxelRes, "must be positive")
	}
	if p.Tau <= 0 {
		return NewConfigurationError("Tau", p.Tau, "must be positive")
	}
	if p.MaxFrameWidth < 0 {
		return NewConfigurationError("MaxFrameWidth", p.MaxFrameWidth, "must not be negative")
	}
	if p.MaxFrameHeight < 0 {
		return NewConfigurationError("MaxFrameHeight", p.MaxFrameHeight, "must not be negative")
	}
	if p.MinDist < 0 {
		return NewConfigurationError("MinDist", p.MinDist, "must not be negative")
	}
	if p.MaxDist < 0 {
		return NewConfigurationError("MaxDist", p.MaxDist, "must not be negative")
	}
	if p.MaxDist != 0 && p.MaxDist < p.MinDist {
		return NewConfigurationError("MaxDist", p.MaxDist, "must not be less than MinDist")
	}
	return nil
}

// CameraIntrinsics are the pinhole projection parameters for a depth
// sensor.
type CameraIntrinsics struct {
	Fx, Fy float32
	Cx, Cy float32
}

// CameraParameters bundles intrinsics with the per-dataset axis
// permutation / model matrices described in spec §6.
type CameraParameters struct {
	Width, Height int
	Intrinsics    CameraIntrinsics

	// AxisPermutation maps the dataset's native axes onto the fusion
	// world frame.
	AxisPermutation mat.Mat4
	// ModelTransform is composed with AxisPermutation; whether it is
	// applied before or after AxisPermutation is selected by InverseOrder
	// (dataset-dependent, spec §6). It is always used as given, never
	// inverted.
	ModelTransform mat.Mat4
	// InverseOrder selects the synthetic-dataset composition order: the
	// inverse of the pose transform is applied to bring the world into the
	// camera frame, rather than the real-dataset order, where the pose is
	// applied first and the axis permutation after it.
	InverseOrder bool
}
