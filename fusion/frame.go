package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// DefaultDepthScale converts a raw depth sample to metres: depth units are
// 1/DefaultDepthScale metres unless Frame.DepthScale overrides it (spec
// §6, scale = 5000 by default).
const DefaultDepthScale = 5000.0

// Pose is a camera pose: world-space translation plus an orientation
// quaternion (spec §6: "rotation: quaternion f32 (w,x,y,z)").
type Pose struct {
	Translation mat.Vec3
	Rotation    mat.Quat
}

// Transform returns the affine matrix mapping camera-space points to
// world space for this pose.
func (p Pose) Transform() mat.Mat4 {
	return p.Rotation.ToMat4().Mul(mat.Translate(p.Translation[0], p.Translation[1], p.Translation[2]))
}

// Frame is one posed RGB-D frame handed to the fusion core by the
// (out-of-scope) streamer: depth/colour are already decoded, not encoded
// image bytes (spec §6).
type Frame struct {
	Depth  []uint16 // length = Width*Height, units = 1/DepthScale metres
	Colour []uint8  // length = 3*Width*Height, BGR interleaved, or nil
	Pose   Pose

	Width, Height int

	// DepthScale overrides DefaultDepthScale when nonzero.
	DepthScale float32
}

func (f *Frame) depthScale() float32 {
	if f.DepthScale != 0 {
		return f.DepthScale
	}
	return DefaultDepthScale
}

// colourFillerGrey is the greyscale filler used when a frame carries no
// colour channel (spec §6: "absent, greyscale filler 127").
const colourFillerGrey = 127

func (f *Frame) colourAt(pixel int) mat.Vec3 {
	if f.Colour == nil {
		const g = float32(colourFillerGrey) / 255
		return mat.Vec3{g, g, g}
	}
	b := float32(f.Colour[3*pixel+0]) / 255
	g := float32(f.Colour[3*pixel+1]) / 255
	r := float32(f.Colour[3*pixel+2]) / 255
	return mat.Vec3{r, g, b}
}

// cameraTransform composes the dataset's axis permutation and model
// transform with the frame's pose, in the order selected by
// camParams.InverseOrder (spec §6, §9 decision on dataset-dependent
// composition order).
func cameraTransform(pose Pose, camParams CameraParameters) mat.Mat4 {
	poseTransform := pose.Transform()
	if camParams.InverseOrder {
		// Synthetic dataset order (main.cpp's onRGBDFrameAvailable):
		// transform = Inverse(Affine) * axisPermut — the axis permutation
		// is applied first, then the inverse affine puts the result into
		// the camera frame.
		return poseTransform.InverseAffine().Mul(camParams.ModelTransform).Mul(camParams.AxisPermutation)
	}
	// Real-dataset order: transform = axisPermut * Affine — the pose is
	// applied first, then the axis permutation.
	return camParams.AxisPermutation.Mul(camParams.ModelTransform).Mul(poseTransform)
}
