package fusion

import "github.com/aarnaud1/SimpleFusion/mat"

// Point is a single fused sample: world-space position and colour.
type Point struct {
	Position mat.Vec3
	Colour   mat.Vec3
}

// PointCloud is an unordered collection of valid points, used by the
// camera-ray integrator variant (spec §4.5).
type PointCloud struct {
	Points []Point
}

// ExtractPoints back-projects frame's depth map to world space, applying
// the dataset's axis-permutation/pose composition and discarding invalid
// or out-of-range samples (spec §2, §6).
func ExtractPoints(frame *Frame, intr CameraIntrinsics, camParams CameraParameters, minDist, maxDist float32) *PointCloud {
	transform := cameraTransform(frame.Pose, camParams)
	scale := frame.depthScale()

	pc := &PointCloud{Points: make([]Point, 0, frame.Width*frame.Height)}
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			pixel := y*frame.Width + x
			raw := frame.Depth[pixel]
			if raw == 0 {
				continue
			}
			z := float32(raw) / scale
			if z < minDist || (maxDist > 0 && z > maxDist) {
				continue
			}
			camPos := mat.Vec3{
				(float32(x) - intr.Cx) * z / intr.Fx,
				(float32(y) - intr.Cy) * z / intr.Fy,
				z,
			}
			pc.Points = append(pc.Points, Point{
				Position: transform.TransformAffine(camPos),
				Colour:   frame.colourAt(pixel),
			})
		}
	}
	return pc
}

// OrderedPoint is a grid-indexed sample with an estimated surface normal,
// used by the surface-normal integrator variant (spec §4.5).
type OrderedPoint struct {
	Position mat.Vec3
	Normal   mat.Vec3
	Colour   mat.Vec3
	Valid    bool
}

// OrderedPointCloud keeps the image-grid layout so normals can be
// estimated from grid-adjacent points (spec glossary: "Ordered Point
// Cloud").
type OrderedPointCloud struct {
	Width, Height int
	Points        []OrderedPoint
}

// Centroid returns the mean position of valid points. The original source
// computed the sum and divided by n but returned the unmodified
// accumulator (spec §9) — this returns the corrected mean.
func (o *OrderedPointCloud) Centroid() (mat.Vec3, bool) {
	var sum mat.Vec3
	n := 0
	for _, p := range o.Points {
		if !p.Valid {
			continue
		}
		sum = sum.Add(p.Position)
		n++
	}
	if n == 0 {
		return mat.Vec3{}, false
	}
	return sum.Mul(1 / float32(n)), true
}

// normalDistThrFactor scales voxelRes into EstimateNormals' distThr
// (original_source: main.cpp/Fusion.cpp both call
// inputOpc.EstimateNormals(5.0f * voxelRes_)).
const normalDistThrFactor = 5.0

// ExtractOrderedPoints back-projects frame's depth map into an
// image-grid-ordered cloud and estimates a normal per interior pixel,
// grounded on OrderedPointCloud::EstimateNormals: up to four cross
// products from the cardinal neighbours are averaged, each gated on the
// neighbour pair's Euclidean distance from the centre point staying under
// 5*voxelRes (the depth-discontinuity threshold), and each oriented to
// point away from the camera origin (n·p >= 0) before being summed. Border pixels, invalid
// depth, and interior points where every combination fails the distance
// gate (no normal could be estimated) are all dropped entirely.
func ExtractOrderedPoints(frame *Frame, intr CameraIntrinsics, camParams CameraParameters, minDist, maxDist, voxelRes float32) *OrderedPointCloud {
	transform := cameraTransform(frame.Pose, camParams)
	scale := frame.depthScale()
	w, h := frame.Width, frame.Height
	distThr := normalDistThrFactor * voxelRes

	// Back-project in camera space first: EstimateNormals runs before the
	// cloud is transformed into world space (main.cpp calls it on
	// inputOpc straight after back-projection, Fusion::Transform comes
	// later), so the orientation-correction origin is the camera itself.
	backProject := func(x, y int) (mat.Vec3, bool) {
		raw := frame.Depth[y*w+x]
		if raw == 0 {
			return mat.Vec3{}, false
		}
		z := float32(raw) / scale
		if z < minDist || (maxDist > 0 && z > maxDist) {
			return mat.Vec3{}, false
		}
		return mat.Vec3{
			(float32(x) - intr.Cx) * z / intr.Fx,
			(float32(y) - intr.Cy) * z / intr.Fy,
			z,
		}, true
	}

	type camPoint struct {
		pos mat.Vec3
		ok  bool
	}
	camPos := make([]camPoint, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p, ok := backProject(x, y)
			camPos[y*w+x] = camPoint{pos: p, ok: ok}
		}
	}

	// correctNormal flips n so it points away from the camera origin
	// (along p), matching OrderedPointCloud::EstimateNormals'
	// correctNormal: Dot(n,p-org_)<0 selects -n. org_ is the camera itself
	// (0,0,0) before the cloud is transformed into world space.
	correctNormal := func(n, p mat.Vec3) mat.Vec3 {
		if n.Dot(p) < 0 {
			return n.Mul(-1)
		}
		return n
	}
	withinThr := func(a, b mat.Vec3) bool {
		return a.Sub(b).Norm() <= distThr
	}

	camNormal := make([]mat.Vec3, w*h)
	camValid := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			p := camPos[idx]
			if !p.ok {
				continue
			}
			camValid[idx] = true
			if x == 0 || x == w-1 || y == 0 || y == h-1 {
				continue
			}
			up, okUp := camPos[idx-w], camPos[idx-w].ok
			down, okDown := camPos[idx+w], camPos[idx+w].ok
			left, okLeft := camPos[idx-1], camPos[idx-1].ok
			right, okRight := camPos[idx+1], camPos[idx+1].ok
			okUp = okUp && withinThr(up.pos, p.pos)
			okDown = okDown && withinThr(down.pos, p.pos)
			okLeft = okLeft && withinThr(left.pos, p.pos)
			okRight = okRight && withinThr(right.pos, p.pos)

			var sum mat.Vec3
			n := 0
			// Gate mirrors EstimateNormals' validTmp11&&validTmp10 exactly
			// (right&&left), even though the cross product it gates uses
			// right and down, not right and left.
			if okRight && okLeft {
				sum = sum.Add(correctNormal(right.pos.Sub(p.pos).Cross(down.pos.Sub(p.pos)), p.pos))
				n++
			}
			if okDown && okLeft {
				sum = sum.Add(correctNormal(down.pos.Sub(p.pos).Cross(left.pos.Sub(p.pos)), p.pos))
				n++
			}
			if okLeft && okUp {
				sum = sum.Add(correctNormal(left.pos.Sub(p.pos).Cross(up.pos.Sub(p.pos)), p.pos))
				n++
			}
			if okUp && okRight {
				sum = sum.Add(correctNormal(up.pos.Sub(p.pos).Cross(right.pos.Sub(p.pos)), p.pos))
				n++
			}
			if n == 0 {
				continue
			}
			norm := sum.Norm()
			if norm == 0 || isInfOrNaN(norm) {
				continue
			}
			camNormal[idx] = sum.Mul(1 / norm)
		}
	}

	// Any point that never got a normal — border pixels included — is
	// dropped entirely (original: "Clean points with empty normals"
	// zeroes the position for the whole width*height range, not just the
	// interior).
	for idx := range camValid {
		if camValid[idx] && camNormal[idx] == (mat.Vec3{}) {
			camValid[idx] = false
		}
	}

	worldOrigin := transform.TransformAffine(mat.Vec3{})
	opc := &OrderedPointCloud{Width: w, Height: h, Points: make([]OrderedPoint, w*h)}
	for idx := range opc.Points {
		if !camValid[idx] {
			continue
		}
		worldPos := transform.TransformAffine(camPos[idx].pos)
		worldNormal := transform.TransformAffine(camNormal[idx]).Sub(worldOrigin)
		if normN := worldNormal.Norm(); normN > 0 {
			worldNormal = worldNormal.Mul(1 / normN)
		}
		opc.Points[idx] = OrderedPoint{
			Position: worldPos,
			Normal:   worldNormal,
			Colour:   frame.colourAt(idx),
			Valid:    true,
		}
	}
	return opc
}

func isInfOrNaN(v float32) bool {
	return v != v || v > maxFiniteF32 || v < -maxFiniteF32
}

const maxFiniteF32 = 3.4028235e38
