package mat

// Quat is a (w, x, y, z) unit quaternion, matching the ordering posed
// frames arrive in over the wire (spec §6: "rotation: quaternion f32
// (w,x,y,z)").
type Quat [4]float32

func NewQuat(w, x, y, z float32) Quat {
	return Quat{w, x, y, z}
}

func (q Quat) W() float32 { return q[0] }
func (q Quat) X() float32 { return q[1] }
func (q Quat) Y() float32 { return q[2] }
func (q Quat) Z() float32 { return q[3] }

// ToMat4 converts q to an affine rotation matrix, consistent with this
// package's column layout (m[4*col+row]).
func (q Quat) ToMat4() Mat4 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}
