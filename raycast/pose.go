package raycast

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a 6-DoF rigid transform: a rotation followed by a translation.
// A zero Orientation is treated as the identity rotation, so a Pose literal
// with only Position set is a pure translation.
type Pose struct {
	Position    r3.Vec
	Orientation quat.Number
}

// IdentityPose returns the transform that leaves every point unchanged
func IdentityPose() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// Translation creates a translation-only pose
func Translation(x, y, z float64) Pose {
	return Pose{Position: r3.Vec{X: x, Y: y, Z: z}, Orientation: quat.Number{Real: 1}}
}

// PoseFromRPY creates a pose from a position and fixed-axis roll, pitch, yaw
// angles in radians. The rotation is applied as yaw about Z, then pitch about
// Y, then roll about X (R = Rz·Ry·Rx).
func PoseFromRPY(x, y, z, roll, pitch, yaw float64) Pose {
	qx := quat.Number(r3.NewRotation(roll, r3.Vec{X: 1}))
	qy := quat.Number(r3.NewRotation(pitch, r3.Vec{Y: 1}))
	qz := quat.Number(r3.NewRotation(yaw, r3.Vec{Z: 1}))
	return Pose{
		Position:    r3.Vec{X: x, Y: y, Z: z},
		Orientation: normalize(quat.Mul(qz, quat.Mul(qy, qx))),
	}
}

// RPY returns the roll, pitch and yaw angles of the pose orientation in radians.
func (p Pose) RPY() (roll, pitch, yaw float64) {
	q := p.rotation()
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinp := 2 * (w*y - z*x)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}

// rotation returns the unit quaternion for the pose, mapping the zero value to identity
func (p Pose) rotation() quat.Number {
	if p.Orientation == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return p.Orientation
}

// Rotate applies only the rotational part of the pose to v
func (p Pose) Rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(p.rotation()).Rotate(v)
}

// Apply transforms a point from the pose's child frame into its parent frame
func (p Pose) Apply(v r3.Vec) r3.Vec {
	return r3.Add(p.Rotate(v), p.Position)
}

// ApplyAll transforms multiple points
func (p Pose) ApplyAll(points []r3.Vec) []r3.Vec {
	result := make([]r3.Vec, len(points))
	rot := r3.Rotation(p.rotation())
	for i, v := range points {
		result[i] = r3.Add(rot.Rotate(v), p.Position)
	}
	return result
}

// Compose returns p ∘ q. Applying the result is equivalent to applying q
// first, then p.
func (p Pose) Compose(q Pose) Pose {
	return Pose{
		Position:    r3.Add(p.Rotate(q.Position), p.Position),
		Orientation: normalize(quat.Mul(p.rotation(), q.rotation())),
	}
}

// Inverse returns the pose that undoes p
func (p Pose) Inverse() Pose {
	inv := quat.Conj(p.rotation())
	return Pose{
		Position:    r3.Scale(-1, r3.Rotation(inv).Rotate(p.Position)),
		Orientation: inv,
	}
}

// normalize scales q to unit length. A zero quaternion becomes the identity.
func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 {
		return quat.Number{Real: 1}
	}
	if n == 1 {
		return q
	}
	return quat.Scale(1/n, q)
}
