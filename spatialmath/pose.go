// Package spatialmath implements the rigid-body math underneath the dynamics
// factors: SE(3) poses, screw exponentials, adjoint maps, and the closed-form
// Jacobians needed to linearize pose-valued residuals.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transform as a unit rotation quaternion plus a
// translation. The zero value is not a valid pose; use NewZeroPose.
type Pose struct {
	R quat.Number
	T r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{R: quat.Number{Real: 1}}
}

// NewPose returns a pose from a rotation quaternion and a translation.
func NewPose(r quat.Number, t r3.Vector) Pose {
	return Pose{R: r, T: t}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(t r3.Vector) Pose {
	return Pose{R: quat.Number{Real: 1}, T: t}
}

// NewPoseFromAxisAngle returns a pose rotating by theta radians about the
// given (non-zero) axis, with the given translation.
func NewPoseFromAxisAngle(axis r3.Vector, theta float64, t r3.Vector) Pose {
	return Pose{R: ExpSO3(axis.Normalize().Mul(theta)), T: t}
}

// Compose returns p * o, applying o in p's frame.
func (p Pose) Compose(o Pose) Pose {
	return Pose{
		R: quat.Mul(p.R, o.R),
		T: p.T.Add(p.RotatePoint(o.T)),
	}
}

// Invert returns the inverse transform.
func (p Pose) Invert() Pose {
	rInv := quat.Conj(p.R)
	return Pose{
		R: rInv,
		T: rotateVec(rInv, p.T).Mul(-1),
	}
}

// Between returns p^-1 * o, the transform of o expressed in p's frame.
func (p Pose) Between(o Pose) Pose {
	return p.Invert().Compose(o)
}

// TransformPoint maps a point through the transform.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return p.RotatePoint(pt).Add(p.T)
}

// RotatePoint applies only the rotation part of the transform.
func (p Pose) RotatePoint(pt r3.Vector) r3.Vector {
	return rotateVec(p.R, pt)
}

// Interpolate returns the pose a fraction s of the way from p to o along the
// SE(3) geodesic. s=0 gives p, s=1 gives o.
func (p Pose) Interpolate(o Pose, s float64) Pose {
	xi := Log(p.Between(o))
	for i := range xi {
		xi[i] *= s
	}
	return p.Compose(Exp(xi))
}

// AlmostEqual reports whether two poses agree within epsilon, comparing the
// translation componentwise and the rotation via the quaternion double cover.
func (p Pose) AlmostEqual(o Pose, epsilon float64) bool {
	if math.Abs(p.T.X-o.T.X) > epsilon ||
		math.Abs(p.T.Y-o.T.Y) > epsilon ||
		math.Abs(p.T.Z-o.T.Z) > epsilon {
		return false
	}
	d := p.R
	if quatDot(p.R, o.R) < 0 {
		d = quat.Number{Real: -d.Real, Imag: -d.Imag, Jmag: -d.Jmag, Kmag: -d.Kmag}
	}
	return math.Abs(d.Real-o.R.Real) <= epsilon &&
		math.Abs(d.Imag-o.R.Imag) <= epsilon &&
		math.Abs(d.Jmag-o.R.Jmag) <= epsilon &&
		math.Abs(d.Kmag-o.R.Kmag) <= epsilon
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// rotateVec rotates v by the unit quaternion q.
func rotateVec(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
