package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Twists and wrenches are 6-vectors ordered angular-first: (wx wy wz vx vy vz).

// Skew returns the 3x3 cross-product matrix of v.
func Skew(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// RotationMatrix returns the 3x3 matrix of a unit rotation quaternion.
func RotationMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// ExpSO3 maps a rotation vector to a unit quaternion.
func ExpSO3(w r3.Vector) quat.Number {
	theta := w.Norm()
	if theta < 1e-12 {
		// first-order expansion keeps q exactly unit at w=0
		return quat.Number{Real: 1, Imag: w.X / 2, Jmag: w.Y / 2, Kmag: w.Z / 2}
	}
	s := math.Sin(theta/2) / theta
	return quat.Number{Real: math.Cos(theta / 2), Imag: w.X * s, Jmag: w.Y * s, Kmag: w.Z * s}
}

// LogSO3 maps a unit quaternion to its rotation vector.
func LogSO3(q quat.Number) r3.Vector {
	if q.Real < 0 {
		q = quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
	}
	v := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	sinHalf := v.Norm()
	if sinHalf < 1e-12 {
		return v.Mul(2)
	}
	theta := 2 * math.Atan2(sinHalf, q.Real)
	return v.Mul(theta / sinHalf)
}

// Exp is the screw exponential: it maps a twist (w, v) to the rigid transform
// exp([xi]). Exact identity at xi = 0 and exact translation for pure
// prismatic twists (w = 0).
func Exp(xi []float64) Pose {
	w := r3.Vector{X: xi[0], Y: xi[1], Z: xi[2]}
	v := r3.Vector{X: xi[3], Y: xi[4], Z: xi[5]}
	jl := JlSO3(w)
	var t mat.VecDense
	t.MulVec(jl, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return Pose{
		R: ExpSO3(w),
		T: r3.Vector{X: t.AtVec(0), Y: t.AtVec(1), Z: t.AtVec(2)},
	}
}

// Log is the inverse of Exp.
func Log(p Pose) []float64 {
	w := LogSO3(p.R)
	jlInv := JlInvSO3(w)
	var v mat.VecDense
	v.MulVec(jlInv, mat.NewVecDense(3, []float64{p.T.X, p.T.Y, p.T.Z}))
	return []float64{w.X, w.Y, w.Z, v.AtVec(0), v.AtVec(1), v.AtVec(2)}
}

// Adjoint returns the 6x6 adjoint map of the pose,
//
//	[ R       0 ]
//	[ [t]x R  R ]
//
// which maps body twists between frames.
func Adjoint(p Pose) *mat.Dense {
	r := RotationMatrix(p.R)
	var tr mat.Dense
	tr.Mul(Skew(p.T), r)
	out := mat.NewDense(6, 6, nil)
	setBlock(out, 0, 0, r)
	setBlock(out, 3, 0, &tr)
	setBlock(out, 3, 3, r)
	return out
}

// Ad returns the 6x6 adjoint operator (Lie bracket matrix) of a twist,
//
//	[ [w]x  0    ]
//	[ [v]x  [w]x ]
func Ad(xi []float64) *mat.Dense {
	w := Skew(r3.Vector{X: xi[0], Y: xi[1], Z: xi[2]})
	v := Skew(r3.Vector{X: xi[3], Y: xi[4], Z: xi[5]})
	out := mat.NewDense(6, 6, nil)
	setBlock(out, 0, 0, w)
	setBlock(out, 3, 0, v)
	setBlock(out, 3, 3, w)
	return out
}

// JlSO3 returns the left Jacobian of SO(3) at w.
func JlSO3(w r3.Vector) *mat.Dense {
	theta := w.Norm()
	wx := Skew(w)
	var wx2 mat.Dense
	wx2.Mul(wx, wx)
	var a, b float64
	if theta < 1e-6 {
		a = 0.5 - theta*theta/24
		b = 1.0/6 - theta*theta/120
	} else {
		a = (1 - math.Cos(theta)) / (theta * theta)
		b = (theta - math.Sin(theta)) / (theta * theta * theta)
	}
	out := eye(3)
	addScaled(out, wx, a)
	addScaled(out, &wx2, b)
	return out
}

// JlInvSO3 returns the inverse left Jacobian of SO(3) at w.
func JlInvSO3(w r3.Vector) *mat.Dense {
	theta := w.Norm()
	wx := Skew(w)
	var wx2 mat.Dense
	wx2.Mul(wx, wx)
	var c float64
	if theta < 1e-6 {
		c = 1.0/12 + theta*theta/720
	} else {
		c = 1/(theta*theta) - (1+math.Cos(theta))/(2*theta*math.Sin(theta))
	}
	out := eye(3)
	addScaled(out, wx, -0.5)
	addScaled(out, &wx2, c)
	return out
}

// JlInv returns the 6x6 inverse left Jacobian of SE(3) at xi, satisfying
// Log(Exp(eta) * Exp(xi)) = xi + JlInv(xi)*eta to first order in eta.
func JlInv(xi []float64) *mat.Dense {
	w := r3.Vector{X: xi[0], Y: xi[1], Z: xi[2]}
	jlInv := JlInvSO3(w)
	q := seQ(xi)
	var tmp, lower mat.Dense
	tmp.Mul(jlInv, q)
	lower.Mul(&tmp, jlInv)
	lower.Scale(-1, &lower)
	out := mat.NewDense(6, 6, nil)
	setBlock(out, 0, 0, jlInv)
	setBlock(out, 3, 0, &lower)
	setBlock(out, 3, 3, jlInv)
	return out
}

// JrInv returns the 6x6 inverse right Jacobian of SE(3) at xi, satisfying
// Log(Exp(xi) * Exp(eta)) = xi + JrInv(xi)*eta to first order in eta.
func JrInv(xi []float64) *mat.Dense {
	neg := make([]float64, 6)
	for i, x := range xi {
		neg[i] = -x
	}
	return JlInv(neg)
}

// seQ is the coupling block of the SE(3) left Jacobian (Barfoot's Q matrix,
// rearranged for angular-first ordering).
func seQ(xi []float64) *mat.Dense {
	w := r3.Vector{X: xi[0], Y: xi[1], Z: xi[2]}
	v := r3.Vector{X: xi[3], Y: xi[4], Z: xi[5]}
	theta := w.Norm()

	var c1, c2, c3 float64
	if theta < 1e-6 {
		t2 := theta * theta
		c1 = 1.0/6 - t2/120
		a2 := -1.0/24 + t2/720
		a3 := -1.0/120 + t2/5040
		c2 = -a2
		c3 = -0.5 * (a2 - 3*a3)
	} else {
		t2 := theta * theta
		t4 := t2 * t2
		c1 = (theta - math.Sin(theta)) / (t2 * theta)
		a2 := (1 - t2/2 - math.Cos(theta)) / t4
		a3 := (theta - math.Sin(theta) - t2*theta/6) / (t4 * theta)
		c2 = -a2
		c3 = -0.5 * (a2 - 3*a3)
	}

	wx := Skew(w)
	vx := Skew(v)
	var wvx, vwx, wvwx, w2vx, vw2x, wvw2x, w2vwx mat.Dense
	wvx.Mul(wx, vx)
	vwx.Mul(vx, wx)
	wvwx.Mul(&wvx, wx)
	w2vx.Mul(wx, &wvx)
	vw2x.Mul(&vwx, wx)
	wvw2x.Mul(&wvwx, wx)
	w2vwx.Mul(wx, &wvwx)

	q := mat.NewDense(3, 3, nil)
	addScaled(q, vx, 0.5)
	addScaled(q, &wvx, c1)
	addScaled(q, &vwx, c1)
	addScaled(q, &wvwx, c1)
	addScaled(q, &w2vx, c2)
	addScaled(q, &vw2x, c2)
	addScaled(q, &wvwx, -3*c2)
	addScaled(q, &wvw2x, c3)
	addScaled(q, &w2vwx, c3)
	return q
}

func eye(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

func addScaled(dst *mat.Dense, m mat.Matrix, s float64) {
	var tmp mat.Dense
	tmp.Scale(s, m)
	dst.Add(dst, &tmp)
}

func setBlock(dst *mat.Dense, i, j int, m mat.Matrix) {
	r, c := m.Dims()
	for a := 0; a < r; a++ {
		for b := 0; b < c; b++ {
			dst.Set(i+a, j+b, m.At(a, b))
		}
	}
}
