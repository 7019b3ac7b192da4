package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func mulVec6(m *mat.Dense, v []float64) []float64 {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(6, v))
	return []float64{out.AtVec(0), out.AtVec(1), out.AtVec(2), out.AtVec(3), out.AtVec(4), out.AtVec(5)}
}

func vecAlmostEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	test.That(t, len(got), test.ShouldEqual, len(want))
	for i := range want {
		test.That(t, got[i], test.ShouldAlmostEqual, want[i], eps)
	}
}

func TestExpIdentityAtZero(t *testing.T) {
	p := Exp([]float64{0, 0, 0, 0, 0, 0})
	test.That(t, p.AlmostEqual(NewZeroPose(), 0), test.ShouldBeTrue)

	// revolute screw axis scaled by q=0 must be exactly the identity
	axis := []float64{0, 0, 1, 0, 1, 0}
	zero := make([]float64, 6)
	for i := range axis {
		zero[i] = axis[i] * 0
	}
	p = Exp(zero)
	test.That(t, p.AlmostEqual(NewZeroPose(), 0), test.ShouldBeTrue)
}

func TestScrewDisplacement(t *testing.T) {
	// rotation of pi/2 about the z axis through the point (0,1,0)
	s := []float64{0, 0, 1, 0, 1, 0}
	q := math.Pi / 2
	xi := make([]float64, 6)
	for i := range s {
		xi[i] = s[i] * q
	}
	p := Exp(xi)
	want := NewPoseFromAxisAngle(r3.Vector{Z: 1}, q, r3.Vector{X: -1, Y: 1})
	test.That(t, p.AlmostEqual(want, 1e-9), test.ShouldBeTrue)

	// prismatic twist is an exact translation
	p = Exp([]float64{0, 0, 0, 0.3, -1.2, 2})
	test.That(t, p.AlmostEqual(NewPoseFromPoint(r3.Vector{X: 0.3, Y: -1.2, Z: 2}), 0), test.ShouldBeTrue)
}

func TestExpLogRoundTrip(t *testing.T) {
	cases := [][]float64{
		{0.1, -0.2, 0.3, 1, 2, 3},
		{0, 0, 0, -1, 0.5, 2},
		{1.2, 0.4, -0.8, 0, 0, 0},
		{1e-8, 0, -1e-9, 0.1, 0.2, 0.3},
	}
	for _, xi := range cases {
		vecAlmostEqual(t, Log(Exp(xi)), xi, 1e-9)
	}

	a := NewPoseFromAxisAngle(r3.Vector{X: 1, Y: 1}, 0.7, r3.Vector{X: 2, Y: -1, Z: 0.5})
	test.That(t, Exp(Log(a)).AlmostEqual(a, 1e-9), test.ShouldBeTrue)

	// composing a transform with its algebraic inverse recovers the original
	b := NewPoseFromAxisAngle(r3.Vector{Y: 1}, -1.1, r3.Vector{X: -3, Z: 1})
	rel := a.Between(b)
	test.That(t, a.Compose(rel).AlmostEqual(b, 1e-9), test.ShouldBeTrue)
	test.That(t, b.Compose(rel.Invert()).AlmostEqual(a, 1e-9), test.ShouldBeTrue)
}

func TestAdjointIdentity(t *testing.T) {
	// T * Exp(xi) * T^-1 == Exp(Ad_T * xi) holds exactly
	tf := NewPoseFromAxisAngle(r3.Vector{X: 0.3, Y: -1, Z: 0.5}, 0.9, r3.Vector{X: 1, Y: 2, Z: -0.5})
	xi := []float64{0.2, -0.1, 0.4, 1, -2, 0.5}

	lhs := tf.Compose(Exp(xi)).Compose(tf.Invert())
	rhs := Exp(mulVec6(Adjoint(tf), xi))
	test.That(t, lhs.AlmostEqual(rhs, 1e-9), test.ShouldBeTrue)
}

func TestAdjointOfIdentityPose(t *testing.T) {
	ad := Adjoint(NewZeroPose())
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			test.That(t, ad.At(i, j), test.ShouldEqual, want)
		}
	}
}

func TestJacobianInverses(t *testing.T) {
	xi := []float64{0.3, -0.5, 0.2, 1.5, -0.4, 0.9}
	const h = 1e-7

	jl := JlInv(xi)
	jr := JrInv(xi)
	for k := 0; k < 6; k++ {
		eta := make([]float64, 6)
		eta[k] = h

		// left: Log(Exp(eta) * Exp(xi)) ~ xi + JlInv(xi) eta
		got := Log(Exp(eta).Compose(Exp(xi)))
		for i := 0; i < 6; i++ {
			test.That(t, (got[i]-xi[i])/h, test.ShouldAlmostEqual, jl.At(i, k), 1e-5)
		}

		// right: Log(Exp(xi) * Exp(eta)) ~ xi + JrInv(xi) eta
		got = Log(Exp(xi).Compose(Exp(eta)))
		for i := 0; i < 6; i++ {
			test.That(t, (got[i]-xi[i])/h, test.ShouldAlmostEqual, jr.At(i, k), 1e-5)
		}
	}
}

func TestAdOperator(t *testing.T) {
	// ad_x y = -ad_y x
	x := []float64{0.1, 0.2, -0.3, 1, 0, -1}
	y := []float64{-0.4, 0.1, 0.2, 0.5, 2, 1}
	xy := mulVec6(Ad(x), y)
	yx := mulVec6(Ad(y), x)
	for i := 0; i < 6; i++ {
		test.That(t, xy[i], test.ShouldAlmostEqual, -yx[i], 1e-12)
	}
}
