package factor

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.mechdyn.dev/dyngraph/spatialmath"
)

func TestValuesTypedAccess(t *testing.T) {
	v := NewValues()
	pk := NewKey('p', 1, 0, 0)
	vk := NewKey('V', 1, 0, 0)
	dk := NewKey('q', 0, 0, 0)

	v.InsertPose(pk, spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	v.InsertVector(vk, []float64{1, 2, 3, 4, 5, 6})
	v.InsertDouble(dk, 0.5)

	p, err := v.Pose(pk)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.T.X, test.ShouldEqual, 1)

	_, err = v.Pose(vk)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = v.Double(NewKey('q', 9, 0, 0))
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, v.Dim(pk), test.ShouldEqual, 6)
	test.That(t, v.Dim(vk), test.ShouldEqual, 6)
	test.That(t, v.Dim(dk), test.ShouldEqual, 1)
	test.That(t, v.Len(), test.ShouldEqual, 3)

	// vector getters return copies
	vec, err := v.Vector(vk)
	test.That(t, err, test.ShouldBeNil)
	vec[0] = 99
	vec2, err := v.Vector(vk)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vec2[0], test.ShouldEqual, 1)
}

func TestValuesRetractIsSnapshot(t *testing.T) {
	v := NewValues()
	dk := NewKey('q', 0, 0, 0)
	v.InsertDouble(dk, 1)

	v2 := v.Retract(map[Key][]float64{dk: {0.5}})
	d1, err := v.Double(dk)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d1, test.ShouldEqual, 1.0)
	d2, err := v2.Double(dk)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d2, test.ShouldEqual, 1.5)
}

func TestPosePrior(t *testing.T) {
	k := NewKey('p', 0, 0, 0)
	prior := spatialmath.NewPoseFromAxisAngle(r3.Vector{Z: 1}, 0.3, r3.Vector{X: 1, Y: 2})
	f := NewPosePrior(k, prior, Unit(6))

	v := NewValues()
	v.InsertPose(k, prior)
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	for _, ei := range e {
		test.That(t, ei, test.ShouldAlmostEqual, 0, 1e-12)
	}

	// retracting the prior by a known twist yields that twist as the error
	xi := []float64{0.1, 0, -0.2, 0.3, 0, 0.1}
	v2 := v.Retract(map[Key][]float64{k: xi})
	e, err = f.Error(v2)
	test.That(t, err, test.ShouldBeNil)
	for i := range xi {
		test.That(t, e[i], test.ShouldAlmostEqual, xi[i], 1e-9)
	}
}

func TestGaussianSolve(t *testing.T) {
	// x = 2, y - x = 1
	xk := NewKey('x', 0, 0, 0)
	yk := NewKey('y', 0, 0, 0)
	g := NewGaussianGraph()
	g.Add(NewGaussian([]Key{xk}, []*mat.Dense{mat.NewDense(1, 1, []float64{1})}, []float64{2}, Constrained(1)))
	g.Add(NewGaussian(
		[]Key{xk, yk},
		[]*mat.Dense{mat.NewDense(1, 1, []float64{-1}), mat.NewDense(1, 1, []float64{1})},
		[]float64{1},
		Constrained(1),
	))
	sol, err := g.Solve()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sol[xk][0], test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, sol[yk][0], test.ShouldAlmostEqual, 3, 1e-12)
}

func TestGaussianSolveSingular(t *testing.T) {
	// two unknowns, one equation: underdetermined
	xk := NewKey('x', 0, 0, 0)
	yk := NewKey('y', 0, 0, 0)
	g := NewGaussianGraph()
	g.Add(NewGaussian(
		[]Key{xk, yk},
		[]*mat.Dense{mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1})},
		[]float64{1},
		Constrained(1),
	))
	_, err := g.Solve()
	test.That(t, errors.Is(err, ErrSingularSystem), test.ShouldBeTrue)

	// square but rank-deficient
	g2 := NewGaussianGraph()
	g2.Add(NewGaussian(
		[]Key{xk, yk},
		[]*mat.Dense{mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1})},
		[]float64{1},
		Constrained(1),
	))
	g2.Add(NewGaussian(
		[]Key{xk, yk},
		[]*mat.Dense{mat.NewDense(1, 1, []float64{2}), mat.NewDense(1, 1, []float64{2})},
		[]float64{2},
		Constrained(1),
	))
	_, err = g2.Solve()
	test.That(t, errors.Is(err, ErrSingularSystem), test.ShouldBeTrue)
}

func TestScalarAffine(t *testing.T) {
	q0 := NewKey('q', 0, 0, 0)
	q1 := NewKey('q', 0, 0, 1)
	v0 := NewKey('v', 0, 0, 0)
	dt := 0.1
	// q0 + dt*v0 - q1 = 0
	f := NewScalarAffine([]Key{q0, v0, q1}, []float64{1, dt, -1}, 0, Unit(1))

	v := NewValues()
	v.InsertDouble(q0, 1)
	v.InsertDouble(v0, 2)
	v.InsertDouble(q1, 1.2)
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e[0], test.ShouldAlmostEqual, 0, 1e-12)

	lin, err := f.Linearize(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lin.J[1].At(0, 0), test.ShouldEqual, dt)
}

func TestGraphKeysAndError(t *testing.T) {
	k := NewKey('q', 0, 0, 0)
	g := NewGraph()
	g.Add(NewDoublePrior(k, 1, Isotropic(1, 0.5)))
	g.Add(NewDoublePrior(k, 1, Unit(1)))
	test.That(t, g.Size(), test.ShouldEqual, 2)
	test.That(t, len(g.Keys()), test.ShouldEqual, 1)

	v := NewValues()
	v.InsertDouble(k, 2)
	total, err := g.Error(v)
	test.That(t, err, test.ShouldBeNil)
	// 0.5*(1/0.5)^2 + 0.5*1^2
	test.That(t, total, test.ShouldAlmostEqual, 2.5, 1e-12)
}
