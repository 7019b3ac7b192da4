package dynamics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

// twoLink is the planar arm used across these tests: link1 COM at (1,0,0),
// link2 COM at (3,0,0), one revolute joint about world z through (2,0,0).
func twoLink(t *testing.T) *robot.Robot {
	t.Helper()
	r, err := robot.New(robot.Config{
		Name: "two_link",
		Base: "link1",
		Links: []robot.LinkConfig{
			{Name: "link1", Mass: 1, Inertia: []float64{0.1, 0.1, 0.1},
				Pose: robot.PoseConfig{Translation: r3.Vector{X: 1}}, Fixed: true},
			{Name: "link2", Mass: 1, Inertia: []float64{0.1, 0.1, 0.1},
				Pose: robot.PoseConfig{Translation: r3.Vector{X: 3}}},
		},
		Joints: []robot.JointConfig{
			{Name: "joint1", Type: "revolute", Parent: "link1", Child: "link2",
				Axis: r3.Vector{Z: 1}, Origin: r3.Vector{X: 2}},
		},
	})
	test.That(t, err, test.ShouldBeNil)
	return r
}

// checkJacobians compares every closed-form Jacobian block of a factor
// against central finite differences of its error under Retract.
func checkJacobians(t *testing.T, f factor.Factor, v *factor.Values, tol float64) {
	t.Helper()
	lin, err := f.Linearize(v)
	test.That(t, err, test.ShouldBeNil)

	const eps = 1e-6
	for i, k := range lin.Keys {
		_, cols := lin.J[i].Dims()
		for c := 0; c < cols; c++ {
			plus := make([]float64, cols)
			plus[c] = eps
			minus := make([]float64, cols)
			minus[c] = -eps

			ep, err := f.Error(v.Retract(map[factor.Key][]float64{k: plus}))
			test.That(t, err, test.ShouldBeNil)
			em, err := f.Error(v.Retract(map[factor.Key][]float64{k: minus}))
			test.That(t, err, test.ShouldBeNil)

			for r := 0; r < f.Dim(); r++ {
				numeric := (ep[r] - em[r]) / (2 * eps)
				test.That(t, lin.J[i].At(r, c), test.ShouldAlmostEqual, numeric, tol)
			}
		}
	}
}

func TestPoseFactorZeroError(t *testing.T) {
	r := twoLink(t)
	j, err := r.Joint("joint1")
	test.That(t, err, test.ShouldBeNil)
	f := NewPoseFactor(j, 0, factor.Constrained(6))

	// rest configuration
	v := factor.NewValues()
	v.InsertPose(PoseKey(0, 0), spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	v.InsertPose(PoseKey(1, 0), spatialmath.NewPoseFromPoint(r3.Vector{X: 3}))
	v.InsertDouble(AngleKey(0, 0), 0)
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	for _, x := range e {
		test.That(t, x, test.ShouldAlmostEqual, 0, 1e-9)
	}

	// quarter turn
	v.InsertPose(PoseKey(1, 0), spatialmath.NewPoseFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2, r3.Vector{X: 2, Y: 1}))
	v.InsertDouble(AngleKey(0, 0), math.Pi/2)
	e, err = f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	for _, x := range e {
		test.That(t, x, test.ShouldAlmostEqual, 0, 1e-9)
	}

	// wrong angle leaves a residual
	v.InsertDouble(AngleKey(0, 0), math.Pi/4)
	e, err = f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	norm := 0.0
	for _, x := range e {
		norm += x * x
	}
	test.That(t, norm, test.ShouldBeGreaterThan, 0.01)
}

func TestPoseFactorJacobians(t *testing.T) {
	r := twoLink(t)
	j, err := r.Joint("joint1")
	test.That(t, err, test.ShouldBeNil)
	f := NewPoseFactor(j, 0, factor.Constrained(6))

	v := factor.NewValues()
	v.InsertPose(PoseKey(0, 0), spatialmath.NewPoseFromAxisAngle(r3.Vector{X: 1, Z: 2}, 0.3, r3.Vector{X: 0.9, Y: -0.2, Z: 0.4}))
	v.InsertPose(PoseKey(1, 0), spatialmath.NewPoseFromAxisAngle(r3.Vector{Y: 1}, -0.7, r3.Vector{X: 2.5, Y: 1.1, Z: -0.3}))
	v.InsertDouble(AngleKey(0, 0), 0.6)
	checkJacobians(t, f, v, 1e-3)
}

func TestTwistFactorJacobians(t *testing.T) {
	r := twoLink(t)
	j, err := r.Joint("joint1")
	test.That(t, err, test.ShouldBeNil)
	f := NewTwistFactor(j, 0, factor.Constrained(6))

	v := factor.NewValues()
	v.InsertVector(TwistKey(0, 0), []float64{0.1, -0.2, 0.3, 0.4, -0.5, 0.6})
	v.InsertVector(TwistKey(1, 0), []float64{-0.3, 0.2, 0.5, -0.1, 0.7, 0.2})
	v.InsertDouble(AngleKey(0, 0), 0.8)
	v.InsertDouble(VelKey(0, 0), -0.4)
	checkJacobians(t, f, v, 1e-3)
}

func TestTwistAccelFactorJacobians(t *testing.T) {
	r := twoLink(t)
	j, err := r.Joint("joint1")
	test.That(t, err, test.ShouldBeNil)
	f := NewTwistAccelFactor(j, 0, factor.Constrained(6))

	v := factor.NewValues()
	v.InsertVector(TwistKey(1, 0), []float64{0.2, 0.1, -0.3, 0.5, 0.4, -0.2})
	v.InsertVector(TwistAccelKey(0, 0), []float64{0.3, -0.1, 0.2, -0.4, 0.6, 0.1})
	v.InsertVector(TwistAccelKey(1, 0), []float64{-0.2, 0.5, 0.1, 0.3, -0.6, 0.4})
	v.InsertDouble(AngleKey(0, 0), -0.5)
	v.InsertDouble(VelKey(0, 0), 0.7)
	v.InsertDouble(AccelKey(0, 0), -0.9)
	checkJacobians(t, f, v, 1e-3)
}

func TestWrenchFactorStationaryUnderGravity(t *testing.T) {
	r := twoLink(t)
	l, err := r.Link("link2")
	test.That(t, err, test.ShouldBeNil)

	k1 := WrenchKey(l.ID(), 0, 0)
	k2 := WrenchKey(l.ID(), 1, 0)
	f, err := NewWrenchFactor(l, []factor.Key{k1, k2}, 0, r3.Vector{Y: -9.8}, factor.Constrained(6))
	test.That(t, err, test.ShouldBeNil)

	v := factor.NewValues()
	v.InsertVector(TwistKey(l.ID(), 0), make([]float64, 6))
	v.InsertVector(TwistAccelKey(l.ID(), 0), make([]float64, 6))
	v.InsertPose(PoseKey(l.ID(), 0), spatialmath.NewZeroPose())
	v.InsertVector(k1, []float64{0, 0, -1, 0, 4.9, 0})
	v.InsertVector(k2, []float64{0, 0, 1, 0, 4.9, 0})

	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	for _, x := range e {
		test.That(t, x, test.ShouldAlmostEqual, 0, 1e-9)
	}
}

func TestWrenchFactorJacobians(t *testing.T) {
	r := twoLink(t)
	l, err := r.Link("link2")
	test.That(t, err, test.ShouldBeNil)

	k1 := WrenchKey(l.ID(), 0, 0)
	f, err := NewWrenchFactor(l, []factor.Key{k1}, 0, r3.Vector{Y: -9.8}, factor.Constrained(6))
	test.That(t, err, test.ShouldBeNil)

	v := factor.NewValues()
	v.InsertVector(TwistKey(l.ID(), 0), []float64{0.3, -0.2, 0.4, 0.1, 0.5, -0.3})
	v.InsertVector(TwistAccelKey(l.ID(), 0), []float64{-0.1, 0.2, 0.3, 0.6, -0.4, 0.2})
	v.InsertPose(PoseKey(l.ID(), 0), spatialmath.NewPoseFromAxisAngle(r3.Vector{X: 1, Y: 1}, 0.4, r3.Vector{X: 3}))
	v.InsertVector(k1, []float64{0.5, 0.1, -0.2, 0.3, 0.8, 0.4})
	checkJacobians(t, f, v, 1e-3)
}

func TestWrenchFactorDegreeLimit(t *testing.T) {
	r := twoLink(t)
	l, err := r.Link("link2")
	test.That(t, err, test.ShouldBeNil)

	keys := make([]factor.Key, 5)
	for i := range keys {
		keys[i] = WrenchKey(l.ID(), i, 0)
	}
	_, err = NewWrenchFactor(l, keys, 0, r3.Vector{Y: -9.8}, factor.Constrained(6))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at most")
}

func TestWrenchEquivalenceFactorJacobians(t *testing.T) {
	r := twoLink(t)
	j, err := r.Joint("joint1")
	test.That(t, err, test.ShouldBeNil)
	f := NewWrenchEquivalenceFactor(j, 0, factor.Constrained(6))

	v := factor.NewValues()
	v.InsertVector(WrenchKey(j.Parent(), j.ID(), 0), []float64{0.2, -0.3, 0.5, 0.1, -0.6, 0.4})
	v.InsertVector(WrenchKey(j.Child(), j.ID(), 0), []float64{-0.4, 0.2, 0.3, 0.7, 0.1, -0.5})
	v.InsertDouble(AngleKey(j.ID(), 0), 0.9)
	checkJacobians(t, f, v, 1e-3)
}

func TestTorqueFactor(t *testing.T) {
	r := twoLink(t)
	j, err := r.Joint("joint1")
	test.That(t, err, test.ShouldBeNil)
	f := NewTorqueFactor(j, 0, factor.Constrained(1))

	v := factor.NewValues()
	v.InsertVector(WrenchKey(j.Child(), j.ID(), 0), []float64{0, 0, 2, 0, 3, 0})
	v.InsertDouble(TorqueKey(j.ID(), 0), 5)
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	// screw axis (0,0,1,0,1,0) picks wz + fy
	test.That(t, e[0], test.ShouldAlmostEqual, 0, 1e-12)

	checkJacobians(t, f, v, 1e-6)
}

func TestWrenchPlanarFactor(t *testing.T) {
	r := twoLink(t)
	j, err := r.Joint("joint1")
	test.That(t, err, test.ShouldBeNil)
	f := NewWrenchPlanarFactor(j, PlanarZ, 0, factor.Constrained(3))

	v := factor.NewValues()
	v.InsertVector(WrenchKey(j.Child(), j.ID(), 0), []float64{1, 2, 3, 4, 5, 6})
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e, test.ShouldResemble, []float64{1, 2, 6})
	checkJacobians(t, f, v, 1e-9)
}

func TestContactFactors(t *testing.T) {
	point := r3.Vector{X: 0.5, Y: -0.2, Z: -0.4}
	up := r3.Vector{Z: 1}

	pose := spatialmath.NewPoseFromAxisAngle(r3.Vector{Y: 1}, 0.3, r3.Vector{X: 1, Z: 0.4})
	v := factor.NewValues()
	v.InsertPose(PoseKey(1, 0), pose)
	v.InsertVector(TwistKey(1, 0), []float64{0.2, -0.1, 0.3, 0.5, 0.4, -0.2})
	v.InsertVector(TwistAccelKey(1, 0), []float64{-0.3, 0.2, 0.1, 0.4, -0.5, 0.6})
	v.InsertVector(ContactWrenchKey(1, 0), []float64{0.1, 0.2, -0.3, 0.4, 0.5, 0.6})

	fp := NewContactPoseFactor(1, 0, point, up, 0, factor.Constrained(1))
	checkJacobians(t, fp, v, 1e-3)

	ft := NewContactTwistFactor(1, 0, point, factor.Constrained(3))
	checkJacobians(t, ft, v, 1e-9)

	fa := NewContactAccelFactor(1, 0, point, factor.Constrained(3))
	checkJacobians(t, fa, v, 1e-9)

	fm := NewContactMomentFactor(1, 0, point, factor.Constrained(3))
	checkJacobians(t, fm, v, 1e-9)
}

func TestContactPoseFactorOnGround(t *testing.T) {
	// contact point exactly at ground height has zero error
	f := NewContactPoseFactor(1, 0, r3.Vector{Z: -0.5}, r3.Vector{Z: 1}, 0, factor.Constrained(1))
	v := factor.NewValues()
	v.InsertPose(PoseKey(1, 0), spatialmath.NewPoseFromPoint(r3.Vector{X: 2, Z: 0.5}))
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e[0], test.ShouldAlmostEqual, 0, 1e-12)
}

func TestPointGoalFactor(t *testing.T) {
	goal := r3.Vector{X: 2, Y: 1, Z: 0.5}
	f := NewPointGoalFactor(PoseKey(1, 0), r3.Vector{X: 1}, goal, factor.Unit(3))

	v := factor.NewValues()
	v.InsertPose(PoseKey(1, 0), spatialmath.NewPoseFromAxisAngle(r3.Vector{Z: 1}, math.Pi/2, r3.Vector{X: 2, Z: 0.5}))
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	// rotated point lands at (2,1,0.5), exactly the goal
	for _, x := range e {
		test.That(t, x, test.ShouldAlmostEqual, 0, 1e-12)
	}
	checkJacobians(t, f, v, 1e-3)
}

func TestJointLimitFactor(t *testing.T) {
	k := AngleKey(0, 0)
	f := NewJointLimitFactor(k, -1, 1, 0.1, factor.Isotropic(1, 0.01))

	v := factor.NewValues()
	v.InsertDouble(k, 0)
	e, err := f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e[0], test.ShouldEqual, 0)

	v.InsertDouble(k, 1.2)
	e, err = f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e[0], test.ShouldAlmostEqual, 0.3, 1e-12)
	checkJacobians(t, f, v, 1e-9)

	v.InsertDouble(k, -1.5)
	e, err = f.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e[0], test.ShouldAlmostEqual, 0.6, 1e-12)
}

func TestPhaseCollocationFactors(t *testing.T) {
	q0, q1 := AngleKey(0, 0), AngleKey(0, 1)
	v0, v1 := VelKey(0, 0), VelKey(0, 1)
	a0, a1 := AccelKey(0, 0), AccelKey(0, 1)
	dt := PhaseKey(0)

	v := factor.NewValues()
	v.InsertDouble(q0, 0.2)
	v.InsertDouble(q1, 0.35)
	v.InsertDouble(v0, 1.5)
	v.InsertDouble(v1, 1.7)
	v.InsertDouble(a0, 2)
	v.InsertDouble(a1, 2.4)
	v.InsertDouble(dt, 0.1)

	fe := NewEulerPhaseFactor(q0, q1, v0, dt, factor.Constrained(1))
	e, err := fe.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e[0], test.ShouldAlmostEqual, 0.2+0.1*1.5-0.35, 1e-12)
	checkJacobians(t, fe, v, 1e-6)

	ft := NewTrapezoidalPhaseFactor(v0, v1, a0, a1, dt, factor.Constrained(1))
	e, err = ft.Error(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e[0], test.ShouldAlmostEqual, 1.5+0.05*(2+2.4)-1.7, 1e-12)
	checkJacobians(t, ft, v, 1e-6)
}
