package solver

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/spatialmath"
)

func poseFitProblem() (*factor.Graph, *factor.Values, spatialmath.Pose) {
	k := factor.NewKey('p', 0, 0, 0)
	goal := spatialmath.NewPoseFromAxisAngle(r3.Vector{Z: 1}, 0.8, r3.Vector{X: 1, Y: -2, Z: 0.5})
	g := factor.NewGraph()
	g.Add(factor.NewPosePrior(k, goal, factor.Unit(6)))

	init := factor.NewValues()
	init.InsertPose(k, spatialmath.NewPoseFromAxisAngle(r3.Vector{X: 1}, -0.5, r3.Vector{X: -1, Y: 1, Z: 2}))
	return g, init, goal
}

func checkPoseFit(t *testing.T, result *factor.Values, goal spatialmath.Pose) {
	t.Helper()
	p, err := result.Pose(factor.NewKey('p', 0, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AlmostEqual(goal, 1e-6), test.ShouldBeTrue)
}

func TestGaussNewtonPoseFit(t *testing.T) {
	g, init, goal := poseFitProblem()
	result, err := GaussNewton(g, init, Options{})
	test.That(t, err, test.ShouldBeNil)
	checkPoseFit(t, result, goal)
}

func TestLevenbergMarquardtPoseFit(t *testing.T) {
	g, init, goal := poseFitProblem()
	result, err := LevenbergMarquardt(g, init, Options{})
	test.That(t, err, test.ShouldBeNil)
	checkPoseFit(t, result, goal)
}

func TestDoglegPoseFit(t *testing.T) {
	g, init, goal := poseFitProblem()
	result, err := Dogleg(g, init, Options{TrustRadius: 10})
	test.That(t, err, test.ShouldBeNil)
	checkPoseFit(t, result, goal)
}

func TestWeightedScalarMean(t *testing.T) {
	k := factor.NewKey('q', 0, 0, 0)
	g := factor.NewGraph()
	g.Add(factor.NewDoublePrior(k, 0, factor.Isotropic(1, 1)))
	g.Add(factor.NewDoublePrior(k, 2, factor.Isotropic(1, 1)))
	init := factor.NewValues()
	init.InsertDouble(k, 10)

	result, err := GaussNewton(g, init, Options{})
	test.That(t, err, test.ShouldBeNil)
	x, err := result.Double(k)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestNonConvergenceCarriesBestValues(t *testing.T) {
	g, init, _ := poseFitProblem()
	_, err := LevenbergMarquardt(g, init, Options{MaxIterations: 1, AbsoluteErrorTol: 1e-300, RelativeErrorTol: 1e-300})
	var nc *NonConvergedError
	test.That(t, errors.As(err, &nc), test.ShouldBeTrue)
	test.That(t, nc.Values, test.ShouldNotBeNil)
	test.That(t, nc.Iterations, test.ShouldEqual, 1)
}

func TestPenaltyMethod(t *testing.T) {
	k := factor.NewKey('q', 0, 0, 0)
	objectives := factor.NewGraph()
	objectives.Add(factor.NewDoublePrior(k, 0, factor.Isotropic(1, 10)))

	constraint := factor.NewDoublePrior(k, 1, factor.Unit(1))
	init := factor.NewValues()
	init.InsertDouble(k, 0)

	result, err := Penalty(objectives, []factor.Factor{constraint}, init, PenaltyOptions{
		InitialMu:      10,
		MuIncreaseRate: 10,
		NumIterations:  4,
	})
	test.That(t, err, test.ShouldBeNil)
	x, err := result.Double(k)
	test.That(t, err, test.ShouldBeNil)
	// with the final mu the constraint dominates the weak objective
	test.That(t, x, test.ShouldAlmostEqual, 1, 1e-3)
}
