package trajectory

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.mechdyn.dev/dyngraph/dynamics"
	"go.mechdyn.dev/dyngraph/factor"
	"go.mechdyn.dev/dyngraph/robot"
)

// biped is a floating torso with two single-link legs, feet at (+-0.5, 0, 0).
func biped(t *testing.T) *robot.Robot {
	t.Helper()
	r, err := robot.New(robot.Config{
		Name: "biped",
		Base: "torso",
		Links: []robot.LinkConfig{
			{Name: "torso", Mass: 4, Inertia: []float64{0.5, 0.5, 0.5},
				Pose: robot.PoseConfig{Translation: r3.Vector{Z: 1}}},
			{Name: "leg1", Mass: 1, Inertia: []float64{0.1, 0.1, 0.1},
				Pose: robot.PoseConfig{Translation: r3.Vector{X: 0.5, Z: 0.5}}},
			{Name: "leg2", Mass: 1, Inertia: []float64{0.1, 0.1, 0.1},
				Pose: robot.PoseConfig{Translation: r3.Vector{X: -0.5, Z: 0.5}}},
		},
		Joints: []robot.JointConfig{
			{Name: "hip1", Type: "revolute", Parent: "torso", Child: "leg1",
				Axis: r3.Vector{Y: 1}, Origin: r3.Vector{X: 0.5, Z: 1}},
			{Name: "hip2", Type: "revolute", Parent: "torso", Child: "leg2",
				Axis: r3.Vector{Y: 1}, Origin: r3.Vector{X: -0.5, Z: 1}},
		},
	})
	test.That(t, err, test.ShouldBeNil)
	return r
}

func footContact(link string) dynamics.ContactPoint {
	return dynamics.ContactPoint{Link: link, Point: r3.Vector{Z: -0.5}, Height: 0}
}

func walkCycle() WalkCycle {
	return WalkCycle{Phases: []Phase{
		{NumSteps: 2, Spec: NewFootContactSpec(footContact("leg1"))},
		{NumSteps: 2, Spec: NewFootContactSpec(footContact("leg2"))},
	}}
}

func TestTrajectoryFlattening(t *testing.T) {
	traj := New(walkCycle(), 2)
	test.That(t, len(traj.Phases()), test.ShouldEqual, 4)
	test.That(t, traj.PhaseSteps(), test.ShouldResemble, []int{2, 2, 2, 2})
	test.That(t, traj.NumSteps(), test.ShouldEqual, 8)
	test.That(t, traj.PhaseStartSteps(), test.ShouldResemble, []int{0, 2, 4, 6})

	contacts := traj.AllCycleContacts()
	test.That(t, len(contacts), test.ShouldEqual, 2)
	test.That(t, contacts[0].Link, test.ShouldEqual, "leg1")
	test.That(t, contacts[1].Link, test.ShouldEqual, "leg2")
}

func TestSwingTrajectoryShape(t *testing.T) {
	start := r3.Vector{X: 0.5}
	step := r3.Vector{X: 0.2}
	pts := SimpleSwingTrajectory(start, step, 0.1, 4)
	test.That(t, len(pts), test.ShouldEqual, 5)
	test.That(t, pts[0], test.ShouldResemble, start)
	test.That(t, pts[4].X, test.ShouldAlmostEqual, 0.7, 1e-12)
	test.That(t, pts[4].Z, test.ShouldAlmostEqual, 0, 1e-12)
	// apex at midpoint
	test.That(t, pts[2].Z, test.ShouldAlmostEqual, 0.1, 1e-12)
	test.That(t, pts[2].X, test.ShouldAlmostEqual, 0.6, 1e-12)

	stance := StanceTrajectory(start, 3)
	test.That(t, len(stance), test.ShouldEqual, 4)
	test.That(t, stance[3], test.ShouldResemble, start)
}

func TestMultiPhaseGraphCounts(t *testing.T) {
	r := biped(t)
	b := dynamics.NewBuilder(r, r3.Vector{Z: -9.8}, dynamics.DefaultSettings())
	traj := New(walkCycle(), 1)

	trans, err := traj.TransitionGraphs(b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(trans), test.ShouldEqual, 1)
	// boundary step obeys both feet's contacts
	test.That(t, trans[0].Size(), test.ShouldEqual, 21)

	g, err := traj.MultiPhaseGraph(b, dynamics.CollocationEuler)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Size(), test.ShouldEqual, 105)
	test.That(t, len(g.Keys()), test.ShouldEqual, 113)
}

func TestContactPointObjectives(t *testing.T) {
	r := biped(t)
	b := dynamics.NewBuilder(r, r3.Vector{Z: -9.8}, dynamics.DefaultSettings())
	traj := New(walkCycle(), 1)

	g, err := traj.ContactPointObjectives(b, r3.Vector{X: 0.2}, 0.1, factor.Isotropic(3, 0.01))
	test.That(t, err, test.ShouldBeNil)
	// each foot gets one goal per step: 3 in its first phase, 2 more after
	test.That(t, g.Size(), test.ShouldEqual, 10)

	bad := New(WalkCycle{Phases: []Phase{
		{NumSteps: 1, Spec: NewFootContactSpec(dynamics.ContactPoint{Link: "nope"})},
	}}, 1)
	_, err = bad.ContactPointObjectives(b, r3.Vector{}, 0, factor.Isotropic(3, 0.01))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTrajectoryObjectives(t *testing.T) {
	r := biped(t)
	b := dynamics.NewBuilder(r, r3.Vector{Z: -9.8}, dynamics.DefaultSettings())
	traj := New(walkCycle(), 1)

	bc := traj.BoundaryConditions(b, factor.Isotropic(1, 0.1))
	test.That(t, bc.Size(), test.ShouldEqual, 2*2*2) // two joints, v and a, both ends

	mt := traj.MinTorqueObjectives(b, factor.Isotropic(1, 0.1))
	test.That(t, mt.Size(), test.ShouldEqual, 2*5)

	pd := traj.PhaseDurationPriors(0.05, factor.Isotropic(1, 0.01))
	test.That(t, pd.Size(), test.ShouldEqual, 2)
}

func TestInitialValuesCoverPhaseKeys(t *testing.T) {
	r := biped(t)
	b := dynamics.NewBuilder(r, r3.Vector{Z: -9.8}, dynamics.DefaultSettings())
	traj := New(walkCycle(), 1)

	vals, err := traj.InitialValues(b, 0, 0, 0.05)
	test.That(t, err, test.ShouldBeNil)

	g, err := traj.MultiPhaseGraph(b, dynamics.CollocationEuler)
	test.That(t, err, test.ShouldBeNil)
	for _, k := range g.Keys() {
		test.That(t, vals.Has(k), test.ShouldBeTrue)
	}

	dt, err := vals.Double(dynamics.PhaseKey(1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dt, test.ShouldEqual, 0.05)
}
